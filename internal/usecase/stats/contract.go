package stats

import (
	"context"

	"github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/search/filter"
)

// ChunkLister pages through stored chunk records.
type ChunkLister interface {
	ListChunks(ctx context.Context, f filter.Expression, offset, limit int) (corpus.Page, error)
}

// DocumentLister lists document records.
type DocumentLister interface {
	List(ctx context.Context) ([]document.Metadata, error)
}
