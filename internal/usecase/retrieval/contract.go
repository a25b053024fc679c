package retrieval

import (
	"context"

	"github.com/kailas-cloud/evidex/internal/domain/corpus"
)

// Index answers filtered nearest-neighbor queries.
type Index interface {
	Query(ctx context.Context, q corpus.Query) ([]corpus.Hit, error)
}
