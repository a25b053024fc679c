package ingest

import (
	"context"

	"github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/document"
)

// ChunkWriter writes and removes a document's chunks.
type ChunkWriter interface {
	Add(ctx context.Context, entries []corpus.Entry) error
	DeleteDocument(ctx context.Context, documentID string) (int, error)
}

// DocumentStore keeps document records.
type DocumentStore interface {
	Put(ctx context.Context, doc document.Metadata) error
	Get(ctx context.Context, id string) (document.Metadata, error)
	FindByContentHash(ctx context.Context, hash string) (document.Metadata, error)
	Delete(ctx context.Context, id string) error
}
