// Package corpus defines the contracts every corpus backend implements: the
// chunk index and the document catalog.
package corpus

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/search/filter"
)

// Entry is one chunk ready to be written: its flat record and embedding.
type Entry struct {
	Record metadata.Record
	Vector []float32
}

// ID returns the chunk id carried by the record.
func (e Entry) ID() string { return e.Record[metadata.FieldChunkID] }

// Hit is one query match. Similarity is cosine similarity in [0,1].
type Hit struct {
	Record     metadata.Record
	Similarity float64
}

// Query is a filtered nearest-neighbor lookup.
type Query struct {
	Vector []float32
	Filter filter.Expression
	K      int
}

// Page is one slice of a metadata-only listing.
type Page struct {
	Records []metadata.Record
	Total   int
}

// Index stores chunk records with their vectors.
type Index interface {
	// Ensure creates the underlying index or collection if it is missing.
	Ensure(ctx context.Context) error
	// Add validates every entry, then writes them. No entry is written when
	// any record fails validation.
	Add(ctx context.Context, entries []Entry) error
	// Query returns at most K hits ordered by similarity descending.
	Query(ctx context.Context, q Query) ([]Hit, error)
	// DeleteDocument removes every chunk of a document and reports how many.
	DeleteDocument(ctx context.Context, documentID string) (int, error)
	// ListChunks pages through records matching f. Limit 0 returns all.
	ListChunks(ctx context.Context, f filter.Expression, offset, limit int) (Page, error)
	// Count returns the number of records matching f.
	Count(ctx context.Context, f filter.Expression) (int, error)
}

// DocumentStore keeps one record per ingested document.
type DocumentStore interface {
	Put(ctx context.Context, doc document.Metadata) error
	Get(ctx context.Context, id string) (document.Metadata, error)
	// FindByContentHash returns domain.ErrDocumentNotFound when no document
	// has that hash.
	FindByContentHash(ctx context.Context, hash string) (document.Metadata, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]document.Metadata, error)
}

// ValidateEntries checks every record and vector dimension before a write.
// dim 0 skips the dimension check.
func ValidateEntries(entries []Entry, dim int) error {
	for i, e := range entries {
		if err := metadata.Validate(e.Record); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if len(e.Vector) == 0 {
			return fmt.Errorf("entry %d: empty vector: %w", i, domain.ErrVectorDimMismatch)
		}
		if dim > 0 && len(e.Vector) != dim {
			return fmt.Errorf("entry %d: got %d dimensions, want %d: %w",
				i, len(e.Vector), dim, domain.ErrVectorDimMismatch)
		}
	}
	return nil
}
