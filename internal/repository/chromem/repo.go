// Package chromem implements the chunk index on an embedded chromem-go
// database. Filters run in process against the flat metadata map.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kailas-cloud/evidex/internal/domain"
	domcorpus "github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/search/filter"
)

var tracer = otel.Tracer("evidex/chromem")

// DefaultCollection holds every chunk.
const DefaultCollection = "evidex_chunks"

var errNoEmbedding = errors.New("chromem: embeddings are computed before insertion")

// Config configures the embedded database. An empty Path keeps everything
// in memory.
type Config struct {
	Path       string
	Compress   bool
	Collection string
	Dimensions int
}

// Repo implements corpus.Index.
//
// chromem rejects a query asking for more results than the collection holds,
// so scans read the count and query under mu and deletes take it exclusively.
type Repo struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	dim        int

	// afterCount runs between the count and the query of a scan; tests only.
	afterCount func()
}

var _ domcorpus.Index = (*Repo)(nil)

// New opens (or creates) the database and its chunk collection.
func New(cfg Config) (*Repo, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("chromem: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", cfg.Path, err)
		}
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem DB: %w", err)
		}
	}

	r := &Repo{db: db, dim: cfg.Dimensions}
	col, err := db.GetOrCreateCollection(cfg.Collection, nil, r.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", cfg.Collection, err)
	}
	r.collection = col
	return r, nil
}

// Ping reports whether the collection is open. The database is in process.
func (r *Repo) Ping(context.Context) error {
	if r.collection == nil {
		return errors.New("chromem: collection is not open")
	}
	return nil
}

func (r *Repo) embeddingFunc() chromem.EmbeddingFunc {
	return func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbedding
	}
}

// Ensure is a no-op; New already created the collection.
func (r *Repo) Ensure(context.Context) error { return nil }

// Add validates every entry, then inserts them.
func (r *Repo) Add(ctx context.Context, entries []domcorpus.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := domcorpus.ValidateEntries(entries, r.dim); err != nil {
		return err
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		meta := e.Record.Clone()
		delete(meta, metadata.FieldContent)
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		docs[i] = chromem.Document{
			ID:        e.ID(),
			Content:   e.Record[metadata.FieldContent],
			Metadata:  meta,
			Embedding: vec,
		}
	}
	if err := r.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding chunks: %w", err)
	}
	return nil
}

// Query scores every candidate that passes the filter and keeps the top K.
func (r *Repo) Query(ctx context.Context, q domcorpus.Query) ([]domcorpus.Hit, error) {
	ctx, span := tracer.Start(ctx, "chromem.query")
	defer span.End()
	span.SetAttributes(attribute.Int("k", q.K), attribute.Int("conditions", len(q.Filter.Must())))

	if q.K <= 0 {
		return nil, nil
	}
	if len(q.Vector) != r.dim {
		return nil, fmt.Errorf("query has %d dimensions, want %d: %w", len(q.Vector), r.dim, domain.ErrVectorDimMismatch)
	}

	results, err := r.scan(ctx, q.Vector, q.Filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(results) > q.K {
		results = results[:q.K]
	}

	hits := make([]domcorpus.Hit, len(results))
	for i, res := range results {
		hits[i] = domcorpus.Hit{
			Record:     toRecord(res),
			Similarity: clampSimilarity(res.Similarity),
		}
	}
	span.SetAttributes(attribute.Int("results", len(hits)))
	return hits, nil
}

// DeleteDocument removes every chunk whose document_id matches.
func (r *Repo) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := r.collection.Count()
	if before == 0 {
		return 0, nil
	}
	err := r.collection.Delete(ctx, map[string]string{metadata.FieldDocumentID: documentID}, nil)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks of %s: %w", documentID, err)
	}
	return before - r.collection.Count(), nil
}

// ListChunks returns matching records ordered by chunk id.
func (r *Repo) ListChunks(ctx context.Context, f filter.Expression, offset, limit int) (domcorpus.Page, error) {
	results, err := r.scan(ctx, r.probe(), f)
	if err != nil {
		return domcorpus.Page{}, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })

	page := domcorpus.Page{Total: len(results)}
	if offset >= len(results) {
		return page, nil
	}
	end := len(results)
	if limit > 0 {
		end = min(end, offset+limit)
	}
	for _, res := range results[offset:end] {
		page.Records = append(page.Records, toRecord(res))
	}
	return page, nil
}

// Count returns the number of records matching f.
func (r *Repo) Count(ctx context.Context, f filter.Expression) (int, error) {
	if f.IsEmpty() {
		return r.collection.Count(), nil
	}
	results, err := r.scan(ctx, r.probe(), f)
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

// scan ranks the whole collection against vector and drops records that fail
// f. Single-value matches are pushed into chromem's where clause.
func (r *Repo) scan(ctx context.Context, vector []float32, f filter.Expression) ([]chromem.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.collection.Count()
	if n == 0 {
		return nil, nil
	}
	if r.afterCount != nil {
		r.afterCount()
	}
	results, err := r.collection.QueryEmbedding(ctx, vector, n, pushdown(f), nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	out := results[:0]
	for _, res := range results {
		if f.Matches(res.Metadata) {
			out = append(out, res)
		}
	}
	return out, nil
}

// probe is a fixed unit vector used for metadata-only listings.
func (r *Repo) probe() []float32 {
	v := make([]float32, r.dim)
	v[0] = 1
	return v
}

// Fields that always hold a single tag; chromem's where clause is exact match.
var singleValued = map[string]bool{
	metadata.FieldDocumentID:   true,
	metadata.FieldDocumentType: true,
	metadata.FieldInstrument:   true,
	metadata.FieldSubjectID:    true,
	metadata.FieldStatus:       true,
	metadata.FieldContentType:  true,
	metadata.FieldSchoolYear:   true,
}

func pushdown(f filter.Expression) map[string]string {
	var where map[string]string
	for _, c := range f.Must() {
		if c.IsMatch() && len(c.Values()) == 1 && singleValued[c.Key()] {
			if where == nil {
				where = make(map[string]string)
			}
			where[c.Key()] = c.Values()[0]
		}
	}
	return where
}

func toRecord(res chromem.Result) metadata.Record {
	rec := make(metadata.Record, len(res.Metadata)+1)
	for k, v := range res.Metadata {
		rec[k] = v
	}
	rec[metadata.FieldContent] = res.Content
	return rec
}

func clampSimilarity(s float32) float64 {
	return min(1, max(0, float64(s)))
}
