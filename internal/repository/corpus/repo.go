// Package corpus implements the chunk index and document catalog on a
// RediSearch-compatible hash store.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/evidex/internal/db"
	"github.com/kailas-cloud/evidex/internal/domain"
	domcorpus "github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/domain/search/filter"
)

// store is the consumer interface for the corpus (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, q *db.ListQuery) (int, error)
}

const vectorField = "__vector"

// HNSWConfig tunes the vector index graph.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Options configure key layout and the vector index.
type Options struct {
	Prefix     string // e.g. "evidex:"
	Dimensions int
	Algorithm  db.VectorAlgorithm
	HNSW       HNSWConfig
	Weights    quality.Weights
}

// Repo implements corpus.Index and corpus.DocumentStore.
type Repo struct {
	store store
	opts  Options
}

var (
	_ domcorpus.Index         = (*Repo)(nil)
	_ domcorpus.DocumentStore = (*Repo)(nil)
)

// New creates a corpus repository.
func New(s store, opts Options) *Repo {
	if opts.Algorithm == "" {
		opts.Algorithm = db.VectorHNSW
	}
	return &Repo{store: s, opts: opts}
}

// IndexName returns the FT index covering chunk hashes.
func (r *Repo) IndexName() string { return r.opts.Prefix + "chunks" }

func (r *Repo) chunkPrefix() string       { return r.opts.Prefix + "chunk:" }
func (r *Repo) chunkKey(id string) string { return r.chunkPrefix() + id }
func (r *Repo) docPrefix() string         { return r.opts.Prefix + "doc:" }
func (r *Repo) docKey(id string) string   { return r.docPrefix() + id }
func (r *Repo) hashKey(h string) string   { return r.opts.Prefix + "hash:" + h }

// Ensure creates the chunk index when it does not exist yet.
func (r *Repo) Ensure(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.IndexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.IndexName(), err)
	}
	if exists {
		return nil
	}

	def, err := r.indexDefinition()
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.IndexName(), err)
	}
	return nil
}

// indexDefinition maps the flat schema onto TAG and NUMERIC fields. Chunk
// text is stored but not indexed; Valkey Search has no TEXT support.
func (r *Repo) indexDefinition() (*db.IndexDefinition, error) {
	b := db.NewIndex(r.IndexName()).Prefix(r.chunkPrefix())
	for _, f := range metadata.Fields() {
		switch f.Kind {
		case metadata.KindTag:
			b.Tag(f.Name, metadata.ListSeparator)
		case metadata.KindNumeric:
			b.Numeric(f.Name)
		}
	}
	b.Vector(vectorField, r.opts.Dimensions, r.opts.Algorithm, r.opts.HNSW.M, r.opts.HNSW.EFConstruct)

	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build index definition: %w", err)
	}
	return def, nil
}

// Add validates all entries and writes them in one pipeline.
func (r *Repo) Add(ctx context.Context, entries []domcorpus.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := domcorpus.ValidateEntries(entries, r.opts.Dimensions); err != nil {
		return err
	}

	items := make([]db.HashSetItem, len(entries))
	for i, e := range entries {
		items[i] = db.HashSetItem{Key: r.chunkKey(e.ID()), Fields: buildHashFields(e)}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset chunks: %w", err)
	}
	return nil
}

// Query runs a filtered KNN search.
func (r *Repo) Query(ctx context.Context, q domcorpus.Query) ([]domcorpus.Hit, error) {
	if q.K <= 0 {
		return nil, nil
	}
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.IndexName(),
		Filters:   q.Filter,
		Vector:    q.Vector,
		K:         q.K,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.IndexName(), err)
	}

	hits := make([]domcorpus.Hit, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		hits = append(hits, domcorpus.Hit{
			Record:     recordFromHash(r.chunkPrefix(), e.Key, e.Fields),
			Similarity: e.Score,
		})
	}
	return hits, nil
}

// DeleteDocument removes every chunk hash of a document.
func (r *Repo) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	f, err := documentFilter(documentID)
	if err != nil {
		return 0, err
	}
	page, err := r.ListChunks(ctx, f, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("list chunks of %s: %w", documentID, err)
	}
	if len(page.Records) == 0 {
		return 0, nil
	}

	keys := make([]string, len(page.Records))
	for i, rec := range page.Records {
		keys[i] = r.chunkKey(rec[metadata.FieldChunkID])
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("del chunks of %s: %w", documentID, err)
	}
	return len(keys), nil
}

// ListChunks pages through chunk records matching f in key order.
func (r *Repo) ListChunks(ctx context.Context, f filter.Expression, offset, limit int) (domcorpus.Page, error) {
	if limit <= 0 {
		n, err := r.Count(ctx, f)
		if err != nil {
			return domcorpus.Page{}, err
		}
		limit = n
	}
	if limit == 0 {
		return domcorpus.Page{}, nil
	}

	sr, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName: r.IndexName(),
		Prefix:    r.chunkPrefix(),
		Filters:   f,
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		return domcorpus.Page{}, fmt.Errorf("list chunks: %w", err)
	}

	page := domcorpus.Page{Total: sr.Total, Records: make([]metadata.Record, 0, len(sr.Entries))}
	for _, e := range sr.Entries {
		page.Records = append(page.Records, recordFromHash(r.chunkPrefix(), e.Key, e.Fields))
	}
	return page, nil
}

// Count returns the number of chunks matching f.
func (r *Repo) Count(ctx context.Context, f filter.Expression) (int, error) {
	n, err := r.store.SearchCount(ctx, &db.ListQuery{
		IndexName: r.IndexName(),
		Prefix:    r.chunkPrefix(),
		Filters:   f,
	})
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func documentFilter(documentID string) (filter.Expression, error) {
	cond, err := filter.NewMatch(metadata.FieldDocumentID, documentID)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidContext, err)
	}
	return filter.NewExpression(cond)
}

// recordFromHash restores the chunk id from the key when the reply omitted it.
func recordFromHash(prefix, key string, fields map[string]string) metadata.Record {
	rec := make(metadata.Record, len(fields)+1)
	for k, v := range fields {
		if k == vectorField {
			continue
		}
		rec[k] = v
	}
	if rec[metadata.FieldChunkID] == "" {
		rec[metadata.FieldChunkID] = strings.TrimPrefix(key, prefix)
	}
	return rec
}
