package retrieval

import (
	"context"
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/chunk"
	"github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/corpus/corpustest"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

// --- Mocks ---

// mockIndex evaluates filters in memory. queryFn, when set, runs before the
// lookup and may fail or block the call.
type mockIndex struct {
	mu            sync.Mutex
	entries       []corpus.Entry
	calls         int
	ignoreFilters bool
	queryFn       func(ctx context.Context, call int) error
}

func (m *mockIndex) Query(ctx context.Context, q corpus.Query) ([]corpus.Hit, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	if m.queryFn != nil {
		if err := m.queryFn(ctx, call); err != nil {
			return nil, err
		}
	}

	var hits []corpus.Hit
	for _, e := range m.entries {
		if !m.ignoreFilters && !q.Filter.Matches(e.Record) {
			continue
		}
		hits = append(hits, corpus.Hit{Record: e.Record.Clone(), Similarity: cosine(q.Vector, e.Vector)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > q.K {
		hits = hits[:q.K]
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return max(0, dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

// mockEmbedder returns a fixed vector. embedFn, when set, runs first.
type mockEmbedder struct {
	err     error
	embedFn func(ctx context.Context)
}

func (m *mockEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		m.embedFn(ctx)
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 2}, nil
}

// inflight records the peak number of concurrent calls.
type inflight struct {
	mu    sync.Mutex
	cur   int
	peak  int
	total int
}

func (f *inflight) enter() func() {
	f.mu.Lock()
	f.cur++
	f.total++
	f.peak = max(f.peak, f.cur)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.cur--
		f.mu.Unlock()
	}
}

func (f *inflight) stats() (peak, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak, f.total
}

func newLibrary(t *testing.T) *patterns.Library {
	t.Helper()
	lib, err := patterns.Default()
	if err != nil {
		t.Fatal(err)
	}
	return lib
}

// fixture builds a chunk with a single relevance component and a uniform
// quality score.
func fixture(docID string, index int, n section.Name, rel, q float64) chunk.Chunk {
	c := corpustest.Chunk(docID, index, index+1)
	c.Relevance = section.NewRelevance()
	if n != "" {
		c.Relevance[n] = rel
	}
	c.Quality = quality.New(quality.DefaultWeights(), q, q, q, q)
	return c
}
