package ingest

import (
	"context"
	"sync"
	"testing"

	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
)

// --- Mocks ---

type mockChunks struct {
	mu      sync.Mutex
	records map[string][]corpus.Entry
	adds    int
	addErr  error
	delErr  error
	addFn   func([]corpus.Entry) error
}

func newMockChunks() *mockChunks {
	return &mockChunks{records: make(map[string][]corpus.Entry)}
}

func (m *mockChunks) Add(_ context.Context, entries []corpus.Entry) error {
	if m.addFn != nil {
		if err := m.addFn(entries); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds++
	for _, e := range entries {
		id := e.Record[metadata.FieldDocumentID]
		m.records[id] = append(m.records[id], e)
	}
	return m.addErr
}

func (m *mockChunks) DeleteDocument(_ context.Context, id string) (int, error) {
	if m.delErr != nil {
		return 0, m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.records[id])
	delete(m.records, id)
	return n, nil
}

func (m *mockChunks) count(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[id])
}

type mockDocs struct {
	mu     sync.Mutex
	docs   map[string]document.Metadata
	putErr error
}

func newMockDocs() *mockDocs {
	return &mockDocs{docs: make(map[string]document.Metadata)}
}

func (m *mockDocs) Put(_ context.Context, d document.Metadata) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[d.ID] = d
	return nil
}

func (m *mockDocs) Get(_ context.Context, id string) (document.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return document.Metadata{}, domain.ErrDocumentNotFound
	}
	return d, nil
}

func (m *mockDocs) FindByContentHash(_ context.Context, hash string) (document.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ContentHash == hash {
			return d, nil
		}
	}
	return document.Metadata{}, domain.ErrDocumentNotFound
}

func (m *mockDocs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(m.docs, id)
	return nil
}

type mockEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.6, 0.8}, PromptTokens: 3, TotalTokens: 3}, nil
}

func newLibrary(t *testing.T) *patterns.Library {
	t.Helper()
	lib, err := patterns.Default()
	if err != nil {
		t.Fatal(err)
	}
	return lib
}
