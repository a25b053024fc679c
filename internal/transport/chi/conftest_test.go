package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
	"github.com/kailas-cloud/evidex/internal/domain/report"
	"github.com/kailas-cloud/evidex/internal/domain/search/request"
	"github.com/kailas-cloud/evidex/internal/domain/section"
	healthuc "github.com/kailas-cloud/evidex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/evidex/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/evidex/internal/usecase/retrieval"
)

// --- Mocks ---

type mockDocuments struct {
	ingestFn   func(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
	getFn      func(ctx context.Context, id string) (document.Metadata, error)
	deleteFn   func(ctx context.Context, id string) (int, error)
	lastIngest ingestuc.Request
}

func (m *mockDocuments) Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error) {
	m.lastIngest = req
	if m.ingestFn != nil {
		return m.ingestFn(ctx, req)
	}
	return ingestuc.Result{}, nil
}

func (m *mockDocuments) Get(ctx context.Context, id string) (document.Metadata, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return document.Metadata{}, domain.ErrDocumentNotFound
}

func (m *mockDocuments) Delete(ctx context.Context, id string) (int, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return 0, domain.ErrDocumentNotFound
}

type mockRetriever struct {
	searchFn   func(ctx context.Context, query string, rc request.Context) (retrievaluc.Response, error)
	evidenceFn func(ctx context.Context, sections []section.Name, rc request.Context) (evidence.Set, error)
	lastRC     request.Context
	lastSecs   []section.Name
}

func (m *mockRetriever) Search(ctx context.Context, query string, rc request.Context) (retrievaluc.Response, error) {
	m.lastRC = rc
	if m.searchFn != nil {
		return m.searchFn(ctx, query, rc)
	}
	return retrievaluc.Response{}, nil
}

func (m *mockRetriever) RetrieveEvidence(
	ctx context.Context, sections []section.Name, rc request.Context,
) (evidence.Set, error) {
	m.lastRC = rc
	m.lastSecs = sections
	if m.evidenceFn != nil {
		return m.evidenceFn(ctx, sections, rc)
	}
	return evidence.Aggregate(sections, nil, 0), nil
}

type mockValidator struct {
	rep        report.Integrity
	err        error
	lastSample int
}

func (m *mockValidator) Validate(_ context.Context, sample int) (report.Integrity, error) {
	m.lastSample = sample
	return m.rep, m.err
}

type mockStats struct {
	st  report.Stats
	err error
}

func (m *mockStats) Compute(context.Context) (report.Stats, error) { return m.st, m.err }

type mockHealth struct {
	rep healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.rep }

// --- Fixture ---

type fixture struct {
	docs      *mockDocuments
	retriever *mockRetriever
	validator *mockValidator
	stats     *mockStats
	health    *mockHealth
	handler   http.Handler
}

func newFixture(t *testing.T, keys ...string) *fixture {
	t.Helper()
	lib, err := patterns.Default()
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		docs:      &mockDocuments{},
		retriever: &mockRetriever{},
		validator: &mockValidator{rep: report.Integrity{IsValid: true}},
		stats:     &mockStats{},
		health:    &mockHealth{rep: healthuc.Report{Status: healthuc.Healthy}},
	}
	srv := NewServer(Deps{
		Documents: f.docs,
		Retriever: f.retriever,
		Validator: f.validator,
		Stats:     f.stats,
		Health:    f.health,
		Library:   lib,
	}, zap.NewNop())
	f.handler = NewRouter(srv, RouterOptions{APIKeys: keys, MaxBodyBytes: 1 << 20}, zap.NewNop())
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}
