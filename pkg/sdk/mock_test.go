package evidex

import (
	"context"

	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
	"github.com/kailas-cloud/evidex/internal/domain/report"
	"github.com/kailas-cloud/evidex/internal/domain/search/request"
	"github.com/kailas-cloud/evidex/internal/domain/section"
	healthuc "github.com/kailas-cloud/evidex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/evidex/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/evidex/internal/usecase/retrieval"
)

// --- ingestUseCase mock ---

type mockIngestUC struct {
	ingestFn func(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
	getFn    func(ctx context.Context, id string) (document.Metadata, error)
	deleteFn func(ctx context.Context, id string) (int, error)
}

func (m *mockIngestUC) Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error) {
	return m.ingestFn(ctx, req)
}

func (m *mockIngestUC) Get(ctx context.Context, id string) (document.Metadata, error) {
	return m.getFn(ctx, id)
}

func (m *mockIngestUC) Delete(ctx context.Context, id string) (int, error) {
	return m.deleteFn(ctx, id)
}

// --- retrievalUseCase mock ---

type mockRetrievalUC struct {
	searchFn   func(ctx context.Context, query string, rc request.Context) (retrievaluc.Response, error)
	evidenceFn func(ctx context.Context, sections []section.Name, rc request.Context) (evidence.Set, error)
}

func (m *mockRetrievalUC) Search(ctx context.Context, query string, rc request.Context) (retrievaluc.Response, error) {
	return m.searchFn(ctx, query, rc)
}

func (m *mockRetrievalUC) RetrieveEvidence(
	ctx context.Context, sections []section.Name, rc request.Context,
) (evidence.Set, error) {
	return m.evidenceFn(ctx, sections, rc)
}

// --- report mocks ---

type mockIntegrityUC struct {
	rep        report.Integrity
	err        error
	lastSample int
}

func (m *mockIntegrityUC) Validate(_ context.Context, sample int) (report.Integrity, error) {
	m.lastSample = sample
	return m.rep, m.err
}

type mockStatsUC struct {
	st  report.Stats
	err error
}

func (m *mockStatsUC) Compute(context.Context) (report.Stats, error) {
	return m.st, m.err
}

type mockHealthUC struct {
	rep healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report {
	return m.rep
}

// --- embedder mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

// --- helpers ---

func testClient(ing ingestUseCase, ret retrievalUseCase) *Client {
	return &Client{
		ingestSvc:      ing,
		retrievalSvc:   ret,
		defaultQuality: 0.5,
	}
}
