package chi

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

// Documents ingests, reads and deletes documents.
type Documents interface {
	Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
	Get(ctx context.Context, id string) (document.Metadata, error)
	Delete(ctx context.Context, id string) (int, error)
}

// Retriever answers searches and evidence requests.
type Retriever interface {
	Search(ctx context.Context, query string, rc request.Context) (retrievaluc.Response, error)
	RetrieveEvidence(ctx context.Context, sections []section.Name, rc request.Context) (evidence.Set, error)
}

// Validator scans the corpus for integrity violations.
type Validator interface {
	Validate(ctx context.Context, sample int) (report.Integrity, error)
}

// StatsComputer summarizes the corpus.
type StatsComputer interface {
	Compute(ctx context.Context) (report.Stats, error)
}

// HealthChecker probes the backing components.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
