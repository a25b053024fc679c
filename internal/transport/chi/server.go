package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/search/request"
	"github.com/kailas-cloud/evidex/internal/domain/section"
	healthuc "github.com/kailas-cloud/evidex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/evidex/internal/usecase/ingest"
)

// Server serves the evidence API.
type Server struct {
	documents      Documents
	retriever      Retriever
	validator      Validator
	stats          StatsComputer
	health         HealthChecker
	lib            *patterns.Library
	defaultQuality float64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// Deps groups the services behind the API.
type Deps struct {
	Documents Documents
	Retriever Retriever
	Validator Validator
	Stats     StatsComputer
	Health    HealthChecker
	Library   *patterns.Library
	// DefaultQualityThreshold applies when a request omits quality_threshold.
	DefaultQualityThreshold float64
}

// NewServer creates an HTTP API server.
func NewServer(d Deps, logger *zap.Logger) *Server {
	q := d.DefaultQualityThreshold
	if q <= 0 {
		q = request.DefaultQualityThreshold
	}
	return &Server{
		documents:      d.Documents,
		retriever:      d.Retriever,
		validator:      d.Validator,
		stats:          d.Stats,
		health:         d.Health,
		lib:            d.Library,
		defaultQuality: q,
		logger:         logger,
		errorHandlers:  defaultErrorHandlers(),
	}
}

// IngestDocument handles POST /documents.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := ingestuc.Request{
		IDHint:     req.IDHint,
		SourcePath: req.SourcePath,
		Text:       req.Text,
		SubjectID:  req.SubjectID,
	}
	if req.CapturedAt != nil {
		in.CapturedAt = *req.CapturedAt
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.documents.Ingest(ctx, in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	body := DocumentToDTO(res.Document)
	body.Duplicate = res.Duplicate
	status := http.StatusOK
	if !res.Duplicate {
		status = http.StatusCreated
		w.Header().Set("Location", fmt.Sprintf("/documents/%s", res.Document.ID))
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, status, body)
}

// GetDocument handles GET /documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentToDTO(doc))
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := s.documents.Delete(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{ID: id, DeletedChunks: n})
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.NResults > 0 {
		req.Context.MaxResults = req.NResults
	}

	rc, err := request.New(req.Context.params(&s.defaultQuality))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.retriever.Search(ctx, req.Query, rc)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{
		Results:       ResultsToDTO(resp.Results),
		FailedQueries: resp.FailedQueries,
		Degraded:      resp.Degraded,
	})
}

// RetrieveEvidence handles POST /evidence.
func (s *Server) RetrieveEvidence(w http.ResponseWriter, r *http.Request) {
	var req EvidenceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sections, err := section.ParseAll(req.Sections)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	rc, err := request.New(req.Context.params(&s.defaultQuality))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	set, err := s.retriever.RetrieveEvidence(ctx, sections, rc)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, EvidenceToDTO(set))
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats.Compute(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsToDTO(st))
}

// Integrity handles GET /integrity. The optional sample query parameter
// bounds the scan to the first N chunks.
func (s *Server) Integrity(w http.ResponseWriter, r *http.Request) {
	sample := 0
	if v := r.URL.Query().Get("sample"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "sample must be a non-negative integer")
			return
		}
		sample = n
	}

	rep, err := s.validator.Validate(r.Context(), sample)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, IntegrityToDTO(rep))
}

// Sections handles GET /sections.
func (s *Server) Sections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SectionsToDTO(s.lib))
}

// HealthCheck handles GET /health. Degraded still answers 200 since
// retrieval keeps working.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}
