package chi

import (
	"time"

	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
	"github.com/kailas-cloud/evidex/internal/domain/report"
	"github.com/kailas-cloud/evidex/internal/domain/search/request"
	"github.com/kailas-cloud/evidex/internal/domain/search/result"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// IngestRequest is the body of POST /documents.
type IngestRequest struct {
	IDHint     string     `json:"id_hint,omitempty"`
	SourcePath string     `json:"source_path"`
	Text       string     `json:"text"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
	SubjectID  string     `json:"subject_id,omitempty"`
}

// SearchContext is the wire form of request.Params.
type SearchContext struct {
	Section          string     `json:"section,omitempty"`
	DocumentTypes    []string   `json:"document_types,omitempty"`
	Instruments      []string   `json:"instruments,omitempty"`
	QualityThreshold *float64   `json:"quality_threshold,omitempty"`
	DateFrom         *time.Time `json:"date_from,omitempty"`
	DateTo           *time.Time `json:"date_to,omitempty"`
	SubjectID        string     `json:"subject_id,omitempty"`
	MaxResults       int        `json:"max_results,omitempty"`
	BoostRecent      bool       `json:"boost_recent,omitempty"`
}

func (c SearchContext) params(defaultQuality *float64) request.Params {
	p := request.Params{
		Section:          c.Section,
		DocumentTypes:    c.DocumentTypes,
		Instruments:      c.Instruments,
		QualityThreshold: c.QualityThreshold,
		SubjectID:        c.SubjectID,
		MaxResults:       c.MaxResults,
		BoostRecent:      c.BoostRecent,
	}
	if p.QualityThreshold == nil {
		p.QualityThreshold = defaultQuality
	}
	if c.DateFrom != nil {
		p.DateFrom = *c.DateFrom
	}
	if c.DateTo != nil {
		p.DateTo = *c.DateTo
	}
	return p
}

// SearchRequest is the body of POST /search. NResults overrides
// Context.MaxResults when set.
type SearchRequest struct {
	Query    string        `json:"query"`
	Context  SearchContext `json:"context"`
	NResults int           `json:"n_results,omitempty"`
}

// EvidenceRequest is the body of POST /evidence.
type EvidenceRequest struct {
	Sections []string      `json:"sections"`
	Context  SearchContext `json:"context"`
}

// DocumentResponse describes a stored document.
type DocumentResponse struct {
	ID                       string    `json:"id"`
	ExternalID               string    `json:"external_id,omitempty"`
	ContentHash              string    `json:"content_hash"`
	SourcePath               string    `json:"source_path"`
	Filename                 string    `json:"filename"`
	SubjectID                string    `json:"subject_id,omitempty"`
	DocumentType             string    `json:"document_type"`
	InstrumentSubtype        string    `json:"instrument_subtype,omitempty"`
	ClassificationConfidence float64   `json:"classification_confidence"`
	Quality                  Quality   `json:"quality"`
	AuthoredAt               time.Time `json:"authored_at"`
	ProcessedAt              time.Time `json:"processed_at"`
	SchoolYear               string    `json:"school_year"`
	TotalChunks              int       `json:"total_chunks"`
	Duplicate                bool      `json:"duplicate,omitempty"`
}

// Quality carries the four sub-scores and their weighted overall.
type Quality struct {
	Extraction   float64 `json:"extraction_confidence"`
	Density      float64 `json:"information_density"`
	Readability  float64 `json:"readability"`
	Completeness float64 `json:"completeness"`
	Overall      float64 `json:"overall_quality"`
	Status       string  `json:"validation_status"`
}

// DocumentToDTO renders a document record.
func DocumentToDTO(d document.Metadata) DocumentResponse {
	return DocumentResponse{
		ID:                       d.ID,
		ExternalID:               d.ExternalID,
		ContentHash:              d.ContentHash,
		SourcePath:               d.SourcePath,
		Filename:                 d.Filename,
		SubjectID:                d.SubjectID,
		DocumentType:             string(d.Classification.Type),
		InstrumentSubtype:        string(d.Classification.Instrument),
		ClassificationConfidence: d.Classification.Confidence,
		Quality: Quality{
			Extraction:   d.Quality.Extraction(),
			Density:      d.Quality.Density(),
			Readability:  d.Quality.Readability(),
			Completeness: d.Quality.Completeness(),
			Overall:      d.Quality.Overall(),
			Status:       string(d.Quality.Status()),
		},
		AuthoredAt:  d.Temporal.AuthoredAt,
		ProcessedAt: d.Temporal.ProcessedAt,
		SchoolYear:  d.Temporal.SchoolYear,
		TotalChunks: d.TotalChunks,
	}
}

// DeleteResponse reports how many chunks a delete removed.
type DeleteResponse struct {
	ID            string `json:"id"`
	DeletedChunks int    `json:"deleted_chunks"`
}

// SearchResult is one ranked evidence item.
type SearchResult struct {
	ChunkID              string      `json:"chunk_id"`
	ChunkIndex           int         `json:"chunk_index"`
	Content              string      `json:"content"`
	SimilarityScore      float64     `json:"similarity_score"`
	RelevanceScore       float64     `json:"relevance_score"`
	QualityScore         float64     `json:"quality_score"`
	FinalScore           float64     `json:"final_score"`
	MatchHighlights      []string    `json:"match_highlights"`
	RelevanceExplanation string      `json:"relevance_explanation"`
	SourceAttribution    Attribution `json:"source_attribution"`
}

// Attribution names the source of a result.
type Attribution struct {
	DocumentID   string     `json:"document_id"`
	Filename     string     `json:"filename"`
	SourcePath   string     `json:"source_path"`
	DocumentType string     `json:"document_type"`
	AuthoredAt   *time.Time `json:"authored_at,omitempty"`
}

// ResultsToDTO renders ranked results; highlights are never null.
func ResultsToDTO(rs []result.Result) []SearchResult {
	out := make([]SearchResult, len(rs))
	for i := range rs {
		r := &rs[i]
		a := r.Attribution()
		item := SearchResult{
			ChunkID:              r.ChunkID(),
			ChunkIndex:           r.ChunkIndex(),
			Content:              r.Content(),
			SimilarityScore:      r.SimilarityScore(),
			RelevanceScore:       r.RelevanceScore(),
			QualityScore:         r.QualityScore(),
			FinalScore:           r.FinalScore(),
			MatchHighlights:      r.Highlights(),
			RelevanceExplanation: r.Explanation(),
			SourceAttribution: Attribution{
				DocumentID:   a.DocumentID,
				Filename:     a.Filename,
				SourcePath:   a.SourcePath,
				DocumentType: a.DocumentType,
			},
		}
		if item.MatchHighlights == nil {
			item.MatchHighlights = []string{}
		}
		if !a.AuthoredAt.IsZero() {
			t := a.AuthoredAt.UTC()
			item.SourceAttribution.AuthoredAt = &t
		}
		out[i] = item
	}
	return out
}

// SearchResponse is the reply of POST /search.
type SearchResponse struct {
	Results       []SearchResult `json:"results"`
	FailedQueries int            `json:"failed_queries"`
	Degraded      bool           `json:"degraded"`
}

// EvidenceResponse is the reply of POST /evidence.
type EvidenceResponse struct {
	Sections            map[string][]SearchResult `json:"sections"`
	QualityDistribution QualityDistribution       `json:"quality_distribution"`
	CoveragePercentage  float64                   `json:"coverage_percentage"`
	TotalChunks         int                       `json:"total_chunks"`
	FailedQueries       int                       `json:"failed_queries"`
	Degraded            bool                      `json:"degraded"`
}

// QualityDistribution counts unique evidence chunks per quality band.
type QualityDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// EvidenceToDTO renders an evidence set keyed by section name.
func EvidenceToDTO(s evidence.Set) EvidenceResponse {
	sections := make(map[string][]SearchResult, len(s.Sections))
	for n, rs := range s.Sections {
		sections[string(n)] = ResultsToDTO(rs)
	}
	return EvidenceResponse{
		Sections: sections,
		QualityDistribution: QualityDistribution{
			High:   s.Distribution.High,
			Medium: s.Distribution.Medium,
			Low:    s.Distribution.Low,
		},
		CoveragePercentage: s.Coverage,
		TotalChunks:        s.TotalChunks,
		FailedQueries:      s.FailedQueries,
		Degraded:           s.Degraded,
	}
}

// StatsResponse is the reply of GET /stats.
type StatsResponse struct {
	TotalChunks               int            `json:"total_chunks"`
	DocumentCount             int            `json:"document_count"`
	DocumentTypeHistogram     map[string]int `json:"document_type_histogram"`
	ValidationStatusHistogram map[string]int `json:"validation_status_histogram"`
	SectionCoverage           map[string]int `json:"section_coverage"`
	AverageQuality            float64        `json:"average_quality"`
}

// StatsToDTO renders corpus statistics.
func StatsToDTO(s report.Stats) StatsResponse {
	return StatsResponse{
		TotalChunks:               s.TotalChunks,
		DocumentCount:             s.DocumentCount,
		DocumentTypeHistogram:     s.TypeHistogram,
		ValidationStatusHistogram: s.StatusHistogram,
		SectionCoverage:           s.SectionCoverage,
		AverageQuality:            s.AverageQuality,
	}
}

// IntegrityResponse is the reply of GET /integrity.
type IntegrityResponse struct {
	IsValid       bool     `json:"is_valid"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	FieldsChecked int      `json:"fields_checked"`
	FieldsPassed  int      `json:"fields_passed"`
	ChunksScanned int      `json:"chunks_scanned"`
	DocsScanned   int      `json:"documents_scanned"`
}

// IntegrityToDTO renders an integrity report with non-null lists.
func IntegrityToDTO(r report.Integrity) IntegrityResponse {
	out := IntegrityResponse{
		IsValid:       r.IsValid,
		Errors:        r.Errors,
		Warnings:      r.Warnings,
		FieldsChecked: r.FieldsChecked,
		FieldsPassed:  r.FieldsPassed,
		ChunksScanned: r.ChunksScanned,
		DocsScanned:   r.DocsScanned,
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return out
}

// HealthResponse is the reply of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SectionResponse describes one section's retrieval strategy.
type SectionResponse struct {
	Name           string   `json:"name"`
	SearchTerms    []string `json:"search_terms"`
	PreferredTypes []string `json:"preferred_types"`
	Threshold      float64  `json:"relevance_threshold"`
	MaxChunks      int      `json:"max_chunks"`
}

// SectionsToDTO lists the strategy of every canonical section in order.
func SectionsToDTO(lib *patterns.Library) []SectionResponse {
	out := make([]SectionResponse, 0, len(section.All()))
	for _, n := range section.All() {
		st, ok := lib.Strategy(n)
		if !ok {
			continue
		}
		types := make([]string, len(st.PreferredTypes))
		for i, t := range st.PreferredTypes {
			types[i] = string(t)
		}
		out = append(out, SectionResponse{
			Name:           string(n),
			SearchTerms:    st.SearchTerms,
			PreferredTypes: types,
			Threshold:      st.Threshold,
			MaxChunks:      st.MaxChunks,
		})
	}
	return out
}
