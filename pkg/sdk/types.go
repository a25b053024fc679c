package evidex

import "time"

// Section names a target section of an education plan.
type Section string

// Canonical sections.
const (
	SectionPresentLevels       Section = "present_levels"
	SectionAnnualGoals         Section = "annual_goals"
	SectionShortTermObjectives Section = "short_term_objectives"
	SectionAccommodations      Section = "accommodations"
	SectionModifications       Section = "modifications"
	SectionServices            Section = "services"
	SectionPlacement           Section = "placement"
	SectionTransition          Section = "transition"
	SectionBehaviorSupport     Section = "behavior_support"
	SectionAssessmentResults   Section = "assessment_results"
	SectionProgressMonitoring  Section = "progress_monitoring"
	SectionParentConcerns      Section = "parent_concerns"
)

// IngestRequest is one plain-text document to add to the corpus.
type IngestRequest struct {
	// IDHint is an external id. "subject:<id>" also sets SubjectID.
	IDHint     string
	SourcePath string
	Text       string
	// CapturedAt dates the document when its text carries no date.
	CapturedAt time.Time
	SubjectID  string
}

// Document is a stored document record.
type Document struct {
	ID                       string
	ExternalID               string
	ContentHash              string
	SourcePath               string
	Filename                 string
	SubjectID                string
	DocumentType             string
	InstrumentSubtype        string
	ClassificationConfidence float64
	Quality                  Quality
	AuthoredAt               time.Time
	ProcessedAt              time.Time
	SchoolYear               string
	TotalChunks              int
	// Duplicate is set by Ingest when identical text was already stored.
	Duplicate bool
}

// Quality holds the four quality sub-scores and their weighted overall.
type Quality struct {
	Extraction   float64
	Density      float64
	Readability  float64
	Completeness float64
	Overall      float64
	Status       string // "validated", "unvalidated", "flagged", "error"
}

// SearchContext narrows and biases a search. The zero value searches the
// whole corpus with the client's default quality threshold.
type SearchContext struct {
	Section       Section
	DocumentTypes []string
	Instruments   []string
	// QualityThreshold overrides the client default when non-nil.
	QualityThreshold *float64
	DateFrom         time.Time
	DateTo           time.Time
	SubjectID        string
	MaxResults       int
	BoostRecent      bool
}

// Result is one ranked evidence chunk.
type Result struct {
	ChunkID         string
	ChunkIndex      int
	Content         string
	SimilarityScore float64
	RelevanceScore  float64
	QualityScore    float64
	FinalScore      float64
	Highlights      []string
	Explanation     string
	Source          Attribution
}

// Attribution names the document a result came from.
type Attribution struct {
	DocumentID   string
	Filename     string
	SourcePath   string
	DocumentType string
	AuthoredAt   time.Time
}

// SearchResponse is the outcome of Search. Degraded is set when some
// sub-queries failed and results come from the rest.
type SearchResponse struct {
	Results       []Result
	FailedQueries int
	Degraded      bool
}

// EvidenceSet holds results for every requested section, empty or not.
type EvidenceSet struct {
	Sections            map[Section][]Result
	QualityDistribution QualityDistribution
	CoveragePercentage  float64
	TotalChunks         int
	FailedQueries       int
	Degraded            bool
}

// QualityDistribution counts unique evidence chunks per quality band.
type QualityDistribution struct {
	High   int
	Medium int
	Low    int
}

// Stats summarizes the corpus.
type Stats struct {
	TotalChunks               int
	DocumentCount             int
	DocumentTypeHistogram     map[string]int
	ValidationStatusHistogram map[string]int
	SectionCoverage           map[string]int
	AverageQuality            float64
}

// IntegrityReport is the outcome of ValidateIntegrity.
type IntegrityReport struct {
	IsValid          bool
	Errors           []string
	Warnings         []string
	FieldsChecked    int
	FieldsPassed     int
	ChunksScanned    int
	DocumentsScanned int
}
