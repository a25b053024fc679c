package classify

import (
	"testing"

	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/domain/document"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	lib, err := patterns.Default()
	if err != nil {
		t.Fatal(err)
	}
	return New(lib)
}

func TestClassify_WISCReport(t *testing.T) {
	c := newClassifier(t)
	got := c.Classify("Psychoeducational Evaluation. The WISC-V was administered. " +
		"Full Scale IQ standard score 95, 37th percentile.")

	if got.Type != document.TypeAssessmentReport {
		t.Errorf("Type = %q, want assessment-report", got.Type)
	}
	if got.Instrument != document.InstrumentWISCV {
		t.Errorf("Instrument = %q, want wisc_v", got.Instrument)
	}
	if got.Confidence <= 0 || got.Confidence > 1 {
		t.Errorf("Confidence = %v", got.Confidence)
	}
}

func TestClassify_Types(t *testing.T) {
	c := newClassifier(t)
	tests := []struct {
		name string
		text string
		want document.Type
	}{
		{"plan", "Individualized Education Program. Annual goals were set and the IEP team agreed on the least restrictive environment.", document.TypePlan},
		{"progress", "Quarterly progress report. During this reporting period the student is making adequate progress toward annual goals.", document.TypeProgressReport},
		{"behavior", "Functional Behavior Assessment. The target behavior follows a clear antecedent; a replacement behavior was identified.", document.TypeBehavioralAssessment},
		{"meeting", "Meeting notes. Attendees: teacher, parent. Action items were assigned and the next meeting is in May.", document.TypeMeetingNotes},
		{"evaluation", "Initial evaluation summary. The multidisciplinary team determined the student meets criteria for eligibility determination.", document.TypeEvaluation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text); got.Type != tt.want {
				t.Errorf("Type = %q, want %q", got.Type, tt.want)
			}
		})
	}
}

func TestClassify_FallbackOther(t *testing.T) {
	c := newClassifier(t)
	got := c.Classify("The cafeteria will serve pasta on Tuesday.")
	if got.Type != document.TypeOther {
		t.Errorf("Type = %q, want other", got.Type)
	}
	if got.Instrument != document.InstrumentNone {
		t.Errorf("Instrument = %q, want none", got.Instrument)
	}
	if got.Confidence != FallbackConfidence {
		t.Errorf("Confidence = %v, want floor %v", got.Confidence, FallbackConfidence)
	}

	if empty := c.Classify(""); empty.Type != document.TypeOther {
		t.Errorf("empty text Type = %q", empty.Type)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c := newClassifier(t)
	text := "IEP progress report with standard scores and annual goals."
	if c.Classify(text) != c.Classify(text) {
		t.Error("Classify is not deterministic")
	}
}

func TestClassify_TieGoesToFirstRule(t *testing.T) {
	lib, err := patterns.Parse([]byte(tieLibrary))
	if err != nil {
		t.Fatal(err)
	}
	got := New(lib).Classify("alpha beta")
	if got.Type != document.TypeProgressReport {
		t.Errorf("Type = %q, want the first listed type", got.Type)
	}
}

func TestConfidence(t *testing.T) {
	if c := confidence(5, 5); c != 1 {
		t.Errorf("confidence(5,5) = %v", c)
	}
	if c := confidence(1, 10); c < FallbackConfidence || c >= 0.5 {
		t.Errorf("confidence(1,10) = %v", c)
	}
	if confidence(2, 4) >= confidence(4, 4) {
		t.Error("more agreeing evidence should raise confidence")
	}
}

const tieLibrary = `
document_types:
  - name: progress-report
    patterns: ['alpha']
  - name: plan-document
    patterns: ['beta']
sections:
  present_levels: {search_terms: [a], threshold: 0.5, max_chunks: 1}
  annual_goals: {search_terms: [a], threshold: 0.5, max_chunks: 1}
  short_term_objectives: {search_terms: [a], threshold: 0.5, max_chunks: 1}
  accommodations: {search_terms: [a], threshold: 0.5, max_chunks: 1}
  modifications: {search_terms: [a], threshold: 0.5, max_chunks: 1}
  services: {search_terms: [a], threshold: 0.5, max_chunks: 1}
  placement: {search_terms: [a], threshold: 0.5, max_chunks: 1}
  transition: {search_terms: [a], threshold: 0.5, max_chunks: 1}
  behavior_support: {search_terms: [a], threshold: 0.5, max_chunks: 1}
  assessment_results: {search_terms: [a], threshold: 0.5, max_chunks: 1}
  progress_monitoring: {search_terms: [a], threshold: 0.5, max_chunks: 1}
  parent_concerns: {search_terms: [a], threshold: 0.5, max_chunks: 1}
`
