package report

import "fmt"

// Integrity is the outcome of a corpus integrity scan. Findings are reported,
// never corrected.
type Integrity struct {
	IsValid       bool
	Errors        []string
	Warnings      []string
	FieldsChecked int
	FieldsPassed  int
	ChunksScanned int
	DocsScanned   int
}

// Errorf records an error finding.
func (r *Integrity) Errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Warnf records a warning finding.
func (r *Integrity) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Check counts one field check and records an error when it failed.
func (r *Integrity) Check(ok bool, format string, args ...any) {
	r.FieldsChecked++
	if ok {
		r.FieldsPassed++
		return
	}
	r.Errorf(format, args...)
}

// Finish sets IsValid from the collected errors.
func (r *Integrity) Finish() {
	r.IsValid = len(r.Errors) == 0
}

// Stats summarizes the corpus.
type Stats struct {
	TotalChunks     int
	DocumentCount   int
	TypeHistogram   map[string]int
	StatusHistogram map[string]int
	SectionCoverage map[string]int
	AverageQuality  float64
}
