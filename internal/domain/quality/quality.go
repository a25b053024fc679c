package quality

import (
	"fmt"
	"math"
)

// Status is the validation verdict attached to quality metrics.
type Status string

// Validation statuses.
const (
	StatusValidated   Status = "validated"
	StatusUnvalidated Status = "unvalidated"
	StatusFlagged     Status = "flagged"
	StatusError       Status = "error"
)

// Status thresholds on overall quality.
const (
	ValidatedThreshold   = 0.7
	UnvalidatedThreshold = 0.4
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusValidated, StatusUnvalidated, StatusFlagged, StatusError:
		return true
	}
	return false
}

// Weights are the sub-score weights of overall quality.
type Weights struct {
	Extraction   float64 `yaml:"extraction"`
	Density      float64 `yaml:"density"`
	Readability  float64 `yaml:"readability"`
	Completeness float64 `yaml:"completeness"`
}

// DefaultWeights returns the hand-tuned 0.3/0.3/0.2/0.2 split.
func DefaultWeights() Weights {
	return Weights{Extraction: 0.3, Density: 0.3, Readability: 0.2, Completeness: 0.2}
}

// Validate checks that weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"extraction": w.Extraction, "density": w.Density,
		"readability": w.Readability, "completeness": w.Completeness,
	} {
		if v < 0 {
			return fmt.Errorf("quality weight %s must be non-negative, got %v", name, v)
		}
	}
	sum := w.Extraction + w.Density + w.Readability + w.Completeness
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("quality weights must sum to 1, got %v", sum)
	}
	return nil
}

// Metrics is a value object: overall quality is always derived from the sub-scores.
type Metrics struct {
	extraction   float64
	density      float64
	readability  float64
	completeness float64
	overall      float64
	status       Status
}

// New clamps the sub-scores to [0,1], derives overall with w and assigns a status.
func New(w Weights, extraction, density, readability, completeness float64) Metrics {
	m := Metrics{
		extraction:   Clamp(extraction),
		density:      Clamp(density),
		readability:  Clamp(readability),
		completeness: Clamp(completeness),
	}
	m.overall = m.weighted(w)
	m.status = StatusFor(m.overall)
	return m
}

// Empty returns all-zero metrics with the error status, used for blank input.
func Empty() Metrics {
	return Metrics{status: StatusError}
}

// Reconstruct hydrates metrics from storage. Overall is recomputed, never read.
func Reconstruct(w Weights, extraction, density, readability, completeness float64, status Status) Metrics {
	m := New(w, extraction, density, readability, completeness)
	if status.IsValid() {
		m.status = status
	}
	return m
}

// StatusFor maps an overall score to a status.
func StatusFor(overall float64) Status {
	switch {
	case overall >= ValidatedThreshold:
		return StatusValidated
	case overall >= UnvalidatedThreshold:
		return StatusUnvalidated
	default:
		return StatusFlagged
	}
}

// Extraction returns the extraction confidence sub-score.
func (m Metrics) Extraction() float64 { return m.extraction }

// Density returns the information density sub-score.
func (m Metrics) Density() float64 { return m.density }

// Readability returns the readability sub-score.
func (m Metrics) Readability() float64 { return m.readability }

// Completeness returns the completeness sub-score.
func (m Metrics) Completeness() float64 { return m.completeness }

// Overall returns the weighted overall quality.
func (m Metrics) Overall() float64 { return m.overall }

// Status returns the validation status.
func (m Metrics) Status() Status { return m.status }

// Band returns "high", "medium" or "low" for the overall score.
func (m Metrics) Band() string { return BandOf(m.overall) }

func (m Metrics) weighted(w Weights) float64 {
	return Clamp(w.Extraction*m.extraction +
		w.Density*m.density +
		w.Readability*m.readability +
		w.Completeness*m.completeness)
}

// BandOf classifies a quality score into the distribution buckets.
func BandOf(score float64) string {
	switch {
	case score >= 0.7:
		return "high"
	case score >= 0.4:
		return "medium"
	default:
		return "low"
	}
}

// Clamp limits v to [0,1]. NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
