package section

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/evidex/internal/domain"
)

// Name is one of the canonical target sections retrieval can support.
type Name string

// Canonical sections.
const (
	PresentLevels       Name = "present_levels"
	AnnualGoals         Name = "annual_goals"
	ShortTermObjectives Name = "short_term_objectives"
	Accommodations      Name = "accommodations"
	Modifications       Name = "modifications"
	Services            Name = "services"
	Placement           Name = "placement"
	Transition          Name = "transition"
	BehaviorSupport     Name = "behavior_support"
	AssessmentResults   Name = "assessment_results"
	ProgressMonitoring  Name = "progress_monitoring"
	ParentConcerns      Name = "parent_concerns"
)

// RelevancePrefix prefixes the flat metadata field of each relevance component.
const RelevancePrefix = "rel_"

var all = []Name{
	PresentLevels, AnnualGoals, ShortTermObjectives, Accommodations,
	Modifications, Services, Placement, Transition,
	BehaviorSupport, AssessmentResults, ProgressMonitoring, ParentConcerns,
}

// All returns the canonical sections in order.
func All() []Name {
	out := make([]Name, len(all))
	copy(out, all)
	return out
}

// IsValid reports whether n is a canonical section.
func (n Name) IsValid() bool {
	for _, v := range all {
		if v == n {
			return true
		}
	}
	return false
}

// Field returns the flat metadata key holding this section's relevance.
func (n Name) Field() string { return RelevancePrefix + string(n) }

// Parse normalizes "Present Levels", "present-levels" and "present_levels".
func Parse(s string) (Name, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	n := Name(norm)
	if !n.IsValid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownSection, s)
	}
	return n, nil
}

// ParseAll parses a list of names, dropping duplicates and keeping order.
func ParseAll(names []string) ([]Name, error) {
	out := make([]Name, 0, len(names))
	seen := make(map[Name]bool, len(names))
	for _, s := range names {
		n, err := Parse(s)
		if err != nil {
			return nil, err
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}

// Relevance is the per-section relevance vector of a chunk.
// Missing components read as 0.
type Relevance map[Name]float64

// NewRelevance returns a vector with every canonical section set to 0.
func NewRelevance() Relevance {
	r := make(Relevance, len(all))
	for _, n := range all {
		r[n] = 0
	}
	return r
}

// Get returns the component for n.
func (r Relevance) Get(n Name) float64 { return r[n] }

// Matched returns the sections with a positive component, in canonical order.
func (r Relevance) Matched() []Name {
	var out []Name
	for _, n := range all {
		if r[n] > 0 {
			out = append(out, n)
		}
	}
	return out
}
