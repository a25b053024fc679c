package evidence

import (
	"testing"

	"github.com/kailas-cloud/evidex/internal/domain/search/result"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

func item(id string, q float64) result.Result {
	return result.New(result.Params{ChunkID: id, Quality: q}, result.DefaultWeights())
}

func TestAggregate_CoverageFiveSectionsTwoCovered(t *testing.T) {
	requested := []section.Name{
		section.PresentLevels, section.AnnualGoals, section.Accommodations,
		section.Services, section.Placement,
	}
	by := map[section.Name][]result.Result{
		section.AnnualGoals:    {item("c1", 0.8)},
		section.Accommodations: {item("c2", 0.5)},
	}

	s := Aggregate(requested, by, 0)
	if s.Coverage != 40.0 {
		t.Errorf("Coverage = %v, want 40", s.Coverage)
	}
	if len(s.Sections) != 5 {
		t.Errorf("expected every requested section keyed, got %d", len(s.Sections))
	}
	if s.Sections[section.Placement] == nil {
		t.Error("uncovered section should map to an empty list")
	}
	if s.Degraded {
		t.Error("Degraded without failures")
	}
}

func TestAggregate_DistributionCountsUniqueChunks(t *testing.T) {
	requested := []section.Name{section.AnnualGoals, section.ShortTermObjectives}
	shared := item("c1", 0.9)
	by := map[section.Name][]result.Result{
		section.AnnualGoals:         {shared, item("c2", 0.55), item("c3", 0.1)},
		section.ShortTermObjectives: {shared},
	}

	s := Aggregate(requested, by, 2)
	if s.Distribution != (Distribution{High: 1, Medium: 1, Low: 1}) {
		t.Errorf("Distribution = %+v", s.Distribution)
	}
	if s.TotalChunks != 3 {
		t.Errorf("TotalChunks = %d, want 3", s.TotalChunks)
	}
	if len(s.Sections[section.ShortTermObjectives]) != 1 {
		t.Error("shared chunk removed from second section")
	}
	if !s.Degraded || s.FailedQueries != 2 {
		t.Errorf("degraded signal = %v/%d", s.Degraded, s.FailedQueries)
	}
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, nil, 0)
	if s.Coverage != 0 || s.TotalChunks != 0 {
		t.Errorf("unexpected empty aggregate: %+v", s)
	}
	if Coverage(0, 3) != 0 {
		t.Error("Coverage(0,3) != 0")
	}
}
