package evidence

import (
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/domain/search/result"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

// Distribution counts unique evidence chunks per quality band.
type Distribution struct {
	High   int
	Medium int
	Low    int
}

// Set is the evidence gathered for several target sections.
type Set struct {
	Sections      map[section.Name][]result.Result
	Requested     []section.Name
	Distribution  Distribution
	Coverage      float64 // percent of requested sections with at least one result
	TotalChunks   int     // unique chunk ids across sections
	FailedQueries int
	Degraded      bool
}

// Aggregate builds a Set from per-section results. A chunk supporting two
// sections appears in both lists but is counted once in the distribution.
func Aggregate(requested []section.Name, bySection map[section.Name][]result.Result, failedQueries int) Set {
	s := Set{
		Sections:      make(map[section.Name][]result.Result, len(requested)),
		Requested:     requested,
		FailedQueries: failedQueries,
		Degraded:      failedQueries > 0,
	}

	seen := make(map[string]bool)
	covered := 0
	for _, n := range requested {
		items := bySection[n]
		if items == nil {
			items = []result.Result{}
		}
		s.Sections[n] = items
		if len(items) > 0 {
			covered++
		}
		for i := range items {
			id := items[i].ChunkID()
			if seen[id] {
				continue
			}
			seen[id] = true
			switch quality.BandOf(items[i].QualityScore()) {
			case "high":
				s.Distribution.High++
			case "medium":
				s.Distribution.Medium++
			default:
				s.Distribution.Low++
			}
		}
	}

	s.TotalChunks = len(seen)
	s.Coverage = Coverage(covered, len(requested))
	return s
}

// Coverage returns covered/total as a percentage, 0 when total is 0.
func Coverage(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(covered) * 100 / float64(total)
}
