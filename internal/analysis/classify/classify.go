// Package classify assigns a document type and instrument subtype by counting
// pattern-library matches.
package classify

import (
	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/domain/document"
)

// Confidence shaping.
const (
	// FallbackConfidence is reported when no pattern matched.
	FallbackConfidence = 0.1
	// Matches at which the absolute-evidence term saturates.
	saturationHits = 5
)

// Classifier is pure and deterministic for a given library.
type Classifier struct {
	lib *patterns.Library
}

// New creates a Classifier.
func New(lib *patterns.Library) *Classifier {
	return &Classifier{lib: lib}
}

// Classify returns the best document type, the best instrument (none when no
// instrument pattern matched) and a confidence in [0,1]. Ties go to the
// candidate listed first in the library.
func (c *Classifier) Classify(text string) document.Classification {
	typeName, typeHits, typeTotal := argmax(c.lib.Types, text)
	instName, _, _ := argmax(c.lib.Instruments, text)

	out := document.Classification{
		Type:       document.TypeOther,
		Instrument: document.Instrument(instName),
		Confidence: FallbackConfidence,
	}
	if typeHits == 0 {
		return out
	}

	out.Type = document.Type(typeName)
	out.Confidence = confidence(typeHits, typeTotal)
	return out
}

func argmax(rules []patterns.Rule, text string) (name string, best, total int) {
	for _, r := range rules {
		n := r.Count(text)
		total += n
		if n > best {
			best = n
			name = r.Name
		}
	}
	return name, best, total
}

// confidence blends the winner's share of all matches with how much evidence
// there is at all. Never below the fallback floor.
func confidence(hits, total int) float64 {
	share := float64(hits) / float64(total)
	volume := min(float64(hits)/saturationHits, 1)
	return max(FallbackConfidence, min(1, 0.6*share+0.4*volume))
}
