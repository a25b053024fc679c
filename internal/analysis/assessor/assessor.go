// Package assessor scores a block of text on four quality dimensions.
// All functions are pure and never fail: blank input scores zero everywhere.
package assessor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/analysis/textutil"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
)

// Tuning constants of the heuristics.
const (
	minSentenceWords = 10
	maxSentenceWords = 25

	// Upper-case letters as a share of all letters in ordinary prose.
	capsLow  = 0.01
	capsHigh = 0.15

	// Domain terms per word at which density saturates.
	densitySaturation = 0.15
	// Professional terms per sentence at which register saturates.
	registerSaturation = 0.5
	// Distinct section markers and quantitative markers for full completeness.
	markerSaturation       = 4
	quantitativeSaturation = 3
)

var (
	// Runs of symbols or vowel-less letter soup typical of bad OCR.
	symbolRunRe  = regexp.MustCompile(`[^\p{L}\p{N}\s.,;:!?'"()\-/%]{3,}`)
	consonantsRe = regexp.MustCompile(`(?i)\b[bcdfghjklmnpqrstvwxz]{6,}\b`)
)

// Assessor computes quality metrics with a fixed pattern library and weights.
type Assessor struct {
	lib     *patterns.Library
	weights quality.Weights
}

// New creates an Assessor.
func New(lib *patterns.Library, w quality.Weights) *Assessor {
	return &Assessor{lib: lib, weights: w}
}

// Weights returns the overall quality weights.
func (a *Assessor) Weights() quality.Weights { return a.weights }

// Assess scores text.
func (a *Assessor) Assess(text string) quality.Metrics {
	text = strings.TrimSpace(text)
	words := textutil.Words(text)
	if len(words) == 0 {
		return quality.Empty()
	}
	sentences := textutil.Sentences(text)

	return quality.New(a.weights,
		extraction(text, words, sentences),
		a.density(text, len(words)),
		a.readability(text, sentences),
		a.completeness(text),
	)
}

// extraction rewards well-formed sentences and ordinary capitalization, and
// penalizes garbled runs.
func extraction(text string, words, sentences []string) float64 {
	wellFormed := 0
	for _, s := range sentences {
		if isWellFormed(s) {
			wellFormed++
		}
	}
	formScore := float64(wellFormed) / float64(max(len(sentences), 1))

	letters, upper := textutil.LetterStats(text)
	capsScore := 0.0
	if letters > 0 {
		ratio := float64(upper) / float64(letters)
		switch {
		case ratio < capsLow:
			capsScore = ratio / capsLow
		case ratio <= capsHigh:
			capsScore = 1
		default:
			capsScore = 1 - (ratio-capsHigh)/(1-capsHigh)
		}
	}

	garbled := len(symbolRunRe.FindAllStringIndex(text, -1)) + len(consonantsRe.FindAllStringIndex(text, -1))
	penalty := quality.Clamp(float64(garbled) * 5 / float64(len(words)))

	return quality.Clamp(0.5*formScore + 0.3*capsScore + 0.2*(1-penalty))
}

func isWellFormed(s string) bool {
	first, _ := utf8.DecodeRuneInString(s)
	if !unicode.IsUpper(first) && !unicode.IsDigit(first) {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(s)
	if last != '.' && last != '!' && last != '?' {
		return false
	}
	return len(textutil.Words(s)) >= 3
}

// density rewards domain vocabulary per word.
func (a *Assessor) density(text string, words int) float64 {
	hits := patterns.CountAll(a.lib.DomainTerms, text)
	return quality.Clamp(float64(hits) / float64(words) / densitySaturation)
}

// readability rewards sentence lengths in the 10-25 word band and a
// professional register.
func (a *Assessor) readability(text string, sentences []string) float64 {
	if len(sentences) == 0 {
		return 0
	}
	band := 0.0
	for _, s := range sentences {
		n := len(textutil.Words(s))
		switch {
		case n >= minSentenceWords && n <= maxSentenceWords:
			band++
		case n >= minSentenceWords/2 && n <= maxSentenceWords+10:
			band += 0.5
		}
	}
	band /= float64(len(sentences))

	register := quality.Clamp(float64(patterns.CountAll(a.lib.ProfessionalTerms, text)) /
		(registerSaturation * float64(len(sentences))))

	return quality.Clamp(0.7*band + 0.3*register)
}

// completeness rewards structural section markers and quantitative markers.
func (a *Assessor) completeness(text string) float64 {
	markers := quality.Clamp(float64(patterns.CountDistinct(a.lib.SectionMarkers, text)) / markerSaturation)
	quant := quality.Clamp(float64(patterns.CountDistinct(a.lib.Quantitative, text)) / quantitativeSaturation)
	return quality.Clamp(0.6*markers + 0.4*quant)
}
