package retrieval

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/analysis/textutil"
	"github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/domain/search/request"
	"github.com/kailas-cloud/evidex/internal/domain/search/result"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

// Boosts are the additive parts of the relevance score.
type Boosts struct {
	Base         float64
	Section      float64
	DocumentType float64
	Recency      float64
	Subject      float64
}

// DefaultBoosts returns 0.5 base, up to 0.3 section, 0.2 type, under 0.1
// recency and 0.15 subject.
func DefaultBoosts() Boosts {
	return Boosts{Base: 0.5, Section: 0.3, DocumentType: 0.2, Recency: 0.09, Subject: 0.15}
}

const maxHighlights = 3

// scorer evaluates one retrieval context against index hits. It holds no
// mutable state.
type scorer struct {
	boosts   Boosts
	weights  result.Weights
	window   time.Duration
	now      time.Time
	rc       request.Context
	target   section.Name
	strategy patterns.Strategy
	terms    []string
	lib      *patterns.Library
}

// relevance returns the capped relevance score and the boosts that fired.
func (s *scorer) relevance(r metadata.Record) (float64, []string) {
	score := s.boosts.Base
	var fired []string

	if s.target != "" {
		if v := r.Float(s.target.Field()); v > 0 {
			score += s.boosts.Section * v
			fired = append(fired, fmt.Sprintf("%s relevance %.2f", s.target, v))
		}
	}

	t := document.Type(r[metadata.FieldDocumentType])
	if s.typeAllowed(t) {
		score += s.boosts.DocumentType
		fired = append(fired, "document type "+string(t))
	}

	if s.rc.BoostRecent() && s.window > 0 {
		age := s.now.Sub(r.Time(metadata.FieldAuthoredAt))
		if age >= 0 && age < s.window {
			score += s.boosts.Recency * (1 - float64(age)/float64(s.window))
			fired = append(fired, "recent")
		}
	}

	if subj := s.rc.SubjectID(); subj != "" && r[metadata.FieldSubjectID] == subj {
		score += s.boosts.Subject
		fired = append(fired, "subject match")
	}

	return quality.Clamp(score), fired
}

// typeAllowed applies the caller's explicit type restriction when there is
// one, otherwise the section strategy's preferred types.
func (s *scorer) typeAllowed(t document.Type) bool {
	if len(s.rc.DocumentTypes()) > 0 {
		return s.rc.AllowsType(t)
	}
	return s.target != "" && s.strategy.Prefers(t)
}

// threshold is the minimum relevance for the target section, 0 without one.
func (s *scorer) threshold() float64 {
	if s.target == "" {
		return 0
	}
	return s.strategy.Threshold
}

// result scores a hit. ok is false when the hit falls below a threshold.
func (s *scorer) result(h corpus.Hit) (result.Result, bool) {
	r := h.Record
	q := r.Float(metadata.FieldQuality)
	if q < s.rc.QualityThreshold() {
		return result.Result{}, false
	}
	rel, fired := s.relevance(r)
	if rel < s.threshold() {
		return result.Result{}, false
	}

	content := r[metadata.FieldContent]
	return result.New(result.Params{
		ChunkID:     r[metadata.FieldChunkID],
		ChunkIndex:  r.Int(metadata.FieldChunkIndex),
		Content:     content,
		Similarity:  quality.Clamp(h.Similarity),
		Relevance:   rel,
		Quality:     q,
		Highlights:  s.highlights(content),
		Explanation: strings.Join(fired, "; "),
		Attribution: result.Attribution{
			DocumentID:   r[metadata.FieldDocumentID],
			Filename:     r[metadata.FieldFilename],
			SourcePath:   r[metadata.FieldSourcePath],
			DocumentType: r[metadata.FieldDocumentType],
			AuthoredAt:   r.Time(metadata.FieldAuthoredAt),
		},
	}, s.weights), true
}

// highlights returns up to three sentences mentioning a query term or a
// keyword of the target section.
func (s *scorer) highlights(content string) []string {
	var out []string
	for _, sent := range textutil.Sentences(content) {
		if len(out) == maxHighlights {
			break
		}
		if s.mentions(sent) {
			out = append(out, sent)
		}
	}
	return out
}

func (s *scorer) mentions(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, t := range s.terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	if s.target != "" {
		if sec, ok := s.lib.Sections[s.target]; ok && patterns.CountAll(sec.Keywords, sentence) > 0 {
			return true
		}
	}
	return false
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "are": true, "was": true, "his": true, "her": true,
}

// queryTerms collects the informative words of every variant.
func queryTerms(variants []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range variants {
		for _, t := range textutil.Terms(v) {
			if len(t) < 3 || stopwords[t] || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
