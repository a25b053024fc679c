// Package chunkmeta derives per-chunk metadata: semantic tags, the section
// relevance vector, inherited temporal data and relationship stubs.
package chunkmeta

import (
	"sort"

	"github.com/kailas-cloud/evidex/internal/analysis/assessor"
	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/analysis/textutil"
	"github.com/kailas-cloud/evidex/internal/domain/chunk"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

// Scoring constants.
const (
	keywordWeight    = 0.2
	patternWeight    = 0.3
	preferredBonus   = 0.1
	dataDigitRatio   = 0.08
	maxDomainTags    = 5
	defaultTopicName = "general"
)

// Builder computes chunk metadata from a fixed pattern library.
type Builder struct {
	lib      *patterns.Library
	assessor *assessor.Assessor
}

// New creates a Builder.
func New(lib *patterns.Library, a *assessor.Assessor) *Builder {
	return &Builder{lib: lib, assessor: a}
}

// Build produces the metadata of one chunk. Sequence links are left empty;
// BuildAll sets them once the whole document is assembled.
func (b *Builder) Build(doc document.Metadata, index, total int, text string) chunk.Chunk {
	return chunk.Chunk{
		ID:                       chunk.ID(doc.ID, index),
		DocumentID:               doc.ID,
		Index:                    index,
		Total:                    total,
		Content:                  text,
		DocumentType:             doc.Classification.Type,
		Instrument:               doc.Classification.Instrument,
		ClassificationConfidence: doc.Classification.Confidence,
		Quality:                  b.assessor.Assess(text),
		Tags:                     b.Tags(text),
		Relevance:                b.Relevance(text, doc.Classification.Type),
		Temporal:                 doc.Temporal,
		Relationships:            chunk.Relationships{SubjectID: doc.SubjectID},
		SourcePath:               doc.SourcePath,
		Filename:                 doc.Filename,
	}
}

// BuildAll builds every chunk of a document in order and links neighbors.
func (b *Builder) BuildAll(doc document.Metadata, texts []string) []chunk.Chunk {
	out := make([]chunk.Chunk, len(texts))
	for i, t := range texts {
		out[i] = b.Build(doc, i, len(texts), t)
	}
	chunk.Link(out)
	return out
}

// Relevance scores every canonical section independently. A section with no
// keyword or pattern hit stays at 0; that chunk remains valid.
func (b *Builder) Relevance(text string, docType document.Type) section.Relevance {
	rel := section.NewRelevance()
	for _, n := range section.All() {
		s, ok := b.lib.Sections[n]
		if !ok {
			continue
		}
		kw := patterns.CountAll(s.Keywords, text)
		pat := patterns.CountAll(s.Patterns, text)
		score := quality.Clamp(keywordWeight*float64(kw) + patternWeight*float64(pat))
		if score > 0 && s.Strategy.Prefers(docType) {
			score = quality.Clamp(score + preferredBonus)
		}
		rel[n] = score
	}
	return rel
}

// Tags extracts the primary topic, content type and domain tags.
func (b *Builder) Tags(text string) chunk.SemanticTags {
	type hit struct {
		name  string
		count int
		order int
	}
	var hits []hit
	for i, t := range b.lib.Topics {
		if n := patterns.CountAll(t.Keywords, text); n > 0 {
			hits = append(hits, hit{name: t.Name, count: n, order: i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].order < hits[j].order
	})

	tags := chunk.SemanticTags{
		PrimaryTopic: defaultTopicName,
		ContentType:  b.ContentType(text),
	}
	if len(hits) > 0 {
		tags.PrimaryTopic = hits[0].name
	}
	for i := 0; i < len(hits) && i < maxDomainTags; i++ {
		tags.DomainTags = append(tags.DomainTags, hits[i].name)
	}
	return tags
}

// ContentType picks the content rule with the most matches, first listed on a
// tie. Unmatched digit-heavy text is data, everything else narrative.
func (b *Builder) ContentType(text string) chunk.ContentType {
	best, bestName := 0, ""
	for _, r := range b.lib.ContentTypes {
		if n := r.Count(text); n > best {
			best, bestName = n, r.Name
		}
	}
	if best > 0 {
		return chunk.ContentType(bestName)
	}
	if textutil.DigitRatio(text) > dataDigitRatio {
		return chunk.ContentData
	}
	return chunk.ContentNarrative
}
