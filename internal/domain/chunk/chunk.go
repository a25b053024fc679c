package chunk

import (
	"fmt"

	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

// ContentType is the coarse shape of a chunk's text.
type ContentType string

// Content types.
const (
	ContentNarrative       ContentType = "narrative"
	ContentData            ContentType = "data"
	ContentScores          ContentType = "scores"
	ContentRecommendations ContentType = "recommendations"
	ContentGoals           ContentType = "goals"
	ContentAccommodations  ContentType = "accommodations"
)

// IsValid reports whether c is a known content type.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentNarrative, ContentData, ContentScores,
		ContentRecommendations, ContentGoals, ContentAccommodations:
		return true
	}
	return false
}

// SemanticTags summarize what a chunk talks about.
type SemanticTags struct {
	PrimaryTopic string
	ContentType  ContentType
	DomainTags   []string
}

// Relationships link a chunk to its neighbors and owning subject.
type Relationships struct {
	PrevChunkID string
	NextChunkID string
	SubjectID   string
	CrossRefs   []string
}

// Chunk is a retrievable span of a document with its full metadata.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Total      int
	Content    string

	DocumentType             document.Type
	Instrument               document.Instrument
	ClassificationConfidence float64

	Quality       quality.Metrics
	Tags          SemanticTags
	Relevance     section.Relevance
	Temporal      document.Temporal
	Relationships Relationships

	SourcePath string
	Filename   string
}

// ID derives a chunk id from its document id and zero-based index.
func ID(documentID string, index int) string {
	return fmt.Sprintf("%s-c%04d", documentID, index)
}

// Link sets previous/next ids across a document's ordered chunks.
func Link(chunks []Chunk) {
	for i := range chunks {
		chunks[i].Relationships.PrevChunkID = ""
		chunks[i].Relationships.NextChunkID = ""
		if i > 0 {
			chunks[i].Relationships.PrevChunkID = chunks[i-1].ID
		}
		if i < len(chunks)-1 {
			chunks[i].Relationships.NextChunkID = chunks[i+1].ID
		}
	}
}
