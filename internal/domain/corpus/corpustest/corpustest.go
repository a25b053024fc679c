// Package corpustest builds valid chunk records for backend tests.
package corpustest

import (
	"time"

	"github.com/kailas-cloud/evidex/internal/domain/chunk"
	"github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

// Authored is the authored date of every fixture chunk.
var Authored = time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

// Chunk returns a valid plan chunk with the given identity.
func Chunk(docID string, index, total int) chunk.Chunk {
	rel := section.NewRelevance()
	rel[section.AnnualGoals] = 0.8
	return chunk.Chunk{
		ID:                       chunk.ID(docID, index),
		DocumentID:               docID,
		Index:                    index,
		Total:                    total,
		Content:                  "Sam will improve reading fluency.",
		DocumentType:             document.TypePlan,
		ClassificationConfidence: 0.9,
		Quality:                  quality.New(quality.DefaultWeights(), 0.9, 0.8, 0.7, 0.9),
		Tags: chunk.SemanticTags{
			PrimaryTopic: "reading",
			ContentType:  chunk.ContentGoals,
			DomainTags:   []string{"reading"},
		},
		Relevance:     rel,
		Temporal:      document.NewTemporal(Authored, Authored.Add(time.Hour)),
		Relationships: chunk.Relationships{SubjectID: "student-1"},
		SourcePath:    "/in/" + docID + ".txt",
		Filename:      docID + ".txt",
	}
}

// Entry flattens c and pairs it with vector.
func Entry(c chunk.Chunk, vector ...float32) corpus.Entry {
	return corpus.Entry{Record: metadata.Flatten(c), Vector: vector}
}

// Document returns document metadata matching Chunk's fixture.
func Document(id, hash string, total int) document.Metadata {
	return document.Metadata{
		ID:          id,
		ContentHash: hash,
		SourcePath:  "/in/" + id + ".txt",
		Filename:    id + ".txt",
		SubjectID:   "student-1",
		Classification: document.Classification{
			Type:       document.TypePlan,
			Confidence: 0.9,
		},
		Quality:     quality.New(quality.DefaultWeights(), 0.9, 0.8, 0.7, 0.9),
		Temporal:    document.NewTemporal(Authored, Authored.Add(time.Hour)),
		TotalChunks: total,
	}
}
