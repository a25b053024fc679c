package chunker

import (
	"strings"

	"github.com/kailas-cloud/evidex/internal/analysis/textutil"
)

// Defaults for sentence windows.
const (
	DefaultSentencesPerChunk = 5
	DefaultOverlap           = 1
)

// SentenceChunker splits text into windows of sentences with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlap           int
}

// New creates a chunker. Overlap is clamped below the window size so the
// window always advances.
func New(sentencesPerChunk, overlap int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = DefaultSentencesPerChunk
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= sentencesPerChunk {
		overlap = sentencesPerChunk - 1
	}
	return &SentenceChunker{sentencesPerChunk: sentencesPerChunk, overlap: overlap}
}

// Split returns chunk texts in document order. Blank text yields none.
func (c *SentenceChunker) Split(text string) []string {
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var out []string
	for i := 0; i < len(sentences); {
		end := min(i+c.sentencesPerChunk, len(sentences))
		out = append(out, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}
		i = end - c.overlap
	}
	return out
}
