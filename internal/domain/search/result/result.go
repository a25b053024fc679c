package result

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Weights split the final score between similarity, relevance and quality.
type Weights struct {
	Similarity float64 `yaml:"similarity"`
	Relevance  float64 `yaml:"relevance"`
	Quality    float64 `yaml:"quality"`
}

// DefaultWeights returns the hand-tuned 0.4/0.4/0.2 split.
func DefaultWeights() Weights {
	return Weights{Similarity: 0.4, Relevance: 0.4, Quality: 0.2}
}

// Validate checks that weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	if w.Similarity < 0 || w.Relevance < 0 || w.Quality < 0 {
		return fmt.Errorf("final score weights must be non-negative")
	}
	sum := w.Similarity + w.Relevance + w.Quality
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("final score weights must sum to 1, got %v", sum)
	}
	return nil
}

// FinalScore combines the three inputs. It is never read from storage.
func (w Weights) FinalScore(similarity, relevance, quality float64) float64 {
	return w.Similarity*similarity + w.Relevance*relevance + w.Quality*quality
}

// Attribution names where a piece of evidence came from.
type Attribution struct {
	DocumentID   string
	Filename     string
	SourcePath   string
	DocumentType string
	AuthoredAt   time.Time
}

// Params carry the inputs of a single evidence item.
type Params struct {
	ChunkID     string
	ChunkIndex  int
	Content     string
	Similarity  float64
	Relevance   float64
	Quality     float64
	Highlights  []string
	Explanation string
	Attribution Attribution
}

// Result is a ranked evidence item.
type Result struct {
	chunkID     string
	chunkIndex  int
	content     string
	similarity  float64
	relevance   float64
	quality     float64
	final       float64
	highlights  []string
	explanation string
	attribution Attribution
}

// New creates an evidence item and derives its final score from w.
func New(p Params, w Weights) Result {
	return Result{
		chunkID:     p.ChunkID,
		chunkIndex:  p.ChunkIndex,
		content:     p.Content,
		similarity:  p.Similarity,
		relevance:   p.Relevance,
		quality:     p.Quality,
		final:       w.FinalScore(p.Similarity, p.Relevance, p.Quality),
		highlights:  p.Highlights,
		explanation: p.Explanation,
		attribution: p.Attribution,
	}
}

// ChunkID returns the chunk identifier.
func (r *Result) ChunkID() string { return r.chunkID }

// ChunkIndex returns the chunk position within its document.
func (r *Result) ChunkIndex() int { return r.chunkIndex }

// Content returns the chunk text.
func (r *Result) Content() string { return r.content }

// SimilarityScore returns the vector similarity in [0,1].
func (r *Result) SimilarityScore() float64 { return r.similarity }

// RelevanceScore returns the context-dependent relevance in [0,1].
func (r *Result) RelevanceScore() float64 { return r.relevance }

// QualityScore returns the chunk overall quality.
func (r *Result) QualityScore() float64 { return r.quality }

// FinalScore returns the weighted ranking score.
func (r *Result) FinalScore() float64 { return r.final }

// Highlights returns the matched sentences.
func (r *Result) Highlights() []string { return r.highlights }

// Explanation returns a human-readable account of the relevance boosts.
func (r *Result) Explanation() string { return r.explanation }

// Attribution returns the evidence provenance.
func (r *Result) Attribution() Attribution { return r.attribution }

// Rank deduplicates by chunk id keeping the higher final score, sorts by final
// score descending with ties broken by chunk index, then chunk id, and
// truncates to limit. A non-positive limit keeps everything.
func Rank(in []Result, limit int) []Result {
	best := make(map[string]int, len(in))
	out := make([]Result, 0, len(in))
	for _, r := range in {
		if i, ok := best[r.chunkID]; ok {
			if r.final > out[i].final {
				out[i] = r
			}
			continue
		}
		best[r.chunkID] = len(out)
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].final != out[j].final {
			return out[i].final > out[j].final
		}
		if out[i].chunkIndex != out[j].chunkIndex {
			return out[i].chunkIndex < out[j].chunkIndex
		}
		return out[i].chunkID < out[j].chunkID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
