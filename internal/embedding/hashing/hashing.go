// Package hashing is an offline embedder. Each term and adjacent term pair is
// hashed into a signed bucket of a fixed-size vector, which is then
// L2-normalized. Texts sharing vocabulary land close under cosine similarity.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/kailas-cloud/evidex/internal/analysis/textutil"
	"github.com/kailas-cloud/evidex/internal/domain"
)

// Provider is the metric/provider label of this embedder.
const Provider = "hashing"

// bigramWeight scales adjacent-pair features below single terms.
const bigramWeight = 0.5

// Embedder is deterministic and safe for concurrent use.
type Embedder struct {
	dim int
}

// New creates an embedder producing dim-dimensional vectors.
func New(dim int) (*Embedder, error) {
	if dim < 2 {
		return nil, fmt.Errorf("hashing embedder: dimensions must be at least 2, got %d", dim)
	}
	return &Embedder{dim: dim}, nil
}

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int { return e.dim }

// Embed implements domain.Embedder. Token usage is reported as the term count.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err
	}
	vec, terms := e.vector(text)
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: terms, TotalTokens: terms}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		vec, terms := e.vector(t)
		out.Embeddings[i] = vec
		out.PromptTokens += terms
		out.TotalTokens += terms
	}
	return out, nil
}

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

func (e *Embedder) vector(text string) ([]float32, int) {
	acc := make([]float64, e.dim)
	terms := textutil.Terms(text)
	for i, t := range terms {
		e.add(acc, t, 1)
		if i > 0 {
			e.add(acc, terms[i-1]+" "+t, bigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, e.dim)
	if norm == 0 {
		// Cosine distance is undefined for the zero vector.
		vec[0] = 1
		return vec, len(terms)
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, len(terms)
}

func (e *Embedder) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dim))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	acc[idx] += weight
}
