// Package bootstrap wires storage, embeddings and usecases from a Config.
// The HTTP server, the CLI and the SDK all start here.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/config"
	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/evidex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/evidex/internal/usecase/ingest"
	integrityuc "github.com/kailas-cloud/evidex/internal/usecase/integrity"
	retrievaluc "github.com/kailas-cloud/evidex/internal/usecase/retrieval"
	statsuc "github.com/kailas-cloud/evidex/internal/usecase/stats"
)

// App is a fully wired evidex instance.
type App struct {
	Ingest    *ingestuc.Service
	Retrieval *retrievaluc.Service
	Integrity *integrityuc.Service
	Stats     *statsuc.Service
	Health    *healthuc.Service
	Library   *patterns.Library

	backend *backend
}

// Option adjusts wiring beyond what Config expresses.
type Option func(*settings)

type settings struct {
	embedder domain.Embedder
	now      func() time.Time
}

// WithEmbedder replaces the configured embedding provider. The cache and
// instruction decorators still apply.
func WithEmbedder(e domain.Embedder) Option {
	return func(s *settings) { s.embedder = e }
}

// WithClock fixes the clock used for recency and processing timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// New opens the configured backend, ensures its index exists and builds
// every service. cfg must already carry defaults.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var st settings
	for _, o := range opts {
		o(&st)
	}

	lib, err := loadLibrary(cfg.Patterns)
	if err != nil {
		return nil, err
	}

	qw := qualityWeights(cfg.Scoring.Quality)
	if err := qw.Validate(); err != nil {
		return nil, fmt.Errorf("scoring.quality: %w", err)
	}
	fw := finalWeights(cfg.Scoring.Final)
	if err := fw.Validate(); err != nil {
		return nil, fmt.Errorf("scoring.final: %w", err)
	}

	b, err := openBackend(ctx, cfg, qw, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	if err := b.index.Ensure(ctx); err != nil {
		_ = b.close()
		return nil, fmt.Errorf("ensure corpus index: %w", err)
	}

	emb, err := buildEmbedders(ctx, cfg, st.embedder, b, logger)
	if err != nil {
		_ = b.close()
		return nil, err
	}

	ingest := ingestuc.New(b.index, b.docs, emb.documents, lib, ingestuc.Options{
		SentencesPerChunk: cfg.Ingest.SentencesPerChunk,
		Overlap:           cfg.Ingest.Overlap,
		QualityWeights:    qw,
		Now:               st.now,
	})
	retrieval := retrievaluc.New(b.index, emb.queries, lib, retrievaluc.Options{
		MaxConcurrency:     cfg.Retrieval.MaxConcurrency,
		QueryTimeout:       cfg.Retrieval.QueryTimeout(),
		CandidatesPerQuery: cfg.Retrieval.CandidatesPerQuery,
		SectionEpsilon:     cfg.Retrieval.SectionEpsilon,
		RecencyWindow:      time.Duration(cfg.Retrieval.RecencyWindowDays) * 24 * time.Hour,
		Weights:            fw,
		Boosts: retrievaluc.Boosts{
			Base:         cfg.Scoring.Relevance.Base,
			Section:      cfg.Scoring.Relevance.Section,
			DocumentType: cfg.Scoring.Relevance.DocumentType,
			Recency:      cfg.Scoring.Relevance.Recency,
			Subject:      cfg.Scoring.Relevance.Subject,
		},
		Now: st.now,
	})

	logger.Info("evidex wired",
		zap.String("backend", cfg.Backend),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	return &App{
		Ingest:    ingest,
		Retrieval: retrieval,
		Integrity: integrityuc.New(b.index, b.docs, qw),
		Stats:     statsuc.New(b.index, b.docs),
		Health:    healthuc.New(b.indexPing, b.catalogPing, emb.health),
		Library:   lib,
		backend:   b,
	}, nil
}

// Close releases backend connections.
func (a *App) Close() error {
	if a == nil || a.backend == nil {
		return nil
	}
	return a.backend.close()
}

func loadLibrary(c config.PatternsConfig) (*patterns.Library, error) {
	if c.Path == "" {
		return patterns.Default()
	}
	lib, err := patterns.Load(c.Path)
	if err != nil {
		return nil, fmt.Errorf("load pattern library: %w", err)
	}
	return lib, nil
}

func qualityWeights(q config.QualityWeights) quality.Weights {
	return quality.Weights{
		Extraction:   q.Extraction,
		Density:      q.Density,
		Readability:  q.Readability,
		Completeness: q.Completeness,
	}
}

func finalWeights(f config.FinalWeights) result.Weights {
	return result.Weights{Similarity: f.Similarity, Relevance: f.Relevance, Quality: f.Quality}
}
