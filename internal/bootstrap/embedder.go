package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/evidex/internal/config"
	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/embedding/hashing"
	"github.com/kailas-cloud/evidex/internal/metrics"
	"github.com/kailas-cloud/evidex/internal/repository/budget"
	"github.com/kailas-cloud/evidex/internal/repository/embcache"
	openaiEmb "github.com/kailas-cloud/evidex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/evidex/internal/usecase/embedding"
)

// providerName labels an embedder supplied by the caller.
const providerName = "custom"

// embedders holds the document and query views of one provider chain.
type embedders struct {
	documents domain.Embedder
	queries   domain.Embedder
	health    *embeddingHealthChecker
}

// buildEmbedders assembles provider -> Budgeted -> Instrumented -> Cached ->
// Instruction. Cache hits never reach the provider metrics or the token
// budget, and document and query vectors of the same text are cached apart.
// A nil base selects the configured provider.
func buildEmbedders(
	ctx context.Context, cfg config.Config, base domain.Embedder, b *backend, logger *zap.Logger,
) (embedders, error) {
	provider := cfg.Embedding.Provider
	if base == nil {
		var err error
		if base, err = newProvider(cfg.Embedding, logger); err != nil {
			return embedders{}, err
		}
	} else {
		provider = providerName
	}

	provided := base
	if bc := cfg.Embedding.Budget; bc.Enabled() {
		tracker := embeddinguc.NewBudgetTracker(ctx, provider, embeddinguc.BudgetLimits{
			Daily:   bc.DailyTokenLimit,
			Monthly: bc.MonthlyTokenLimit,
			Action:  embeddinguc.BudgetAction(bc.Action),
		}, budgetStore(b, cfg.Storage.KeyPrefix, provider), logger)
		provided = embeddinguc.NewBudgetedEmbedder(base, tracker)
		logger.Info("Embedding token budget enabled",
			zap.Int64("daily", bc.DailyTokenLimit),
			zap.Int64("monthly", bc.MonthlyTokenLimit),
			zap.String("action", bc.Action),
			zap.Bool("persistent", b.counter != nil),
		)
	}

	var e domain.Embedder = embeddinguc.NewInstrumentedEmbedder(
		provided, provider, cfg.Embedding.Model, cfg.Ingest.EmbedBatchSize, logger,
	)
	e = embcache.New(e, b.kv, embcache.Options{
		Prefix: cfg.Storage.KeyPrefix,
		Model:  provider + "/" + modelLabel(cfg.Embedding),
		Size:   cfg.Embedding.CacheSize,
		TTL:    time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
	}, metrics.EmbeddingCacheTotal, logger)

	return embedders{
		documents: domain.NewInstructionEmbedder(e, cfg.Embedding.DocumentInstruction),
		queries:   domain.NewInstructionEmbedder(e, cfg.Embedding.QueryInstruction),
		health:    &embeddingHealthChecker{embedder: base},
	}, nil
}

func newProvider(c config.EmbeddingConfig, logger *zap.Logger) (domain.Embedder, error) {
	switch c.Provider {
	case config.ProviderHashing:
		h, err := hashing.New(c.Dimensions)
		if err != nil {
			return nil, err
		}
		return h, nil
	case config.ProviderOpenAI:
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     c.APIKey,
			BaseURL:    c.BaseURL,
			Model:      c.Model,
			Dimensions: c.Dimensions,
			Provider:   c.Provider,
			Logger:     logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", c.Provider)
	}
}

func modelLabel(c config.EmbeddingConfig) string {
	if c.Model != "" {
		return c.Model
	}
	return fmt.Sprintf("%s-%d", c.Provider, c.Dimensions)
}

// counterStore is what the persistent budget counters need from a backend.
type counterStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	ExpireNX(ctx context.Context, key string, ttl time.Duration) error
}

// budgetStore returns Redis-backed counters, or nil to keep usage in memory.
func budgetStore(b *backend, prefix, provider string) embeddinguc.BudgetStore {
	if b.counter == nil {
		return nil
	}
	return budget.New(b.counter, prefix, provider)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
