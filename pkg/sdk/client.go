package evidex

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/evidex/internal/bootstrap"
	"github.com/kailas-cloud/evidex/internal/config"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
	"github.com/kailas-cloud/evidex/internal/domain/report"
	"github.com/kailas-cloud/evidex/internal/domain/search/request"
	"github.com/kailas-cloud/evidex/internal/domain/section"
	healthuc "github.com/kailas-cloud/evidex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/evidex/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/evidex/internal/usecase/retrieval"
)

// Internal interfaces so tests can substitute the use cases.
type ingestUseCase interface {
	Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Result, error)
	Get(ctx context.Context, id string) (document.Metadata, error)
	Delete(ctx context.Context, id string) (int, error)
}

type retrievalUseCase interface {
	Search(ctx context.Context, query string, rc request.Context) (retrievaluc.Response, error)
	RetrieveEvidence(ctx context.Context, sections []section.Name, rc request.Context) (evidence.Set, error)
}

type integrityUseCase interface {
	Validate(ctx context.Context, sample int) (report.Integrity, error)
}

type statsUseCase interface {
	Compute(ctx context.Context) (report.Stats, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the evidex SDK entry point. It is safe for concurrent use.
type Client struct {
	ingestSvc      ingestUseCase
	retrievalSvc   retrievalUseCase
	integritySvc   integrityUseCase
	statsSvc       statsUseCase
	healthSvc      healthUseCase
	defaultQuality float64
	closeFn        func() error
	obs            *observer
}

// New builds a Client on the chosen backend, creating the corpus index when
// it does not exist. The context bounds the readiness wait of remote backends.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := &clientConfig{}
	for _, o := range opts {
		o.apply(cc)
	}

	cfg, err := buildConfig(cc)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cc.logger, cc.metricsReg)
	if err != nil {
		return nil, err
	}

	var bopts []bootstrap.Option
	if cc.embedder != nil {
		bopts = append(bopts, bootstrap.WithEmbedder(adaptEmbedder(cc.embedder)))
	}

	// Internals log through zap; the SDK reports through its observer instead.
	app, err := bootstrap.New(ctx, cfg, zap.NewNop(), bopts...)
	if err != nil {
		return nil, fmt.Errorf("evidex: %w", err)
	}

	return &Client{
		ingestSvc:      app.Ingest,
		retrievalSvc:   app.Retrieval,
		integritySvc:   app.Integrity,
		statsSvc:       app.Stats,
		healthSvc:      app.Health,
		defaultQuality: cfg.Retrieval.DefaultQualityThreshold,
		closeFn:        app.Close,
		obs:            obs,
	}, nil
}

// buildConfig maps options onto the service configuration.
func buildConfig(cc *clientConfig) (config.Config, error) {
	if cc.backend == "" {
		return config.Config{}, errors.New("evidex: backend required (use WithRedis, WithValkey, WithEmbedded or WithQdrant)")
	}

	cfg := config.Config{
		Backend: cc.backend,
		Database: config.DatabaseConfig{
			Driver:   cc.driver,
			Addrs:    cc.addrs,
			Password: cc.password,
		},
		Embedded: config.EmbeddedConfig{
			Path:        cc.embeddedPath,
			CatalogPath: cc.catalogPath,
		},
		Qdrant: config.QdrantConfig{
			Host:   cc.qdrantHost,
			Port:   cc.qdrantPort,
			UseTLS: cc.qdrantTLS,
			APIKey: cc.qdrantAPIKey,
		},
		Embedding: config.EmbeddingConfig{
			Provider:   config.ProviderHashing,
			Dimensions: cc.vectorDimensions,
		},
		Storage: config.StorageConfig{KeyPrefix: cc.keyPrefix},
	}
	// The SDK serves no HTTP; the port only satisfies validation.
	cfg.HTTP.Port = 8080
	cfg.ApplyDefaults()
	// ApplyDefaults treats zero as unset, so an explicit threshold goes after it.
	if cc.qualityThreshold != nil {
		cfg.Retrieval.DefaultQualityThreshold = *cc.qualityThreshold
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("evidex: %w", err)
	}
	return cfg, nil
}

// Close releases backend connections.
func (c *Client) Close() error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}
