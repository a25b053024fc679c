package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/evidex/internal/config"
	"github.com/kailas-cloud/evidex/internal/db"
	dbredis "github.com/kailas-cloud/evidex/internal/db/redis"
	domcorpus "github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/repository/catalog"
	"github.com/kailas-cloud/evidex/internal/repository/chromem"
	"github.com/kailas-cloud/evidex/internal/repository/corpus"
	"github.com/kailas-cloud/evidex/internal/repository/qdrant"
	healthuc "github.com/kailas-cloud/evidex/internal/usecase/health"
)

// memoryCatalog keeps the sqlite catalog in process when nothing is persisted.
const memoryCatalog = ":memory:"

// backend is one storage selection: the chunk index, the document records
// and what health probes.
type backend struct {
	index domcorpus.Index
	docs  domcorpus.DocumentStore
	// kv is the shared embedding cache tier; nil outside redis.
	kv db.KVStore
	// counter persists embedding budget usage; nil outside redis.
	counter counterStore

	indexPing   healthuc.Pinger
	catalogPing healthuc.Pinger
	closers     []func() error
}

func (b *backend) close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openBackend(ctx context.Context, cfg config.Config, w quality.Weights, logger *zap.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		return openRedis(ctx, cfg, w, logger)
	case config.BackendEmbedded:
		return openEmbedded(cfg, w)
	case config.BackendQdrant:
		return openQdrant(cfg, w)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func openRedis(ctx context.Context, cfg config.Config, w quality.Weights, logger *zap.Logger) (*backend, error) {
	algo, err := db.ParseVectorAlgorithm(cfg.Database.VectorAlgorithm)
	if err != nil {
		return nil, err
	}
	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		Valkey:   cfg.Database.Driver == "valkey",
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
	}
	closeStore := func() error { store.Close(); return nil }

	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("addrs", cfg.Database.Addrs),
	)

	repo := corpus.New(store, corpus.Options{
		Prefix:     cfg.Storage.KeyPrefix,
		Dimensions: cfg.Embedding.Dimensions,
		Algorithm:  algo,
		HNSW:       corpus.HNSWConfig{M: cfg.Database.HNSWM, EFConstruct: cfg.Database.HNSWEFConstruct},
		Weights:    w,
	})
	return &backend{
		index:     repo,
		docs:      repo,
		kv:        store,
		counter:   store,
		indexPing: store,
		closers:   []func() error{closeStore},
	}, nil
}

func openEmbedded(cfg config.Config, w quality.Weights) (*backend, error) {
	repo, err := chromem.New(chromem.Config{
		Path:       cfg.Embedded.Path,
		Compress:   cfg.Embedded.Compress,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Open(catalogPath(cfg.Embedded), w)
	if err != nil {
		return nil, err
	}
	return &backend{
		index:       repo,
		docs:        cat,
		indexPing:   repo,
		catalogPing: cat,
		closers:     []func() error{cat.Close},
	}, nil
}

func openQdrant(cfg config.Config, w quality.Weights) (*backend, error) {
	repo, closeClient, err := qdrant.Dial(qdrant.Config{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		UseTLS:     cfg.Qdrant.UseTLS,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Open(catalogPath(cfg.Embedded), w)
	if err != nil {
		_ = closeClient()
		return nil, err
	}
	return &backend{
		index:       repo,
		docs:        cat,
		indexPing:   repo,
		catalogPing: cat,
		closers:     []func() error{closeClient, cat.Close},
	}, nil
}

// catalogPath places the catalog next to persisted vectors; with nothing
// persisted it lives in memory too.
func catalogPath(c config.EmbeddedConfig) string {
	switch {
	case c.CatalogPath != "":
		return c.CatalogPath
	case c.Path != "":
		return filepath.Join(c.Path, "catalog.db")
	default:
		return memoryCatalog
	}
}
