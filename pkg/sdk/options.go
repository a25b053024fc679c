package evidex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	backend string // "redis", "embedded" or "qdrant"

	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	embeddedPath string
	catalogPath  string

	qdrantHost   string
	qdrantPort   int
	qdrantAPIKey string
	qdrantTLS    bool

	embedder         Embedder
	vectorDimensions int
	keyPrefix        string
	qualityThreshold *float64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis stores the corpus in Redis with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = "redis"
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey stores the corpus in Valkey. Metadata listing falls back to
// key scans since Valkey has no FT.SEARCH filter-only queries.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = "redis"
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedded keeps the corpus in process. A non-empty dir persists vectors
// and the document catalog there; an empty dir keeps everything in memory.
func WithEmbedded(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = "embedded"
		c.embeddedPath = dir
	})
}

// WithCatalog places the sqlite document catalog of the embedded and qdrant
// backends at an explicit path.
func WithCatalog(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogPath = path
	})
}

// WithQdrant stores chunk vectors in qdrant over gRPC. Document records go to
// the sqlite catalog (see WithCatalog).
func WithQdrant(host string, port int, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = "qdrant"
		c.qdrantHost = host
		c.qdrantPort = port
		c.qdrantAPIKey = apiKey
	})
}

// WithQdrantTLS enables TLS for the qdrant connection.
func WithQdrantTLS() Option {
	return optionFunc(func(c *clientConfig) {
		c.qdrantTLS = true
	})
}

// WithEmbedder replaces the built-in hashing embedder. Set WithVectorDimensions
// to the embedder's output size.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithVectorDimensions sets the index vector size. Defaults to 384.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithKeyPrefix namespaces Redis keys. Defaults to "evidex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithDefaultQualityThreshold sets the minimum chunk quality applied when a
// SearchContext leaves QualityThreshold nil. Defaults to 0.5.
func WithDefaultQualityThreshold(q float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.qualityThreshold = &q
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
