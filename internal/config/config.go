package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendRedis    = "redis"
	BackendEmbedded = "embedded"
	BackendQdrant   = "qdrant"
)

// Embedding provider names.
const (
	ProviderOpenAI  = "openai"
	ProviderHashing = "hashing"
)

// Config holds the evidex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Backend   string          `yaml:"backend"` // redis, embedded, qdrant (default: redis)
	Database  DatabaseConfig  `yaml:"database"`
	Embedded  EmbeddedConfig  `yaml:"embedded"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Patterns  PatternsConfig  `yaml:"patterns"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int `yaml:"max_body_bytes"`
}

// DatabaseConfig holds Redis/Valkey connection and index settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	VectorAlgorithm  string   `yaml:"vector_algorithm"` // hnsw, flat
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// EmbeddedConfig holds the in-process backend settings.
type EmbeddedConfig struct {
	Path        string `yaml:"path"` // chromem persistence dir; empty keeps vectors in memory
	Compress    bool   `yaml:"compress"`
	CatalogPath string `yaml:"catalog_path"` // sqlite file, also used by qdrant; empty sits beside Path or in memory
}

// QdrantConfig holds qdrant connection settings.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	UseTLS     bool   `yaml:"use_tls"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Provider            string       `yaml:"provider"` // openai, hashing
	Model               string       `yaml:"model"`
	BaseURL             string       `yaml:"base_url"`
	APIKey              string       `yaml:"api_key"`
	Dimensions          int          `yaml:"dimensions"`
	DocumentInstruction string       `yaml:"document_instruction"`
	QueryInstruction    string       `yaml:"query_instruction"`
	CacheSize           int          `yaml:"cache_size"`
	CacheTTLSec         int          `yaml:"cache_ttl_sec"`
	Budget              BudgetConfig `yaml:"budget"`
}

// BudgetConfig caps provider tokens per UTC day and month. Zero is unlimited.
// Counters persist in Redis when the redis backend is used.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"`
	Action            string `yaml:"action"` // warn, reject (default: warn)
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0
}

// RetrievalConfig tunes sub-query fan-out.
type RetrievalConfig struct {
	MaxConcurrency          int     `yaml:"max_concurrency"`
	QueryTimeoutMs          int     `yaml:"query_timeout_ms"`
	CandidatesPerQuery      int     `yaml:"candidates_per_query"`
	DefaultQualityThreshold float64 `yaml:"default_quality_threshold"`
	SectionEpsilon          float64 `yaml:"section_epsilon"`
	RecencyWindowDays       int     `yaml:"recency_window_days"`
}

// QueryTimeout returns the per sub-query deadline.
func (r RetrievalConfig) QueryTimeout() time.Duration {
	return time.Duration(r.QueryTimeoutMs) * time.Millisecond
}

// ScoringConfig holds every weight the rankers use.
type ScoringConfig struct {
	Final     FinalWeights     `yaml:"final"`
	Quality   QualityWeights   `yaml:"quality"`
	Relevance RelevanceWeights `yaml:"relevance"`
}

// FinalWeights combine similarity, relevance and quality into the final score.
type FinalWeights struct {
	Similarity float64 `yaml:"similarity"`
	Relevance  float64 `yaml:"relevance"`
	Quality    float64 `yaml:"quality"`
}

// QualityWeights combine the four quality dimensions.
type QualityWeights struct {
	Extraction   float64 `yaml:"extraction"`
	Density      float64 `yaml:"density"`
	Readability  float64 `yaml:"readability"`
	Completeness float64 `yaml:"completeness"`
}

// RelevanceWeights are the additive boosts of the relevance score.
type RelevanceWeights struct {
	Base         float64 `yaml:"base"`
	Section      float64 `yaml:"section"`
	DocumentType float64 `yaml:"document_type"`
	Recency      float64 `yaml:"recency"`
	Subject      float64 `yaml:"subject"`
}

// PatternsConfig points at an optional pattern library override.
type PatternsConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig holds chunking settings.
type IngestConfig struct {
	SentencesPerChunk int `yaml:"sentences_per_chunk"`
	Overlap           int `yaml:"overlap"`
	EmbedBatchSize    int `yaml:"embed_batch_size"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// TelemetryConfig holds OpenTelemetry tracing settings.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Protocol    string  `yaml:"protocol"` // grpc, http/protobuf
	Insecure    bool    `yaml:"insecure"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
//
//nolint:gocyclo // flat list of defaults
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 8 << 20
	}
	if c.Backend == "" {
		c.Backend = BackendRedis
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.HNSWM <= 0 {
		c.Database.HNSWM = 16
	}
	if c.Database.HNSWEFConstruct <= 0 {
		c.Database.HNSWEFConstruct = 200
	}
	if c.Qdrant.Port <= 0 {
		c.Qdrant.Port = 6334
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "evidex_chunks"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderHashing
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.CacheSize <= 0 {
		c.Embedding.CacheSize = 4096
	}
	if c.Embedding.CacheTTLSec <= 0 {
		c.Embedding.CacheTTLSec = 3600
	}
	if c.Embedding.Budget.Action == "" {
		c.Embedding.Budget.Action = "warn"
	}
	if c.Retrieval.MaxConcurrency <= 0 {
		c.Retrieval.MaxConcurrency = 8
	}
	if c.Retrieval.QueryTimeoutMs <= 0 {
		c.Retrieval.QueryTimeoutMs = 5000
	}
	if c.Retrieval.CandidatesPerQuery <= 0 {
		c.Retrieval.CandidatesPerQuery = 30
	}
	if c.Retrieval.DefaultQualityThreshold == 0 {
		c.Retrieval.DefaultQualityThreshold = 0.5
	}
	if c.Retrieval.SectionEpsilon == 0 {
		c.Retrieval.SectionEpsilon = 0.01
	}
	if c.Retrieval.RecencyWindowDays <= 0 {
		c.Retrieval.RecencyWindowDays = 365
	}
	if c.Scoring.Final == (FinalWeights{}) {
		c.Scoring.Final = FinalWeights{Similarity: 0.4, Relevance: 0.4, Quality: 0.2}
	}
	if c.Scoring.Quality == (QualityWeights{}) {
		c.Scoring.Quality = QualityWeights{Extraction: 0.3, Density: 0.3, Readability: 0.2, Completeness: 0.2}
	}
	if c.Scoring.Relevance == (RelevanceWeights{}) {
		c.Scoring.Relevance = RelevanceWeights{Base: 0.5, Section: 0.3, DocumentType: 0.2, Recency: 0.09, Subject: 0.15}
	}
	if c.Ingest.SentencesPerChunk <= 0 {
		c.Ingest.SentencesPerChunk = 5
	}
	if c.Ingest.Overlap < 0 {
		c.Ingest.Overlap = 0
	}
	if c.Ingest.EmbedBatchSize <= 0 {
		c.Ingest.EmbedBatchSize = 64
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "evidex:"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "evidex"
	}
	if c.Telemetry.Protocol == "" {
		c.Telemetry.Protocol = "grpc"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1
	}
}

// Validate checks the configuration for correctness.
//
//nolint:gocyclo // flat list of checks
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Backend {
	case BackendRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis backend")
		}
		switch c.Database.Driver {
		case "redis", "valkey":
		default:
			return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
		}
	case BackendEmbedded:
	case BackendQdrant:
		if c.Qdrant.Host == "" {
			return fmt.Errorf("qdrant.host is required for the qdrant backend")
		}
	default:
		return fmt.Errorf("backend must be one of redis, embedded, qdrant, got %q", c.Backend)
	}
	switch c.Embedding.Provider {
	case ProviderHashing:
	case ProviderOpenAI:
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for the openai provider")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"hashing\", got %q", c.Embedding.Provider)
	}
	if b := c.Embedding.Budget; b.DailyTokenLimit < 0 || b.MonthlyTokenLimit < 0 {
		return fmt.Errorf("embedding.budget limits must not be negative")
	}
	switch c.Embedding.Budget.Action {
	case "warn", "reject":
	default:
		return fmt.Errorf("embedding.budget.action must be \"warn\" or \"reject\", got %q", c.Embedding.Budget.Action)
	}
	if c.Retrieval.MaxConcurrency < 1 {
		return fmt.Errorf("retrieval.max_concurrency must be at least 1")
	}
	if c.Retrieval.QueryTimeoutMs <= 0 {
		return fmt.Errorf("retrieval.query_timeout_ms must be positive")
	}
	if t := c.Retrieval.DefaultQualityThreshold; t < 0 || t > 1 {
		return fmt.Errorf("retrieval.default_quality_threshold must be within [0,1], got %v", t)
	}
	f := c.Scoring.Final
	if err := checkWeights("scoring.final", f.Similarity, f.Relevance, f.Quality); err != nil {
		return err
	}
	q := c.Scoring.Quality
	if err := checkWeights("scoring.quality", q.Extraction, q.Density, q.Readability, q.Completeness); err != nil {
		return err
	}
	r := c.Scoring.Relevance
	for _, w := range []float64{r.Base, r.Section, r.DocumentType, r.Recency, r.Subject} {
		if w < 0 {
			return fmt.Errorf("scoring.relevance weights must not be negative")
		}
	}
	if c.Ingest.Overlap >= c.Ingest.SentencesPerChunk {
		return fmt.Errorf("ingest.overlap must be smaller than ingest.sentences_per_chunk")
	}
	if c.Telemetry.Enabled {
		switch c.Telemetry.Protocol {
		case "grpc", "http/protobuf":
		default:
			return fmt.Errorf("telemetry.protocol must be \"grpc\" or \"http/protobuf\", got %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry.sample_rate must be within [0,1]")
		}
	}
	return nil
}

const weightTolerance = 1e-6

func checkWeights(name string, ws ...float64) error {
	var sum float64
	for _, w := range ws {
		if w < 0 {
			return fmt.Errorf("%s weights must not be negative", name)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%s weights must sum to 1, got %v", name, sum)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
