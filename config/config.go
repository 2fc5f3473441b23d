// Package config builds the single typed IngestConfig the CLI constructs
// once at startup from cobra flags and viper-bound environment variables,
// and validates it before any pipeline work starts.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// IngestConfig is everything a batch or single-document ingestion run needs,
// built once per command by Load (called from cli/ingest.go's runIngest,
// after cli/root.go's initConfig has read the config file) and threaded down through
// resources.Manager, internal/pipeline, and internal/orchestrator.
type IngestConfig struct {
	Neo4jURI           string
	Neo4jUser          string
	Neo4jPassword      string
	Neo4jMaxConnections int

	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingDims       int
	EmbeddingBatchSize  int
	EmbeddingCachePath  string

	VectorIndexName     string
	VectorIndexProperty string
	VectorIndexMetric   string

	RateLimitRequestsPerMinute int

	CPUWorkers          int
	NetworkWorkers      int
	DiskWorkers         int
	ScatterChunkSize    int

	SkipEmbeddings    bool
	SimulateEmbeddings bool
	Clean             bool

	KnownLawOverridesPath string
	UnresolvedLogPath     string

	ArchiveEndpointURL string
	ArchiveAccessKey   string
	ArchiveSecretKey   string
	ArchiveRegion      string
	ArchiveBucket      string

	OTLPEndpoint string
	TracingOn    bool
}

// Load reads v (already populated by cobra flag binding, environment
// variables, and a config file, in that precedence order) into an
// IngestConfig, applying defaults for anything neither the flags, the
// environment, nor the file set.
func Load(v *viper.Viper) IngestConfig {
	cfg := IngestConfig{
		Neo4jURI:            v.GetString("neo4j-uri"),
		Neo4jUser:           v.GetString("neo4j-user"),
		Neo4jPassword:       v.GetString("neo4j-password"),
		Neo4jMaxConnections: v.GetInt("neo4j-max-connections"),

		EmbeddingProvider:  v.GetString("embedding-provider"),
		EmbeddingModel:     v.GetString("embedding-model"),
		EmbeddingAPIKey:    v.GetString("embedding-api-key"),
		EmbeddingDims:      v.GetInt("embedding-dims"),
		EmbeddingBatchSize: v.GetInt("embedding-batch-size"),
		EmbeddingCachePath: v.GetString("embedding-cache-path"),

		VectorIndexName:     v.GetString("vector-index-name"),
		VectorIndexProperty: v.GetString("vector-index-property"),
		VectorIndexMetric:   v.GetString("vector-index-metric"),

		RateLimitRequestsPerMinute: v.GetInt("rate-limit-rpm"),

		CPUWorkers:       v.GetInt("cpu-workers"),
		NetworkWorkers:   v.GetInt("network-workers"),
		DiskWorkers:      v.GetInt("disk-workers"),
		ScatterChunkSize: v.GetInt("scatter-chunk-size"),

		SkipEmbeddings:     v.GetBool("skip-embeddings"),
		SimulateEmbeddings: v.GetBool("simulate"),
		Clean:              v.GetBool("clean"),

		KnownLawOverridesPath: v.GetString("known-laws-override"),
		UnresolvedLogPath:     v.GetString("unresolved-log"),

		ArchiveEndpointURL: v.GetString("archive-endpoint-url"),
		ArchiveAccessKey:   v.GetString("archive-access-key"),
		ArchiveSecretKey:   v.GetString("archive-secret-key"),
		ArchiveRegion:      v.GetString("archive-region"),
		ArchiveBucket:      v.GetString("archive-bucket"),

		OTLPEndpoint: v.GetString("otel-endpoint"),
		TracingOn:    !v.GetBool("no-tracing"),
	}
	return cfg.withDefaults()
}

func (c IngestConfig) withDefaults() IngestConfig {
	if c.Neo4jMaxConnections <= 0 {
		c.Neo4jMaxConnections = 50
	}
	if c.EmbeddingProvider == "" {
		c.EmbeddingProvider = "simulated"
	}
	if c.EmbeddingDims <= 0 {
		c.EmbeddingDims = 768
	}
	if c.EmbeddingBatchSize <= 0 {
		c.EmbeddingBatchSize = 96
	}
	if c.EmbeddingCachePath == "" {
		c.EmbeddingCachePath = "data/embedding_cache.bbolt"
	}
	if c.VectorIndexName == "" {
		c.VectorIndexName = "article_embeddings"
	}
	if c.VectorIndexProperty == "" {
		c.VectorIndexProperty = "embedding"
	}
	if c.VectorIndexMetric == "" {
		c.VectorIndexMetric = "cosine"
	}
	if c.CPUWorkers <= 0 {
		c.CPUWorkers = 5
	}
	if c.NetworkWorkers <= 0 {
		c.NetworkWorkers = 20
	}
	if c.DiskWorkers <= 0 {
		c.DiskWorkers = 2
	}
	if c.ScatterChunkSize <= 0 {
		c.ScatterChunkSize = 5000
	}
	if c.UnresolvedLogPath == "" {
		c.UnresolvedLogPath = "data/unresolved_references.json"
	}
	return c
}

// RateLimitWindow is fixed at one minute; only the request count is
// configurable, matching the spec's requests-per-minute framing.
func (c IngestConfig) RateLimitWindow() time.Duration {
	return time.Minute
}

// Validate checks the fields every run needs regardless of mode. A
// single-document or batch run with an empty Neo4j URI or, when embeddings
// aren't being skipped or simulated, an empty API key, is rejected before
// any network or store connection is attempted.
func (c IngestConfig) Validate() error {
	v := NewValidator()
	v.RequireString("neo4j-uri", c.Neo4jURI)
	v.RequireString("neo4j-user", c.Neo4jUser)
	if !c.SkipEmbeddings && !c.SimulateEmbeddings && c.EmbeddingAPIKey == "" {
		v.errors = append(v.errors, "embedding-api-key is required unless --skip-embeddings or --simulate is set")
	}
	v.RequirePositiveInt("cpu-workers", c.CPUWorkers)
	v.RequirePositiveInt("network-workers", c.NetworkWorkers)
	v.RequirePositiveInt("disk-workers", c.DiskWorkers)
	v.RequireOneOf("vector-index-metric", c.VectorIndexMetric, []string{"cosine", "euclidean"})
	return v.Validate()
}

// Validator accumulates configuration errors so Load's caller gets every
// problem at once instead of failing on the first one.
type Validator struct {
	errors []string
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: make([]string, 0)}
}

// RequireString validates that a string field is not empty.
func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

// RequirePositiveInt validates that an integer field is positive.
func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

// RequireOneOf validates that a value is one of the allowed options.
func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	for _, option := range allowed {
		if value == option {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

// IsValid returns true if there are no validation errors.
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []string {
	return v.errors
}

// Validate runs validation and returns an error summarizing every problem
// found, or nil.
func (v *Validator) Validate() error {
	if v.IsValid() {
		return nil
	}
	return fmt.Errorf("configuration validation failed: %s", strings.Join(v.errors, "; "))
}
