package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, kv map[string]any) *viper.Viper {
	t.Helper()
	v := viper.New()
	for k, val := range kv {
		v.Set(k, val)
	}
	return v
}

func TestLoadAppliesDefaults(t *testing.T) {
	v := newViper(t, map[string]any{
		"neo4j-uri":  "neo4j://localhost:7687",
		"neo4j-user": "neo4j",
	})
	cfg := Load(v)

	assert.Equal(t, 50, cfg.Neo4jMaxConnections)
	assert.Equal(t, "simulated", cfg.EmbeddingProvider)
	assert.Equal(t, 768, cfg.EmbeddingDims)
	assert.Equal(t, 96, cfg.EmbeddingBatchSize)
	assert.Equal(t, "article_embeddings", cfg.VectorIndexName)
	assert.Equal(t, 5, cfg.CPUWorkers)
	assert.Equal(t, 20, cfg.NetworkWorkers)
	assert.Equal(t, 2, cfg.DiskWorkers)
	assert.Equal(t, "data/unresolved_references.json", cfg.UnresolvedLogPath)
}

func TestLoadPreservesExplicitValues(t *testing.T) {
	v := newViper(t, map[string]any{
		"neo4j-uri":   "neo4j://prod:7687",
		"neo4j-user":  "neo4j",
		"cpu-workers": 10,
		"clean":       true,
	})
	cfg := Load(v)

	assert.Equal(t, "neo4j://prod:7687", cfg.Neo4jURI)
	assert.Equal(t, 10, cfg.CPUWorkers)
	assert.True(t, cfg.Clean)
}

func TestLoadReadsArchiveFields(t *testing.T) {
	v := newViper(t, map[string]any{
		"neo4j-uri":            "neo4j://localhost:7687",
		"neo4j-user":           "neo4j",
		"archive-endpoint-url": "https://s3.example.com",
		"archive-access-key":   "key",
		"archive-secret-key":   "secret",
		"archive-region":       "eu-central",
		"archive-bucket":       "boe-archive",
	})
	cfg := Load(v)

	assert.Equal(t, "https://s3.example.com", cfg.ArchiveEndpointURL)
	assert.Equal(t, "key", cfg.ArchiveAccessKey)
	assert.Equal(t, "secret", cfg.ArchiveSecretKey)
	assert.Equal(t, "eu-central", cfg.ArchiveRegion)
	assert.Equal(t, "boe-archive", cfg.ArchiveBucket)
}

func TestLoadLeavesArchiveBucketEmptyByDefault(t *testing.T) {
	v := newViper(t, map[string]any{"neo4j-uri": "neo4j://localhost:7687", "neo4j-user": "neo4j"})
	cfg := Load(v)

	assert.Empty(t, cfg.ArchiveBucket)
}

func TestValidateRequiresNeo4jFields(t *testing.T) {
	cfg := IngestConfig{SimulateEmbeddings: true, CPUWorkers: 1, NetworkWorkers: 1, DiskWorkers: 1, VectorIndexMetric: "cosine"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neo4j-uri")
}

func TestValidateRequiresEmbeddingAPIKeyUnlessSkippedOrSimulated(t *testing.T) {
	cfg := IngestConfig{
		Neo4jURI: "neo4j://localhost:7687", Neo4jUser: "neo4j",
		CPUWorkers: 1, NetworkWorkers: 1, DiskWorkers: 1, VectorIndexMetric: "cosine",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding-api-key")

	cfg.SimulateEmbeddings = true
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownVectorMetric(t *testing.T) {
	cfg := IngestConfig{
		Neo4jURI: "neo4j://localhost:7687", Neo4jUser: "neo4j", SkipEmbeddings: true,
		CPUWorkers: 1, NetworkWorkers: 1, DiskWorkers: 1, VectorIndexMetric: "manhattan",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector-index-metric")
}
