// Package resources owns the lifecycle of every singleton the ingestion
// engine shares across worker pools: the graph adapter, the embedding
// provider and its cache and rate limiter. A single Manager is built once at
// startup and torn down once at shutdown, per the spec's "initialize them
// explicitly at batch start; destroy them at batch end" design note; nothing
// here lazily self-initializes from a worker goroutine.
package resources

import (
	"context"
	"fmt"
	"time"

	"github.com/mhanii/corolaria-sub000/internal/embedcache"
	"github.com/mhanii/corolaria-sub000/internal/embedding"
	"github.com/mhanii/corolaria-sub000/internal/graph"
	"github.com/mhanii/corolaria-sub000/internal/ratelimit"
)

// VectorIndexConfig parameterizes the article vector index created at
// startup, overridable via config per §6.
type VectorIndexConfig struct {
	Name      string
	Label     string
	Property  string
	Dims      int
	Metric    string
}

func (c VectorIndexConfig) withDefaults() VectorIndexConfig {
	if c.Name == "" {
		c.Name = "article_embeddings"
	}
	if c.Label == "" {
		c.Label = articuloLabel
	}
	if c.Property == "" {
		c.Property = "embedding"
	}
	if c.Dims == 0 {
		c.Dims = 768
	}
	if c.Metric == "" {
		c.Metric = "cosine"
	}
	return c
}

const articuloLabel = "ARTICULO"

// Config addresses every backing resource the Manager connects to.
type Config struct {
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	MaxConnections int

	EmbeddingCachePath string
	DisableCache       bool // --clean

	Embedding embedding.Config

	VectorIndex VectorIndexConfig

	// Client is the embedding.Client to front with the cache/limiter/retry
	// pipeline; callers pass embedding.Simulated for --simulate runs or an
	// embedding.HTTPClient for a real provider.
	Client embedding.Client

	// RateLimitRequests/RateLimitWindow configure the sliding-window limiter
	// guarding calls to Client.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Manager owns the graph adapter, embedding cache, rate limiter, and
// embedding provider for the lifetime of one batch or single-document run.
// It is built once by the CLI and threaded through the orchestrator; workers
// never construct their own copies.
type Manager struct {
	cfg Config

	Graph     *graph.Adapter
	Cache     *embedcache.Cache
	Limiter   *ratelimit.Limiter
	Embedding *embedding.Provider
}

// New builds an uninitialized Manager. Call Initialize before using Graph,
// Cache, Limiter, or Embedding.
func New(cfg Config) *Manager {
	cfg.VectorIndex = cfg.VectorIndex.withDefaults()
	return &Manager{cfg: cfg}
}

// Initialize connects to the graph store and opens the embedding cache (when
// not disabled), then wires the rate limiter and embedding provider on top
// of them. It does not create the vector index; call PrepareDatabase for
// that once Initialize succeeds.
func (m *Manager) Initialize(ctx context.Context) error {
	adapter, err := graph.Open(ctx, m.cfg.Neo4jURI, m.cfg.Neo4jUser, m.cfg.Neo4jPassword, m.cfg.MaxConnections)
	if err != nil {
		return fmt.Errorf("initialize graph adapter: %w", err)
	}
	m.Graph = adapter

	var cache *embedcache.Cache
	if !m.cfg.DisableCache && m.cfg.EmbeddingCachePath != "" {
		cache, err = embedcache.Open(m.cfg.EmbeddingCachePath)
		if err != nil {
			m.Graph.Close(ctx)
			m.Graph = nil
			return fmt.Errorf("initialize embedding cache: %w", err)
		}
	}
	m.Cache = cache

	if m.cfg.RateLimitRequests > 0 {
		m.Limiter = ratelimit.NewLimiter(m.cfg.RateLimitRequests, m.cfg.RateLimitWindow)
	}

	embeddingCfg := m.cfg.Embedding
	embeddingCfg.DisableCache = m.cfg.DisableCache
	m.Embedding = embedding.New(embeddingCfg, m.cfg.Client, m.Cache, m.Limiter)

	return nil
}

// PrepareDatabase creates the vector index this run needs, idempotently.
// Call once, after Initialize, before the orchestrator starts any pool.
func (m *Manager) PrepareDatabase(ctx context.Context) error {
	return m.CreateVectorIndex(ctx)
}

// CreateVectorIndex creates (or confirms) the article embedding index
// described by Config.VectorIndex.
func (m *Manager) CreateVectorIndex(ctx context.Context) error {
	if m.Graph == nil {
		return fmt.Errorf("create vector index: graph adapter not initialized")
	}
	idx := m.cfg.VectorIndex
	return m.Graph.CreateVectorIndex(ctx, idx.Name, idx.Label, idx.Property, idx.Dims, idx.Metric)
}

// Close releases every resource Initialize opened, in reverse order. It is
// safe to call even if Initialize partially failed.
func (m *Manager) Close() error {
	var errs []error
	if m.Cache != nil {
		if err := m.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close embedding cache: %w", err))
		}
	}
	if m.Graph != nil {
		if err := m.Graph.Close(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("close graph adapter: %w", err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("resource manager close: %v", errs)
}
