package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mhanii/corolaria-sub000/config"
	"github.com/mhanii/corolaria-sub000/internal/archivestore"
	"github.com/mhanii/corolaria-sub000/internal/embedding"
	"github.com/mhanii/corolaria-sub000/internal/reflink"
	"github.com/mhanii/corolaria-sub000/internal/refextract"
	"github.com/mhanii/corolaria-sub000/internal/retriever"
	"github.com/mhanii/corolaria-sub000/internal/tracing"
	"github.com/mhanii/corolaria-sub000/resources"
)

const (
	defaultBOEBaseURL    = "https://www.boe.es/diario_boe/xml.php"
	defaultEURLexBaseURL = "https://eur-lex.europa.eu/legal-content/EN/TXT/HTML/"
	defaultBOERPS        = 2.0
	defaultEURLexRPS     = 2.0
)

// buildResources turns an IngestConfig into a ready-to-Initialize resource
// Manager, wiring the embedding client the config names before any network
// or store connection is attempted.
func buildResources(cfg config.IngestConfig) *resources.Manager {
	return resources.New(resources.Config{
		Neo4jURI:           cfg.Neo4jURI,
		Neo4jUser:          cfg.Neo4jUser,
		Neo4jPassword:      cfg.Neo4jPassword,
		MaxConnections:     cfg.Neo4jMaxConnections,
		EmbeddingCachePath: cfg.EmbeddingCachePath,
		DisableCache:       cfg.Clean,
		Embedding: embedding.Config{
			Provider:  cfg.EmbeddingProvider,
			Model:     cfg.EmbeddingModel,
			Dims:      cfg.EmbeddingDims,
			BatchSize: cfg.EmbeddingBatchSize,
		},
		VectorIndex: resources.VectorIndexConfig{
			Name:     cfg.VectorIndexName,
			Property: cfg.VectorIndexProperty,
			Dims:     cfg.EmbeddingDims,
			Metric:   cfg.VectorIndexMetric,
		},
		Client:            buildEmbeddingClient(cfg),
		RateLimitRequests: cfg.RateLimitRequestsPerMinute,
		RateLimitWindow:   cfg.RateLimitWindow(),
	})
}

// buildEmbeddingClient picks the embedding transport: Simulated for
// --simulate runs or a "simulated" provider, an HTTPClient shaped for the
// named provider's embeddings endpoint otherwise.
func buildEmbeddingClient(cfg config.IngestConfig) embedding.Client {
	if cfg.SimulateEmbeddings || strings.EqualFold(cfg.EmbeddingProvider, "simulated") {
		return embedding.Simulated{Dims: cfg.EmbeddingDims}
	}
	return &embedding.HTTPClient{
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		Endpoint: embeddingEndpoint(cfg.EmbeddingProvider),
		APIKey:   cfg.EmbeddingAPIKey,
		Encode:   encodeEmbeddingRequest(cfg.EmbeddingModel),
		Decode:   decodeEmbeddingResponse,
	}
}

// embeddingEndpoint resolves a provider name to its embeddings endpoint.
// Only the OpenAI-shaped request/response format is wired; a different
// provider needs its own Encode/Decode pair alongside this.
func embeddingEndpoint(provider string) string {
	return "https://api.openai.com/v1/embeddings"
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func encodeEmbeddingRequest(model string) func([]string) ([]byte, string, error) {
	return func(texts []string) ([]byte, string, error) {
		body, err := json.Marshal(embeddingRequest{Model: model, Input: texts})
		if err != nil {
			return nil, "", err
		}
		return body, "application/json", nil
	}
}

func decodeEmbeddingResponse(body []byte) ([][]float32, error) {
	var resp embeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// buildRetriever wires the BOE and EUR-Lex HTTP sources, and the S3-backed
// archive source whenever an archive bucket is configured.
func buildRetriever(ctx context.Context, cfg config.IngestConfig) (*retriever.Retriever, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	r := &retriever.Retriever{
		BOE:    retriever.NewBOESource(httpClient, defaultBOEBaseURL, defaultBOERPS),
		EURLex: retriever.NewEURLexSource(httpClient, defaultEURLexBaseURL, defaultEURLexRPS),
	}

	if cfg.ArchiveBucket == "" {
		return r, nil
	}
	archiveClient, err := archivestore.New(ctx, archivestore.Config{
		EndpointURL: cfg.ArchiveEndpointURL,
		AccessKey:   cfg.ArchiveAccessKey,
		SecretKey:   cfg.ArchiveSecretKey,
		Region:      cfg.ArchiveRegion,
		Bucket:      cfg.ArchiveBucket,
	})
	if err != nil {
		return nil, fmt.Errorf("build archive source: %w", err)
	}
	r.Archive = &retriever.ArchiveSource{Client: archiveClient}
	return r, nil
}

// buildLinker wires a reflink.Linker backed by mgr's graph adapter, applying
// any known-law overrides file and writing every unresolved reference to
// unresolvedLogPath as newline-delimited JSON.
func buildLinker(mgr *resources.Manager, cfg config.IngestConfig) (*reflink.Linker, func() error, error) {
	if cfg.KnownLawOverridesPath != "" {
		if err := refextract.LoadKnownLawOverrides(cfg.KnownLawOverridesPath); err != nil {
			return nil, nil, fmt.Errorf("load known law overrides: %w", err)
		}
	}

	sink, closeSink, err := newUnresolvedSink(cfg.UnresolvedLogPath)
	if err != nil {
		return nil, nil, err
	}

	store := reflink.NewGraphStore(mgr.Graph)
	linker := reflink.New(store, refextract.NewExtractor(), reflink.Options{
		ChunkSize:      cfg.ScatterChunkSize,
		UnresolvedSink: sink,
	})
	return linker, closeSink, nil
}

// startTracing initializes OpenTelemetry when tracing is enabled, returning
// a no-op shutdown func otherwise so callers can defer unconditionally.
func startTracing(cfg config.IngestConfig) func(context.Context) error {
	if !cfg.TracingOn {
		return func(context.Context) error { return nil }
	}
	provider, err := tracing.NewProvider(tracing.Config{
		ServiceName:   "corolaria-ingest",
		OTLPEndpoint:  cfg.OTLPEndpoint,
		Enabled:       true,
		SamplingRatio: 1.0,
	})
	if err != nil {
		log.WithError(err).Warn("tracing initialization failed, continuing without it")
		return func(context.Context) error { return nil }
	}
	return provider.Shutdown
}
