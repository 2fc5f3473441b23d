// Package embedding generates fixed-dimensional vectors for article text,
// fronting a real provider with a content-addressed cache, a sliding-window
// rate limiter, chunked batching, and exponential-backoff retry.
package embedding

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/mhanii/corolaria-sub000/internal/embedcache"
	"github.com/mhanii/corolaria-sub000/internal/ratelimit"
)

// ErrTransientSource marks a failure the retry loop should back off and
// retry (rate-limit, timeout, 5xx).
var ErrTransientSource = errors.New("transient embedding source error")

// ErrPermanentSource marks a failure that should propagate immediately.
var ErrPermanentSource = errors.New("permanent embedding source error")

// Client issues the actual provider call. A real implementation talks to an
// HTTP embeddings endpoint; Simulated below satisfies it without network
// access.
type Client interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Config configures a Provider.
type Config struct {
	Provider string // e.g. "openai", "simulated"
	Model    string
	Dims     int
	TaskType string

	// BatchSize is the maximum number of texts sent to Client.EmbedBatch in
	// one call.
	BatchSize int

	// MaxRetries bounds the exponential-backoff retry loop for a transient
	// failure before it propagates.
	MaxRetries int
	BaseBackoff time.Duration

	// DisableCache skips the cache lookup/write entirely (the --clean mode).
	DisableCache bool
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 96
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 500 * time.Millisecond
	}
	return c
}

// Provider embeds text, consulting the cache first and rate-limiting and
// retrying calls to Client for anything not already cached.
type Provider struct {
	cfg     Config
	client  Client
	cache   *embedcache.Cache
	limiter *ratelimit.Limiter
}

// New builds a Provider. cache may be nil when Config.DisableCache is set or
// the caller runs with --clean.
func New(cfg Config, client Client, cache *embedcache.Cache, limiter *ratelimit.Limiter) *Provider {
	return &Provider{cfg: cfg.withDefaults(), client: client, cache: cache, limiter: limiter}
}

// Embed embeds a single text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds every text in texts, returning vectors in the same
// order. Cached entries are never re-sent to the provider; cache misses are
// sent in Config.BatchSize chunks, rate-limited one slot per text, and
// retried with exponential backoff on transient failure.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	fingerprints := make([]string, len(texts))
	var missIdx []int

	for i, text := range texts {
		fp := embedcache.Fingerprint(p.cfg.Provider, p.cfg.Model, p.cfg.Dims, p.cfg.TaskType, text)
		fingerprints[i] = fp
		if !p.cfg.DisableCache && p.cache != nil {
			if entry, ok := p.cache.Get(fp, p.cfg.Dims); ok {
				vectors[i] = entry.Vector
				continue
			}
		}
		missIdx = append(missIdx, i)
	}

	for start := 0; start < len(missIdx); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(missIdx) {
			end = len(missIdx)
		}
		chunkIdx := missIdx[start:end]
		chunkTexts := make([]string, len(chunkIdx))
		for j, idx := range chunkIdx {
			chunkTexts[j] = texts[idx]
		}

		if p.limiter != nil {
			if err := p.limiter.Acquire(ctx, len(chunkTexts)); err != nil {
				return nil, fmt.Errorf("%w: rate limit acquire: %v", ErrTransientSource, err)
			}
		}

		chunkVectors, err := p.callWithRetry(ctx, chunkTexts)
		if err != nil {
			return nil, err
		}

		for j, idx := range chunkIdx {
			vectors[idx] = chunkVectors[j]
			if !p.cfg.DisableCache && p.cache != nil {
				if err := p.cache.Put(fingerprints[idx], p.cfg.Provider, p.cfg.Model, p.cfg.Dims, p.cfg.TaskType, texts[idx], chunkVectors[j]); err != nil {
					return nil, fmt.Errorf("write embedding cache: %w", err)
				}
			}
		}
	}

	return vectors, nil
}

func (p *Provider) callWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	backoff := p.cfg.BaseBackoff
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		vectors, err := p.client.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if errors.Is(err, ErrPermanentSource) {
			return nil, err
		}
		lastErr = err
		if attempt == p.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("%w: exhausted %d retries: %v", ErrTransientSource, p.cfg.MaxRetries, lastErr)
}

// HTTPClient is a minimal real Client over a provider's HTTP embeddings
// endpoint. Concrete request/response shaping is provider-specific and left
// to the caller via encode/decode hooks; this struct only owns the HTTP
// transport. Rate limiting is applied by the Provider that wraps it.
type HTTPClient struct {
	HTTP     *http.Client
	Endpoint string
	APIKey   string
	Encode   func(texts []string) (body []byte, contentType string, err error)
	Decode   func(body []byte) ([][]float32, error)
}

// EmbedBatch implements Client by POSTing to Endpoint. A non-2xx, non-429/5xx
// response is treated as permanent; 429 and 5xx are transient.
func (c *HTTPClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, contentType, err := c.Encode(texts)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrPermanentSource, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrPermanentSource, err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransientSource, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransientSource, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrTransientSource, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", ErrPermanentSource, resp.StatusCode)
	}

	vectors, err := c.Decode(respBody)
	if err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrPermanentSource, err)
	}
	return vectors, nil
}

// Simulated returns deterministic pseudo-random vectors derived from a hash
// of each input text, for stress tests and --simulate runs where no network
// call or API key is available.
type Simulated struct {
	Dims int
}

// EmbedBatch never fails and never touches the network.
func (s Simulated) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = deterministicVector(text, s.Dims)
	}
	return vectors, nil
}

// deterministicVector expands a SHA-256 digest of text into dims
// unit-scaled float32 values so the same text always yields the same
// vector, without requiring a real embedding model.
func deterministicVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	seed := sha256.Sum256([]byte(text))
	for i := 0; i < dims; i++ {
		chunk := seed[(i*4)%len(seed) : (i*4)%len(seed)+4]
		if len(chunk) < 4 {
			chunk = append(chunk, seed[:4-len(chunk)]...)
		}
		v := binary.BigEndian.Uint32(chunk)
		vec[i] = float32(math.Sin(float64(v)))
	}
	return vec
}
