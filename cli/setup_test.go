package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhanii/corolaria-sub000/config"
	"github.com/mhanii/corolaria-sub000/internal/embedding"
)

func TestEncodeDecodeEmbeddingRoundTrip(t *testing.T) {
	encode := encodeEmbeddingRequest("text-embedding-3-small")

	body, contentType, err := encode([]string{"Artículo primero.", "Artículo segundo."})
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.Contains(t, string(body), "text-embedding-3-small")
	assert.Contains(t, string(body), "Artículo primero.")

	respBody := []byte(`{"data":[{"embedding":[0.1,0.2]},{"embedding":[0.3,0.4]}]}`)
	vectors, err := decodeEmbeddingResponse(respBody)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vectors[0])
	assert.Equal(t, []float32{0.3, 0.4}, vectors[1])
}

func TestDecodeEmbeddingResponseRejectsMalformedJSON(t *testing.T) {
	_, err := decodeEmbeddingResponse([]byte("not json"))
	assert.Error(t, err)
}

func TestBuildEmbeddingClientPicksSimulated(t *testing.T) {
	cfg := config.IngestConfig{SimulateEmbeddings: true, EmbeddingDims: 64}
	client := buildEmbeddingClient(cfg)
	_, ok := client.(embedding.Simulated)
	assert.True(t, ok)

	cfg = config.IngestConfig{EmbeddingProvider: "Simulated", EmbeddingDims: 64}
	client = buildEmbeddingClient(cfg)
	_, ok = client.(embedding.Simulated)
	assert.True(t, ok)
}

func TestBuildEmbeddingClientPicksHTTPClient(t *testing.T) {
	cfg := config.IngestConfig{EmbeddingProvider: "openai", EmbeddingAPIKey: "sk-test"}
	client := buildEmbeddingClient(cfg)
	httpClient, ok := client.(*embedding.HTTPClient)
	require.True(t, ok)
	assert.Equal(t, "sk-test", httpClient.APIKey)
	assert.Equal(t, "https://api.openai.com/v1/embeddings", httpClient.Endpoint)
}
