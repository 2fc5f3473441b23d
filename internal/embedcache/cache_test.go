package embedcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "embeddings.bbolt")
	c, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCachePutThenGetReturnsSameVector(t *testing.T) {
	c := openTestCache(t)
	fp := Fingerprint("simulated", "test-model", 3, "document", "hola mundo")
	vec := []float32{0.1, 0.2, 0.3}

	require.NoError(t, c.Put(fp, "simulated", "test-model", 3, "document", "hola mundo", vec))

	got, ok := c.Get(fp, 3)
	require.True(t, ok)
	assert.Equal(t, vec, got.Vector)
}

func TestCacheGetMissingIsMiss(t *testing.T) {
	c := openTestCache(t)
	_, ok := c.Get("does-not-exist", 3)
	assert.False(t, ok)
}

func TestCacheGetDimsMismatchIsMiss(t *testing.T) {
	c := openTestCache(t)
	fp := Fingerprint("simulated", "test-model", 3, "document", "text")
	require.NoError(t, c.Put(fp, "simulated", "test-model", 3, "document", "text", []float32{1, 2, 3}))

	_, ok := c.Get(fp, 768)
	assert.False(t, ok)
}

func TestFingerprintChangesWithText(t *testing.T) {
	a := Fingerprint("simulated", "m", 3, "document", "alpha")
	b := Fingerprint("simulated", "m", 3, "document", "beta")
	assert.NotEqual(t, a, b)
}
