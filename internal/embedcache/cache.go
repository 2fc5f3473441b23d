// Package embedcache provides a content-addressed cache for embedding
// vectors, keyed by a fingerprint over the request that produced them so an
// unchanged article is never re-embedded.
package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mhanii/corolaria-sub000/db/bolt"
)

const bucketName = "embeddings"

// Entry is the cached record for one fingerprint, mirroring the logical
// (fingerprint, provider, model, dims, task_type, text_hash, vector,
// created_at) schema from the ingestion spec.
type Entry struct {
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Dims      int       `json:"dims"`
	TaskType  string    `json:"task_type"`
	TextHash  string    `json:"text_hash"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache stores embedding vectors in a single-file bbolt database, addressed
// by a fingerprint of the request that produced them.
type Cache struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the bbolt-backed cache at path.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	if err := db.CreateBucket(bucketName); err != nil {
		return nil, fmt.Errorf("create embedding bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Fingerprint computes the content-addressed cache key over the provider,
// model, vector dimensionality, task type, and the text being embedded. Any
// change to the request shape or the text itself produces a different key,
// so a stale cache entry is never returned for text that changed.
func Fingerprint(provider, model string, dims int, taskType, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%s|%s", provider, model, dims, taskType, text)
	return hex.EncodeToString(h.Sum(nil))
}

func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached entry for fingerprint, provided it was stored for
// the same vector dimensionality; a dims mismatch (e.g. the provider's
// model changed) is treated as a miss rather than returning a vector the
// caller can't use.
func (c *Cache) Get(fingerprint string, dims int) (*Entry, bool) {
	var entry Entry
	if err := c.db.GetJSON(bucketName, fingerprint, &entry); err != nil {
		return nil, false
	}
	if entry.Dims != dims {
		return nil, false
	}
	return &entry, true
}

// Put stores vector under fingerprint, overwriting any prior value and
// stamping CreatedAt and the text's hash.
func (c *Cache) Put(fingerprint, provider, model string, dims int, taskType, text string, vector []float32) error {
	entry := Entry{
		Provider:  provider,
		Model:     model,
		Dims:      dims,
		TaskType:  taskType,
		TextHash:  textHash(text),
		Vector:    vector,
		CreatedAt: time.Now().UTC(),
	}
	return c.db.PutJSON(bucketName, fingerprint, entry)
}
