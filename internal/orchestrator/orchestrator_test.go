package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhanii/corolaria-sub000/internal/model"
	"github.com/mhanii/corolaria-sub000/internal/pipeline"
	"github.com/mhanii/corolaria-sub000/internal/retriever"
)

type fakeSource struct {
	content string
	meta    model.Metadata
	err     error
}

func (f *fakeSource) Fetch(context.Context, string) (string, model.Metadata, error) {
	return f.content, f.meta, f.err
}

type fakeEmbedClient struct{}

func (f *fakeEmbedClient) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

// fakeGraphStore stands in for *graph.Adapter's cascade-delete surface, so
// failure-path tests run without a live Neo4j connection.
type fakeGraphStore struct {
	deleted []string
}

func (f *fakeGraphStore) DeleteDocumentCascade(_ context.Context, docID string) error {
	f.deleted = append(f.deleted, docID)
	return nil
}

func TestRunFailsFastWithoutGraphStore(t *testing.T) {
	o := New(pipeline.Deps{}, nil, nil, Config{})
	_, err := o.Run(context.Background(), []string{"BOE-A-2020-1"})
	require.Error(t, err)
}

func TestRunReportsRetrievalFailureAsDocumentResult(t *testing.T) {
	boe := &fakeSource{err: retriever.ErrDocumentNotFound}
	deps := pipeline.Deps{
		Retriever: &retriever.Retriever{BOE: boe},
		Embedding: &fakeEmbedClient{},
	}
	store := &fakeGraphStore{}

	o := New(deps, store, nil, Config{CPUWorkers: 1, NetworkWorkers: 1, DiskWorkers: 1})
	batch, err := o.Run(context.Background(), []string{"BOE-A-2020-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, batch.Total)
	assert.Equal(t, 0, batch.Successful)
	assert.Equal(t, 1, batch.Failed)
	require.Len(t, batch.DocumentResults, 1)
	assert.Equal(t, "BOE-A-2020-1", batch.DocumentResults[0].LawID)
	assert.False(t, batch.DocumentResults[0].Success)
	assert.Equal(t, pipeline.StepRetrieve, batch.DocumentResults[0].FailedStep)
	// the failed document's context is still rolled back; the cascade delete
	// simply finds nothing, since nothing was ever written to the store
	assert.Equal(t, []string{"BOE-A-2020-1"}, store.deleted)
}

func TestRunAggregatesMultipleRetrievalFailures(t *testing.T) {
	boe := &fakeSource{err: retriever.ErrDocumentNotFound}
	deps := pipeline.Deps{Retriever: &retriever.Retriever{BOE: boe}}
	store := &fakeGraphStore{}

	o := New(deps, store, nil, Config{CPUWorkers: 2, NetworkWorkers: 2, DiskWorkers: 1})
	batch, err := o.Run(context.Background(), []string{"BOE-A-2020-1", "BOE-A-2020-2", "BOE-A-2020-3"})
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Total)
	assert.Equal(t, 3, batch.Failed)
	assert.Equal(t, 0, batch.Successful)
	assert.Len(t, batch.DocumentResults, 3)
}

func TestConfigWithDefaultsFillsPoolSizes(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 5, cfg.CPUWorkers)
	assert.Equal(t, 20, cfg.NetworkWorkers)
	assert.Equal(t, 2, cfg.DiskWorkers)
	assert.Equal(t, 40, cfg.QueueSize)
}

func TestConfigWithDefaultsPreservesOverrides(t *testing.T) {
	cfg := Config{CPUWorkers: 1, NetworkWorkers: 1, DiskWorkers: 1, QueueSize: 3}.withDefaults()
	assert.Equal(t, 1, cfg.CPUWorkers)
	assert.Equal(t, 1, cfg.NetworkWorkers)
	assert.Equal(t, 1, cfg.DiskWorkers)
	assert.Equal(t, 3, cfg.QueueSize)
}
