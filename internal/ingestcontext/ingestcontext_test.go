package ingestcontext

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStepTracksDurationAndCounts(t *testing.T) {
	c := New("BOE-A-2015-11430", nil)
	c.MarkStepStarted("data_retriever")
	c.RecordStep("data_retriever", 10*time.Millisecond, 0, 0)

	c.MarkStepStarted("graph_construction")
	c.RecordStep("graph_construction", 5*time.Millisecond, 4, 3)

	steps := c.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, StepSucceeded, steps[0].Status)
	assert.Equal(t, StepSucceeded, steps[1].Status)

	nodes, edges := c.Totals()
	assert.Equal(t, 4, nodes)
	assert.Equal(t, 3, edges)
}

func TestMarkFailedFlagsContextFailed(t *testing.T) {
	c := New("BOE-A-2015-11430", nil)
	c.MarkStepStarted("embedding_generator")
	c.MarkFailed("embedding_generator", errors.New("provider unreachable"))

	assert.True(t, c.Failed())
	steps := c.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, StepFailed, steps[0].Status)
	assert.Error(t, steps[0].Err)
}

func TestCloseWithoutFailureDoesNotRollback(t *testing.T) {
	c := New("BOE-A-2015-11430", nil)
	c.MarkStepStarted("data_retriever")
	c.RecordStep("data_retriever", time.Millisecond, 0, 0)

	require.NoError(t, c.Close(context.Background()))
	assert.False(t, c.WasRolledBack())
}

func TestCloseAfterCommitDoesNotRollbackEvenIfFailed(t *testing.T) {
	c := New("BOE-A-2015-11430", nil)
	c.MarkStepStarted("graph_construction")
	c.MarkFailed("graph_construction", errors.New("boom"))
	c.Commit()

	require.NoError(t, c.Close(context.Background()))
	assert.False(t, c.WasRolledBack())
}

func TestCloseAfterFailureAttemptsRollback(t *testing.T) {
	c := New("BOE-A-2015-11430", nil) // nil store: rollback itself fails, but is attempted
	c.MarkStepStarted("graph_construction")
	c.MarkFailed("graph_construction", errors.New("boom"))

	err := c.Close(context.Background())
	assert.Error(t, err)
	assert.True(t, c.WasRolledBack())
}

type fakeStore struct {
	deletedIDs []string
	err        error
}

func (f *fakeStore) DeleteDocumentCascade(_ context.Context, docID string) error {
	f.deletedIDs = append(f.deletedIDs, docID)
	return f.err
}

func TestCloseAfterFailureDeletesViaStore(t *testing.T) {
	store := &fakeStore{}
	c := New("BOE-A-2015-11430", store)
	c.MarkStepStarted("graph_construction")
	c.MarkFailed("graph_construction", errors.New("boom"))

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, []string{"BOE-A-2015-11430"}, store.deletedIDs)
	assert.True(t, c.WasRolledBack())
}

func TestRollbackIsIdempotent(t *testing.T) {
	c := New("BOE-A-2015-11430", nil)
	_ = c.Rollback(context.Background())
	err := c.Rollback(context.Background())
	assert.NoError(t, err) // second call short-circuits before touching the (nil) adapter
}

func TestNewStandaloneBuildsUsableContext(t *testing.T) {
	c := NewStandalone("BOE-A-2015-11430", nil)
	assert.Equal(t, "BOE-A-2015-11430", c.LawID)
	assert.False(t, c.WasRolledBack())
}
