// Package ingestcontext tracks one document's progress through the
// ingestion pipeline and owns the decision of whether that document's
// partial graph writes survive or get torn down. A Context is created
// before the first pipeline step runs and closed after the last one; a
// document that fails partway through is rolled back by cascading delete,
// never left half-written.
package ingestcontext

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// GraphStore is the cascade-delete surface a Context needs to roll a
// document back. graph.Adapter satisfies it; tests use a fake so rollback
// logic runs without a live store.
type GraphStore interface {
	DeleteDocumentCascade(ctx context.Context, docID string) error
}

// StepStatus is the lifecycle state of one named pipeline step.
type StepStatus string

const (
	StepRunning   StepStatus = "running"
	StepSucceeded StepStatus = "success"
	StepFailed    StepStatus = "failed"
)

// StepResult records what happened during one pipeline step.
type StepResult struct {
	Name                  string
	Status                StepStatus
	Duration              time.Duration
	NodesCreated          int
	RelationshipsCreated  int
	Err                   error
}

// Context is the per-document ingestion ledger. It is not safe to share
// across documents; the orchestrator creates one per law ID and threads it
// through every pool that touches that document.
type Context struct {
	LawID string
	Store GraphStore

	mu         sync.Mutex
	steps      []StepResult
	failed     bool
	committed  bool
	rolledBack bool
}

// New builds a Context for lawID, ready to receive step bookkeeping calls as
// the pipeline runs against store.
func New(lawID string, store GraphStore) *Context {
	return &Context{LawID: lawID, Store: store}
}

// NewStandalone builds a Context for manual rollback outside a pipeline
// run, the one the rollback CLI subcommand uses: it needs nothing but the
// law ID and an open store to call Rollback.
func NewStandalone(lawID string, store GraphStore) *Context {
	return New(lawID, store)
}

// MarkStepStarted appends a running entry for name. Call once per step,
// before the step's work begins.
func (c *Context) MarkStepStarted(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, StepResult{Name: name, Status: StepRunning})
}

// RecordStep closes out name's entry as successful, recording how long it
// took and what it wrote.
func (c *Context) RecordStep(name string, duration time.Duration, nodes, edges int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.lastIndexLocked(name)
	if idx < 0 {
		c.steps = append(c.steps, StepResult{Name: name})
		idx = len(c.steps) - 1
	}
	c.steps[idx].Status = StepSucceeded
	c.steps[idx].Duration = duration
	c.steps[idx].NodesCreated = nodes
	c.steps[idx].RelationshipsCreated = edges
}

// MarkFailed closes out name's entry as failed and flags the Context so
// Close rolls the document back instead of committing it.
func (c *Context) MarkFailed(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.lastIndexLocked(name)
	if idx < 0 {
		c.steps = append(c.steps, StepResult{Name: name})
		idx = len(c.steps) - 1
	}
	c.steps[idx].Status = StepFailed
	c.steps[idx].Err = err
	c.failed = true
}

func (c *Context) lastIndexLocked(name string) int {
	for i := len(c.steps) - 1; i >= 0; i-- {
		if c.steps[i].Name == name {
			return i
		}
	}
	return -1
}

// Commit finalizes a successful run: once committed, Close no longer rolls
// back even if a later caller mistakenly reports a failure.
func (c *Context) Commit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed = true
}

// Rollback deletes every node this document wrote, via a cascading delete
// keyed on LawID. Idempotent: a second call against an already-rolled-back
// (or never-written) document matches nothing and succeeds.
func (c *Context) Rollback(ctx context.Context) error {
	c.mu.Lock()
	if c.rolledBack {
		c.mu.Unlock()
		return nil
	}
	c.rolledBack = true
	c.mu.Unlock()

	if c.Store == nil {
		return fmt.Errorf("rollback %s: no graph store", c.LawID)
	}
	if err := c.Store.DeleteDocumentCascade(ctx, c.LawID); err != nil {
		return fmt.Errorf("rollback %s: %w", c.LawID, err)
	}
	return nil
}

// Close ends the Context's scope. A document that failed and was never
// explicitly committed is rolled back here; a document that committed, or
// that never failed, is left exactly as the pipeline wrote it. Safe to call
// more than once.
func (c *Context) Close(ctx context.Context) error {
	c.mu.Lock()
	shouldRollback := c.failed && !c.committed
	c.mu.Unlock()

	if shouldRollback {
		return c.Rollback(ctx)
	}
	return nil
}

// WasRolledBack reports whether Close (or an explicit Rollback call) tore
// this document's writes down.
func (c *Context) WasRolledBack() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rolledBack
}

// Failed reports whether any step has been marked failed.
func (c *Context) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// Steps returns a snapshot of every step recorded so far, in call order.
func (c *Context) Steps() []StepResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]StepResult, len(c.steps))
	copy(out, c.steps)
	return out
}

// Totals sums NodesCreated and RelationshipsCreated across every recorded
// step.
func (c *Context) Totals() (nodes, relationships int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.steps {
		nodes += s.NodesCreated
		relationships += s.RelationshipsCreated
	}
	return nodes, relationships
}

// LastFailedStep returns the name of the most recently failed step, or ""
// if none failed yet.
func (c *Context) LastFailedStep() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.steps) - 1; i >= 0; i-- {
		if c.steps[i].Status == StepFailed {
			return c.steps[i].Name
		}
	}
	return ""
}
