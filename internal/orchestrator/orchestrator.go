// Package orchestrator runs a batch of documents through the ingestion
// pipeline concurrently, across three worker pools sized for the resource
// each pipeline stage actually contends on: CPU for retrieval and parsing,
// network for embedding calls, disk (the graph store) for persistence. Work
// flows through bounded channels so a slow downstream stage applies
// back-pressure instead of letting memory grow without bound, the same
// producer/consumer shape as the teacher's worker pool but wired as a
// pipeline of stages instead of one flat queue.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mhanii/corolaria-sub000/internal/ingestcontext"
	"github.com/mhanii/corolaria-sub000/internal/model"
	"github.com/mhanii/corolaria-sub000/internal/pipeline"
	"github.com/mhanii/corolaria-sub000/internal/reflink"
	"github.com/mhanii/corolaria-sub000/internal/retriever"
)

// ErrOrchestratorFatal wraps a failure that stops the whole batch rather
// than just the one document in flight: a pool that cannot make progress,
// or a linker pass that cannot reach the store.
var ErrOrchestratorFatal = errors.New("orchestrator: fatal batch failure")

// Config sizes the three worker pools and the queues between them.
type Config struct {
	CPUWorkers     int
	NetworkWorkers int
	DiskWorkers    int

	// QueueSize bounds each inter-stage channel. Zero means the default,
	// twice NetworkWorkers, used for both channels alike: enough to keep the
	// pools fed without letting an arbitrarily large batch queue unboundedly.
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.CPUWorkers <= 0 {
		c.CPUWorkers = 5
	}
	if c.NetworkWorkers <= 0 {
		c.NetworkWorkers = 20
	}
	if c.DiskWorkers <= 0 {
		c.DiskWorkers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 2 * c.NetworkWorkers
	}
	return c
}

// DocumentResult reports one document's outcome, the per-document shape the
// batch CLI result embeds under document_results.
type DocumentResult struct {
	LawID                 string
	Success               bool
	ErrorMessage          string
	FailedStep            string
	NodesCreated          int
	RelationshipsCreated  int
}

// BatchResult is everything the batch CLI command reports after a run.
type BatchResult struct {
	Total               int
	Successful          int
	Failed              int
	Duration            time.Duration
	TotalNodes          int
	TotalReferenceLinks int
	DocumentResults     []DocumentResult
}

// Orchestrator runs a batch of document IDs through pipeline.RetrieveAndProcess,
// pipeline.Embed, and pipeline.Persist across its three pools, then makes one
// reflink.Linker pass over the whole corpus once every document has settled.
type Orchestrator struct {
	Deps pipeline.Deps

	// Store backs every document's Ingestion Context so a failed document
	// can be rolled back. In production it is the same *graph.Adapter as
	// Deps.Graph; kept as a separate field (and a narrow interface) so the
	// pipeline's store dependency doesn't leak the concrete Neo4j type into
	// every caller that only needs cascade-delete.
	Store ingestcontext.GraphStore

	Linker *reflink.Linker
	Config Config
}

// New builds an Orchestrator. store must be set; it is used to open an
// Ingestion Context per document. deps.Graph must be set whenever the batch
// is expected to reach the persistence stage.
func New(deps pipeline.Deps, store ingestcontext.GraphStore, linker *reflink.Linker, cfg Config) *Orchestrator {
	return &Orchestrator{Deps: deps, Store: store, Linker: linker, Config: cfg.withDefaults()}
}

type embedJob struct {
	lawID   string
	norm    *model.Normativa
	ic      *ingestcontext.Context
}

type persistJob struct {
	lawID string
	norm  *model.Normativa
	ic    *ingestcontext.Context
}

// Run fans documentIDs out across the CPU pool, pipes survivors through the
// network pool and then the disk pool, and collects one DocumentResult per
// document. It blocks until every document has either committed or rolled
// back, then runs the bulk reference-linking pass exactly once. A context
// cancellation stops the CPU pool from picking up new documents but lets
// in-flight ones drain through to a result.
func (o *Orchestrator) Run(ctx context.Context, documentIDs []string) (BatchResult, error) {
	if o.Store == nil {
		return BatchResult{}, fmt.Errorf("%w: no graph store configured", ErrOrchestratorFatal)
	}

	start := time.Now()
	cfg := o.Config

	embedQueue := make(chan embedJob, cfg.QueueSize)
	persistQueue := make(chan persistJob, cfg.QueueSize)
	results := make(chan DocumentResult, len(documentIDs))

	var cpuWG, networkWG, diskWG sync.WaitGroup

	jobs := make(chan string)
	go func() {
		defer close(jobs)
		for _, id := range documentIDs {
			select {
			case jobs <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	cpuWG.Add(cfg.CPUWorkers)
	for i := 0; i < cfg.CPUWorkers; i++ {
		go func() {
			defer cpuWG.Done()
			o.runCPUWorker(ctx, jobs, embedQueue, results)
		}()
	}
	go func() {
		cpuWG.Wait()
		close(embedQueue)
	}()

	networkWG.Add(cfg.NetworkWorkers)
	for i := 0; i < cfg.NetworkWorkers; i++ {
		go func() {
			defer networkWG.Done()
			o.runNetworkWorker(ctx, embedQueue, persistQueue, results)
		}()
	}
	go func() {
		networkWG.Wait()
		close(persistQueue)
	}()

	diskWG.Add(cfg.DiskWorkers)
	for i := 0; i < cfg.DiskWorkers; i++ {
		go func() {
			defer diskWG.Done()
			o.runDiskWorker(ctx, persistQueue, results)
		}()
	}
	go func() {
		diskWG.Wait()
		close(results)
	}()

	batch := BatchResult{Total: len(documentIDs)}
	for r := range results {
		batch.DocumentResults = append(batch.DocumentResults, r)
		if r.Success {
			batch.Successful++
		} else {
			batch.Failed++
		}
		batch.TotalNodes += r.NodesCreated
		batch.TotalReferenceLinks += r.RelationshipsCreated
	}

	if o.Linker != nil {
		linkResult, err := o.Linker.Run(ctx)
		if err != nil {
			batch.Duration = time.Since(start)
			return batch, fmt.Errorf("%w: reference linking pass: %v", ErrOrchestratorFatal, err)
		}
		batch.TotalReferenceLinks += linkResult.EdgesCreated
	}

	batch.Duration = time.Since(start)
	return batch, nil
}

// runCPUWorker drains jobs, running RetrieveAndProcess for each document ID
// and handing survivors to embedQueue. A fetch that fails with
// retriever.ErrSourceUnavailable is retried once, under a fresh Ingestion
// Context. Any other failure, or a second one, is terminal for that
// document: its Ingestion Context is closed, which runs the cascade delete
// (finding nothing, since nothing was written yet), and a failure result is
// reported directly.
func (o *Orchestrator) runCPUWorker(ctx context.Context, jobs <-chan string, embedQueue chan<- embedJob, results chan<- DocumentResult) {
	for lawID := range jobs {
		ic := ingestcontext.New(lawID, o.Store)

		norm, _, err := pipeline.RetrieveAndProcess(ctx, o.Deps, lawID, ic)
		if errors.Is(err, retriever.ErrSourceUnavailable) {
			ic = ingestcontext.New(lawID, o.Store)
			norm, _, err = pipeline.RetrieveAndProcess(ctx, o.Deps, lawID, ic)
		}
		if err != nil {
			o.failDocument(ctx, ic, lawID, pipeline.StepRetrieve, err, results)
			continue
		}

		select {
		case embedQueue <- embedJob{lawID: lawID, norm: norm, ic: ic}:
		case <-ctx.Done():
			o.failDocument(ctx, ic, lawID, pipeline.StepProcess, ctx.Err(), results)
		}
	}
}

// runNetworkWorker drains embedQueue, running Embed for each document and
// handing survivors to persistQueue.
func (o *Orchestrator) runNetworkWorker(ctx context.Context, embedQueue <-chan embedJob, persistQueue chan<- persistJob, results chan<- DocumentResult) {
	for job := range embedQueue {
		if _, err := pipeline.Embed(ctx, o.Deps, job.norm, job.ic); err != nil {
			o.failDocument(ctx, job.ic, job.lawID, pipeline.StepEmbed, err, results)
			continue
		}

		select {
		case persistQueue <- persistJob{lawID: job.lawID, norm: job.norm, ic: job.ic}:
		case <-ctx.Done():
			o.failDocument(ctx, job.ic, job.lawID, pipeline.StepEmbed, ctx.Err(), results)
		}
	}
}

// runDiskWorker drains persistQueue, running Persist for each document,
// committing its Ingestion Context on success, and reporting the final
// DocumentResult either way.
func (o *Orchestrator) runDiskWorker(ctx context.Context, persistQueue <-chan persistJob, results chan<- DocumentResult) {
	for job := range persistQueue {
		result, err := pipeline.Persist(ctx, o.Deps, job.norm, job.ic)
		if err != nil {
			o.failDocument(ctx, job.ic, job.lawID, pipeline.StepPersist, err, results)
			continue
		}

		job.ic.Commit()
		_ = job.ic.Close(ctx)
		results <- DocumentResult{
			LawID:                 job.lawID,
			Success:               true,
			NodesCreated:          result.NodesCreated,
			RelationshipsCreated:  result.RelationshipsCreated,
		}
	}
}

// failDocument closes ic (rolling back any partial writes), and reports the
// failure on results. fallbackStep names the stage that called this when
// the pipeline step itself hasn't already marked ic failed (the
// context-cancellation path below an otherwise successful step); when a
// step already recorded the failure, that step's own name is reported
// instead, since it is the one that actually raised err.
func (o *Orchestrator) failDocument(ctx context.Context, ic *ingestcontext.Context, lawID, fallbackStep string, err error, results chan<- DocumentResult) {
	if !ic.Failed() {
		ic.MarkFailed(fallbackStep, err)
	}
	_ = ic.Close(ctx)

	failedStep := ic.LastFailedStep()
	if failedStep == "" {
		failedStep = fallbackStep
	}

	nodes, edges := ic.Totals()
	results <- DocumentResult{
		LawID:                 lawID,
		Success:               false,
		ErrorMessage:          err.Error(),
		FailedStep:            failedStep,
		NodesCreated:          nodes,
		RelationshipsCreated:  edges,
	}
}
