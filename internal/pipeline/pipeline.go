// Package pipeline runs one document through the ingestion engine's four
// ordered steps: retrieval, parsing, embedding, and graph persistence. Run
// executes them sequentially for the single-document CLI path; the batch
// orchestrator calls the same Retrieve/Process/Embed/Persist stage
// functions directly so each can be scheduled on its own worker pool.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/mhanii/corolaria-sub000/internal/embedstep"
	"github.com/mhanii/corolaria-sub000/internal/graph"
	"github.com/mhanii/corolaria-sub000/internal/ingestcontext"
	"github.com/mhanii/corolaria-sub000/internal/model"
	"github.com/mhanii/corolaria-sub000/internal/persistence"
	"github.com/mhanii/corolaria-sub000/internal/retriever"
	"github.com/mhanii/corolaria-sub000/internal/tree"
)

// Step names match the Ingestion Context's step ledger and the CLI's
// step_results JSON field exactly; nothing else in the engine refers to
// them by a different spelling.
const (
	StepRetrieve = "data_retriever"
	StepProcess  = "data_processor"
	StepEmbed    = "embedding_generator"
	StepPersist  = "graph_construction"
)

var tracer = otel.Tracer("corolaria/pipeline")

// Deps wires the pipeline's stage functions to the concrete adapters that do
// the work. Embedding is never called when SkipEmbeddings is set (the run
// was started with --skip-embeddings or --dry-run); Graph is nil only in
// tests that stop short of Persist.
type Deps struct {
	Retriever      *retriever.Retriever
	Embedding      embedstep.Client
	Graph          *graph.Adapter
	SkipEmbeddings bool
	Warn           func(string)
	PersistOptions persistence.Options
}

// Result is what one complete pipeline run produced.
type Result struct {
	Normativa             *model.Normativa
	Changes               []model.ChangeEvent
	EmbeddedArticles      int
	NodesCreated          int
	RelationshipsCreated  int
}

// Run executes all four steps against documentID in order, recording each
// one on ic as it completes or fails. The caller is responsible for calling
// ic.Commit() on success and ic.Close(ctx) when the run's scope ends.
func Run(ctx context.Context, deps Deps, documentID string, ic *ingestcontext.Context) (Result, error) {
	norm, changes, err := RetrieveAndProcess(ctx, deps, documentID, ic)
	if err != nil {
		return Result{}, err
	}

	embedded, err := Embed(ctx, deps, norm, ic)
	if err != nil {
		return Result{}, err
	}

	persistResult, err := Persist(ctx, deps, norm, ic)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Normativa:            norm,
		Changes:              changes,
		EmbeddedArticles:     embedded,
		NodesCreated:         persistResult.NodesCreated,
		RelationshipsCreated: persistResult.RelationshipsCreated,
	}, nil
}

// RetrieveAndProcess runs data_retriever and data_processor, the two steps
// the orchestrator schedules on its CPU pool: fetching documentID's raw
// content and folding it into a typed Normativa tree, with historical
// article versions already merged by the builder.
func RetrieveAndProcess(ctx context.Context, deps Deps, documentID string, ic *ingestcontext.Context) (*model.Normativa, []model.ChangeEvent, error) {
	ic.MarkStepStarted(StepRetrieve)
	start := time.Now()
	retrieveCtx, span := tracer.Start(ctx, StepRetrieve)
	rawDoc, meta, err := deps.Retriever.Fetch(retrieveCtx, documentID)
	span.End()
	if err != nil {
		ic.MarkFailed(StepRetrieve, err)
		return nil, nil, fmt.Errorf("%s: %w", StepRetrieve, err)
	}
	ic.RecordStep(StepRetrieve, time.Since(start), 0, 0)

	ic.MarkStepStarted(StepProcess)
	start = time.Now()
	_, span = tracer.Start(ctx, StepProcess)
	buildResult, err := tree.Build(rawDoc, tree.Options{DocumentPrefix: documentID, Warn: deps.Warn})
	span.End()
	if err != nil {
		ic.MarkFailed(StepProcess, err)
		return nil, nil, fmt.Errorf("%s: %w", StepProcess, err)
	}
	ic.RecordStep(StepProcess, time.Since(start), 0, 0)

	norm := &model.Normativa{
		ID:         documentID,
		Metadata:   meta,
		Root:       buildResult.Root,
		IngestedAt: time.Now().UTC(),
	}
	return norm, buildResult.Changes, nil
}

// Embed runs embedding_generator, the step the orchestrator schedules on
// its network pool. When deps.SkipEmbeddings is set, every article keeps a
// nil embedding and the step is recorded with zero articles embedded,
// matching the spec's "store nil, not a zero vector" rule for skipped runs.
func Embed(ctx context.Context, deps Deps, norm *model.Normativa, ic *ingestcontext.Context) (int, error) {
	ic.MarkStepStarted(StepEmbed)
	start := time.Now()
	embedCtx, span := tracer.Start(ctx, StepEmbed)
	defer span.End()

	if deps.SkipEmbeddings || deps.Embedding == nil {
		ic.RecordStep(StepEmbed, time.Since(start), 0, 0)
		return 0, nil
	}

	embedded, err := embedstep.Run(embedCtx, deps.Embedding, norm.Root)
	if err != nil {
		ic.MarkFailed(StepEmbed, err)
		return 0, fmt.Errorf("%s: %w", StepEmbed, err)
	}
	ic.RecordStep(StepEmbed, time.Since(start), embedded, 0)
	return embedded, nil
}

// Persist runs graph_construction, the step the orchestrator schedules on
// its disk pool: one batched node write and one batched edge write per
// document.
func Persist(ctx context.Context, deps Deps, norm *model.Normativa, ic *ingestcontext.Context) (persistence.Result, error) {
	ic.MarkStepStarted(StepPersist)
	start := time.Now()
	persistCtx, span := tracer.Start(ctx, StepPersist)
	defer span.End()

	opts := deps.PersistOptions
	if opts.Source == "" {
		opts.Source = sourceTag(norm.ID)
	}

	result, err := persistence.Persist(persistCtx, deps.Graph, norm, opts)
	if err != nil {
		ic.MarkFailed(StepPersist, err)
		return persistence.Result{}, fmt.Errorf("%s: %w", StepPersist, err)
	}
	ic.RecordStep(StepPersist, time.Since(start), result.NodesCreated, result.RelationshipsCreated)
	return result, nil
}

// sourceTag derives the Normativa.source property from a document ID's
// namespace prefix when the caller hasn't set one explicitly.
func sourceTag(documentID string) string {
	switch {
	case strings.HasPrefix(documentID, "CELEX:"):
		return "EUR-Lex"
	case strings.HasPrefix(documentID, "BOE-"):
		return "BOE"
	case strings.HasPrefix(documentID, "ARCHIVE:"):
		return "Archive"
	default:
		return "unknown"
	}
}
