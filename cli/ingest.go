package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mhanii/corolaria-sub000/config"
	"github.com/mhanii/corolaria-sub000/internal/ingestcontext"
	"github.com/mhanii/corolaria-sub000/internal/orchestrator"
	"github.com/mhanii/corolaria-sub000/internal/persistence"
	"github.com/mhanii/corolaria-sub000/internal/pipeline"
	"github.com/mhanii/corolaria-sub000/resources"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest one document (--law-id) or a batch of documents (--batch)",
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().String("law-id", "", "BOE/EUR-Lex/archive document ID to ingest in single-document mode")
	ingestCmd.Flags().String("batch", "", "file of document IDs, one per line, to ingest in batch mode")
	ingestCmd.Flags().Bool("dry-run", false, "run retrieval and parsing only; skip embedding and graph writes")
	ingestCmd.Flags().String("output-json", "", "write the run result as JSON to this file instead of stdout")
	ingestCmd.Flags().Int("semaphore", 0, "max documents in flight between worker pools (default twice network-workers)")

	ingestCmd.Flags().Int("cpu-workers", 0, "worker pool size for retrieval and parsing")
	ingestCmd.Flags().Int("network-workers", 0, "worker pool size for embedding calls")
	ingestCmd.Flags().Int("disk-workers", 0, "worker pool size for graph persistence")
	ingestCmd.Flags().Int("scatter-chunk-size", 0, "articles fetched per reference-linking chunk")
	ingestCmd.Flags().Bool("skip-embeddings", false, "persist documents with nil article embeddings")
	ingestCmd.Flags().Bool("simulate", false, "use deterministic simulated embeddings instead of a real provider")
	ingestCmd.Flags().Bool("clean", false, "bypass the embedding cache for this run")

	for _, name := range []string{
		"cpu-workers", "network-workers", "disk-workers", "scatter-chunk-size",
		"skip-embeddings", "simulate", "clean",
	} {
		if err := viper.BindPFlag(name, ingestCmd.Flags().Lookup(name)); err != nil {
			log.WithError(err).Fatalf("bind flag %s", name)
		}
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := config.Load(viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return err
	}

	lawID, _ := cmd.Flags().GetString("law-id")
	batchPath, _ := cmd.Flags().GetString("batch")
	if lawID == "" && batchPath == "" {
		return fmt.Errorf("ingest requires either --law-id or --batch")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifySignals(cancel)

	shutdownTracing := startTracing(cfg)
	defer shutdownTracing(context.Background())

	mgr := buildResources(cfg)
	if err := mgr.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize resources: %w", err)
	}
	defer mgr.Close()

	if err := mgr.PrepareDatabase(ctx); err != nil {
		return fmt.Errorf("prepare database: %w", err)
	}

	retrieverSet, err := buildRetriever(ctx, cfg)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	deps := pipeline.Deps{
		Retriever:      retrieverSet,
		Embedding:      mgr.Embedding,
		Graph:          mgr.Graph,
		SkipEmbeddings: cfg.SkipEmbeddings || dryRun,
		Warn:           func(msg string) { log.WithField("law_id", lawID).Warn(msg) },
		PersistOptions: persistence.Options{},
	}

	outputPath, _ := cmd.Flags().GetString("output-json")

	if lawID != "" {
		return runSingleDocument(ctx, deps, lawID, dryRun, outputPath)
	}

	semaphore, _ := cmd.Flags().GetInt("semaphore")
	return runBatch(ctx, deps, mgr, cfg, batchPath, outputPath, semaphore)
}

// notifySignals cancels ctx on SIGINT/SIGTERM so an in-flight batch drains
// instead of the process dying mid-write.
func notifySignals(cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Warn("received shutdown signal, draining in-flight documents")
		cancel()
	}()
}

// singleDocumentResult is the stable JSON shape for a one-document ingest run.
type singleDocumentResult struct {
	LawID                string           `json:"law_id"`
	Status               string           `json:"status"`
	DurationSeconds      float64          `json:"duration_seconds"`
	StepResults          []stepResultJSON `json:"step_results"`
	NodesCreated         int              `json:"nodes_created"`
	RelationshipsCreated int              `json:"relationships_created"`
	WasRolledBack        bool             `json:"was_rolled_back"`
}

type stepResultJSON struct {
	StepName        string  `json:"step_name"`
	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds"`
	ErrorMessage    string  `json:"error_message,omitempty"`
}

func runSingleDocument(ctx context.Context, deps pipeline.Deps, lawID string, dryRun bool, outputPath string) error {
	start := time.Now()
	ic := ingestcontext.New(lawID, ingestGraphStore(deps))

	var runErr error
	if dryRun {
		_, _, runErr = pipeline.RetrieveAndProcess(ctx, deps, lawID, ic)
	} else {
		_, runErr = pipeline.Run(ctx, deps, lawID, ic)
		if runErr == nil {
			ic.Commit()
		}
	}
	closeErr := ic.Close(ctx)

	result := singleDocumentResult{
		LawID:           lawID,
		DurationSeconds: time.Since(start).Seconds(),
		WasRolledBack:   ic.WasRolledBack(),
	}
	result.NodesCreated, result.RelationshipsCreated = ic.Totals()
	for _, s := range ic.Steps() {
		step := stepResultJSON{StepName: s.Name, Status: string(s.Status), DurationSeconds: s.Duration.Seconds()}
		if s.Err != nil {
			step.ErrorMessage = s.Err.Error()
		}
		result.StepResults = append(result.StepResults, step)
	}

	switch {
	case runErr != nil && ic.WasRolledBack():
		result.Status = "rolled_back"
	case runErr != nil:
		result.Status = "failed"
	default:
		result.Status = "success"
	}

	if err := writeJSONResult(outputPath, result); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	return closeErr
}

// ingestGraphStore narrows deps.Graph to the cascade-delete surface an
// Ingestion Context needs, staying nil when no graph is configured (tests)
// rather than wrapping a nil *graph.Adapter behind a non-nil interface
// value. runIngest opens the graph store for every run, --dry-run included,
// so a dry run's context holds the live adapter.
func ingestGraphStore(deps pipeline.Deps) ingestcontext.GraphStore {
	if deps.Graph == nil {
		return nil
	}
	return deps.Graph
}

// batchResultJSON is the stable JSON shape for a batch ingest run.
type batchResultJSON struct {
	Total               int                  `json:"total"`
	Successful          int                  `json:"successful"`
	Failed              int                  `json:"failed"`
	DurationSeconds     float64              `json:"duration_seconds"`
	TotalNodes          int                  `json:"total_nodes"`
	TotalReferenceLinks int                  `json:"total_reference_links"`
	EmbeddingsSkipped   bool                 `json:"embeddings_skipped"`
	DocumentResults     []documentResultJSON `json:"document_results"`
}

type documentResultJSON struct {
	LawID                string `json:"law_id"`
	Success              bool   `json:"success"`
	ErrorMessage         string `json:"error_message,omitempty"`
	FailedStep           string `json:"failed_step,omitempty"`
	NodesCreated         int    `json:"nodes_created"`
	RelationshipsCreated int    `json:"relationships_created"`
}

func runBatch(ctx context.Context, deps pipeline.Deps, mgr *resources.Manager, cfg config.IngestConfig, batchPath, outputPath string, semaphore int) error {
	documentIDs, err := readBatchFile(batchPath)
	if err != nil {
		return err
	}

	linker, closeSink, err := buildLinker(mgr, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	orch := orchestrator.New(deps, mgr.Graph, linker, orchestrator.Config{
		CPUWorkers:     cfg.CPUWorkers,
		NetworkWorkers: cfg.NetworkWorkers,
		DiskWorkers:    cfg.DiskWorkers,
		QueueSize:      semaphore,
	})

	batch, runErr := orch.Run(ctx, documentIDs)

	result := batchResultJSON{
		Total:               batch.Total,
		Successful:          batch.Successful,
		Failed:              batch.Failed,
		DurationSeconds:     batch.Duration.Seconds(),
		TotalNodes:          batch.TotalNodes,
		TotalReferenceLinks: batch.TotalReferenceLinks,
		EmbeddingsSkipped:   deps.SkipEmbeddings,
	}
	for _, d := range batch.DocumentResults {
		result.DocumentResults = append(result.DocumentResults, documentResultJSON{
			LawID: d.LawID, Success: d.Success, ErrorMessage: d.ErrorMessage,
			FailedStep: d.FailedStep, NodesCreated: d.NodesCreated, RelationshipsCreated: d.RelationshipsCreated,
		})
	}

	if writeErr := writeJSONResult(outputPath, result); writeErr != nil {
		return writeErr
	}
	return runErr
}

func readBatchFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file %s: %w", path, err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch file %s: %w", path, err)
	}
	return ids, nil
}

func writeJSONResult(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
