// Package reflink runs the bulk reference-linking pass over every article
// already persisted to the graph, turning in-text citations found by
// internal/refextract into REFERS_TO/MODIFIES/DEROGATES edges.
package reflink

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mhanii/corolaria-sub000/internal/graph"
	"github.com/mhanii/corolaria-sub000/internal/model"
	"github.com/mhanii/corolaria-sub000/internal/refextract"
)

// ArticleRef is the slice of an article's graph record the linker needs to
// extract and resolve its references.
type ArticleRef struct {
	ID             string
	Label          string // "ARTICULO" or "ARTICULO_UNICO"
	DocumentID     string
	CleanNumber    string
	FullText       string
	FechaVigencia  time.Time
	FechaCaducidad *time.Time
}

// Store is the persistence surface the linker needs: paginated article
// fetch, same-document lookup by clean number, document existence, and edge
// flush. GraphStore implements it against a live graph.Adapter; tests use an
// in-memory fake so resolution logic runs without Neo4j.
type Store interface {
	FetchArticles(ctx context.Context, offset, limit int) ([]ArticleRef, error)
	FindArticleByCleanNumber(ctx context.Context, documentID, cleanNumber string) (ArticleRef, bool, error)
	DocumentExists(ctx context.Context, documentID string) (bool, error)
	FlushEdges(ctx context.Context, edges []graph.EdgeRecord) error
}

// UnresolvedSink receives every external reference the linker could not
// resolve to a target document (no resolved BOE ID, or that document is not
// in the store), so the caller can write it to the unresolved-reference
// debug log. Internal references that do not resolve are not reported.
type UnresolvedSink func(documentID, articleID string, ref model.ExtractedReference)

// Options configures one linker run.
type Options struct {
	ChunkSize       int
	Workers         int
	UnresolvedSink  UnresolvedSink
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 5000
	}
	if o.Workers <= 0 {
		o.Workers = 6
	}
	return o
}

// Result reports one linker run's totals.
type Result struct {
	ArticlesScanned int
	EdgesCreated    int
}

// Linker performs the chunked, worker-pooled reference-linking pass.
type Linker struct {
	Store     Store
	Extractor *refextract.Extractor
	Options   Options
}

// New builds a Linker, defaulting Extractor to a fresh refextract.Extractor
// when nil.
func New(store Store, extractor *refextract.Extractor, opts Options) *Linker {
	if extractor == nil {
		extractor = refextract.NewExtractor()
	}
	return &Linker{Store: store, Extractor: extractor, Options: opts.withDefaults()}
}

// Run scans every article in Store, chunk by chunk, resolving references and
// flushing the resulting edges once per chunk. Safe to re-run: resolution is
// deterministic and flush is a MERGE, so repeated runs over the same corpus
// produce the same edges.
func (l *Linker) Run(ctx context.Context) (Result, error) {
	var result Result
	offset := 0
	for {
		articles, err := l.Store.FetchArticles(ctx, offset, l.Options.ChunkSize)
		if err != nil {
			return result, fmt.Errorf("fetch article chunk at offset %d: %w", offset, err)
		}
		if len(articles) == 0 {
			break
		}

		edges, err := l.processChunk(ctx, articles)
		if err != nil {
			return result, err
		}
		if err := l.Store.FlushEdges(ctx, edges); err != nil {
			return result, fmt.Errorf("flush edge chunk at offset %d: %w", offset, err)
		}

		result.ArticlesScanned += len(articles)
		result.EdgesCreated += len(edges)

		if len(articles) < l.Options.ChunkSize {
			break
		}
		offset += len(articles)
	}
	return result, nil
}

// processChunk fans one chunk of articles out across Options.Workers
// goroutines and collects the resolved edges.
func (l *Linker) processChunk(ctx context.Context, articles []ArticleRef) ([]graph.EdgeRecord, error) {
	workers := l.Options.Workers
	if workers > len(articles) {
		workers = len(articles)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan ArticleRef)
	results := make(chan []graph.EdgeRecord)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for article := range jobs {
				edges, err := l.resolveArticle(ctx, article)
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					continue
				}
				select {
				case results <- edges:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, a := range articles {
			select {
			case jobs <- a:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []graph.EdgeRecord
	for edges := range results {
		all = append(all, edges...)
	}

	select {
	case err := <-errs:
		return nil, err
	default:
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return all, nil
}

// resolveArticle extracts article's references and resolves each to an edge
// record, dropping references that cannot be resolved.
func (l *Linker) resolveArticle(ctx context.Context, article ArticleRef) ([]graph.EdgeRecord, error) {
	extraction := l.Extractor.Extract(article.ID, article.FullText, article.CleanNumber)

	var edges []graph.EdgeRecord
	for _, ref := range extraction.References {
		edge, ok, err := l.resolveReference(ctx, article, ref)
		if err != nil {
			return nil, err
		}
		if ok {
			edges = append(edges, edge)
		}
	}
	return edges, nil
}

// resolveReference turns one extracted reference into an edge record, per
// the linker's resolution order: same-document internal reference, then
// article-to-article external, then article-to-document fallback.
func (l *Linker) resolveReference(ctx context.Context, article ArticleRef, ref model.ExtractedReference) (graph.EdgeRecord, bool, error) {
	relationship := classifyEdgeType(article.FullText, ref)

	if ref.Type == model.ReferenceInternal {
		if ref.ArticleNumber == "" {
			return graph.EdgeRecord{}, false, nil
		}
		target, found, err := l.Store.FindArticleByCleanNumber(ctx, article.DocumentID, ref.ArticleNumber)
		if err != nil {
			return graph.EdgeRecord{}, false, err
		}
		if !found || target.ID == article.ID {
			return graph.EdgeRecord{}, false, nil
		}
		if !isTemporallyValid(target, article.FechaVigencia) {
			return graph.EdgeRecord{}, false, nil
		}
		return articleEdge(article, target, relationship), true, nil
	}

	if !ref.IsExternal || ref.ResolvedBOEID == "" {
		l.reportUnresolved(article, ref)
		return graph.EdgeRecord{}, false, nil
	}

	if ref.ArticleNumber != "" {
		target, found, err := l.Store.FindArticleByCleanNumber(ctx, ref.ResolvedBOEID, ref.ArticleNumber)
		if err != nil {
			return graph.EdgeRecord{}, false, err
		}
		if found {
			return articleEdge(article, target, relationship), true, nil
		}
	}

	exists, err := l.Store.DocumentExists(ctx, ref.ResolvedBOEID)
	if err != nil {
		return graph.EdgeRecord{}, false, err
	}
	if !exists {
		l.reportUnresolved(article, ref)
		return graph.EdgeRecord{}, false, nil
	}

	return graph.EdgeRecord{
		FromID: article.ID, ToID: ref.ResolvedBOEID,
		FromLabel: article.Label, ToLabel: "Normativa",
		Type:  string(relationship),
		Props: map[string]any{"raw_text": ref.RawText},
	}, true, nil
}

func (l *Linker) reportUnresolved(article ArticleRef, ref model.ExtractedReference) {
	if l.Options.UnresolvedSink != nil {
		l.Options.UnresolvedSink(article.DocumentID, article.ID, ref)
	}
}

func articleEdge(source, target ArticleRef, relationship model.RelationshipType) graph.EdgeRecord {
	return graph.EdgeRecord{
		FromID: source.ID, ToID: target.ID,
		FromLabel: source.Label, ToLabel: target.Label,
		Type: string(relationship),
	}
}

// isTemporallyValid implements the spec's validity window: target's
// fecha_vigencia ≤ referrer's fecha_vigencia < target's fecha_caducidad (or
// target has no caducidad).
func isTemporallyValid(target ArticleRef, referrerVigencia time.Time) bool {
	if target.FechaVigencia.After(referrerVigencia) {
		return false
	}
	if target.FechaCaducidad != nil && !referrerVigencia.Before(*target.FechaCaducidad) {
		return false
	}
	return true
}

// classifyEdgeType looks for deroga/modifica near the reference's match span
// in articleText; everything else defaults to REFERS_TO.
func classifyEdgeType(articleText string, ref model.ExtractedReference) model.RelationshipType {
	const radius = 60
	start := ref.StartPos - radius
	if start < 0 {
		start = 0
	}
	end := ref.StartPos
	if end > len(articleText) {
		end = len(articleText)
	}
	if start > end {
		return model.RelationRefersTo
	}
	window := strings.ToLower(articleText[start:end])
	switch {
	case strings.Contains(window, "deroga"):
		return model.RelationDerogates
	case strings.Contains(window, "modifica"):
		return model.RelationModifies
	default:
		return model.RelationRefersTo
	}
}
