// Package persistence walks a parsed document tree into the batched
// node/edge records the graph adapter expects and commits them, implementing
// the ingestion engine's Graph Persistence step.
package persistence

import (
	"context"
	"fmt"

	"github.com/mhanii/corolaria-sub000/internal/graph"
	"github.com/mhanii/corolaria-sub000/internal/model"
)

// PartOfEdge is the only structural edge type this step emits: every
// persisted content node points at the document it belongs to.
const PartOfEdge = "PART_OF"

// Options configures one Persist call.
type Options struct {
	// Source tags the document node's "source" property ("BOE", "EUR-Lex").
	Source string

	// SkipTypes lists node types that are never persisted; their children
	// still get a PART_OF edge straight to the document. Defaults to the
	// inner structural layers (TITULO, CAPITULO, SECCION, SUBSECCION) when
	// nil, matching the spec's "inner chapter/section layers" default.
	SkipTypes map[model.NodeType]bool
}

func defaultSkipTypes() map[model.NodeType]bool {
	return map[model.NodeType]bool{
		model.NodeTitulo:     true,
		model.NodeCapitulo:   true,
		model.NodeSeccion:    true,
		model.NodeSubseccion: true,
	}
}

// Result reports what one Persist call wrote.
type Result struct {
	NodesCreated        int
	RelationshipsCreated int
}

// Persist walks norm's tree once, collects node and edge records, and
// commits them to adapter in exactly one BatchMergeNodes call and one
// BatchMergeEdges call. All-or-nothing at the batch level; a failure here
// propagates to the caller's Ingestion Context, which decides rollback.
func Persist(ctx context.Context, adapter *graph.Adapter, norm *model.Normativa, opts Options) (Result, error) {
	nodes, edges := CollectRecords(norm, opts)

	if err := adapter.BatchMergeNodes(ctx, nodes); err != nil {
		return Result{}, fmt.Errorf("persist nodes for %s: %w", norm.ID, err)
	}
	if err := adapter.BatchMergeEdges(ctx, edges); err != nil {
		return Result{}, fmt.Errorf("persist edges for %s: %w", norm.ID, err)
	}

	return Result{NodesCreated: len(nodes), RelationshipsCreated: len(edges)}, nil
}

// CollectRecords walks norm's tree and builds the node/edge records Persist
// commits, without touching the store. Exposed so callers (and tests) can
// inspect what one document would write before any I/O happens.
func CollectRecords(norm *model.Normativa, opts Options) ([]graph.NodeRecord, []graph.EdgeRecord) {
	skip := opts.SkipTypes
	if skip == nil {
		skip = defaultSkipTypes()
	}

	var nodes []graph.NodeRecord
	var edges []graph.EdgeRecord

	nodes = append(nodes, graph.NodeRecord{
		Labels: []string{"Normativa"},
		Props: map[string]any{
			"id":     norm.ID,
			"source": opts.Source,
			"titulo": norm.Metadata.Titulo,
			"ambito": norm.Metadata.Ambito,
			"rango":  norm.Metadata.Rango,
		},
	})

	for _, subject := range norm.Metadata.Materias {
		subjectID := "materia:" + subject
		nodes = append(nodes, graph.NodeRecord{
			Labels: []string{"Materia"},
			Props:  map[string]any{"id": subjectID, "name": subject},
		})
		edges = append(edges, graph.EdgeRecord{
			FromID: norm.ID, ToID: subjectID,
			FromLabel: "Normativa", ToLabel: "Materia",
			Type: "ABOUT",
		})
	}

	if norm.Root != nil {
		walkForPersistence(norm.Root, norm.ID, skip, &nodes, &edges)
	}

	return nodes, edges
}

// walkForPersistence recurses over n's children, appending a node record for
// every non-skipped node and a PART_OF edge to docID for every persisted
// node. A skipped node's children still attach PART_OF straight to docID,
// since the skipped node itself never exists as a graph vertex.
func walkForPersistence(n *model.Node, docID string, skip map[model.NodeType]bool, nodes *[]graph.NodeRecord, edges *[]graph.EdgeRecord) {
	for _, child := range n.Children {
		if skip[child.Type] {
			walkForPersistence(child, docID, skip, nodes, edges)
			continue
		}

		props := map[string]any{
			"id":   child.ID,
			"name": child.Name,
			"path": child.Path(),
		}
		if child.Content != "" {
			props["content"] = child.Content
		}
		if child.Type.IsArticle() {
			props["full_text"] = child.FullText
			props["clean_number"] = child.ArticleNumber
			if child.FechaVigencia != nil {
				props["fecha_vigencia"] = child.FechaVigencia.Format("2006-01-02")
			}
			if child.FechaCaducidad != nil {
				props["fecha_caducidad"] = child.FechaCaducidad.Format("2006-01-02")
			}
			if len(child.Embedding) > 0 {
				props["embedding"] = child.Embedding
			}
		}

		*nodes = append(*nodes, graph.NodeRecord{Labels: []string{string(child.Type)}, Props: props})
		*edges = append(*edges, graph.EdgeRecord{
			FromID: child.ID, ToID: docID,
			FromLabel: string(child.Type), ToLabel: "Normativa",
			Type: PartOfEdge,
		})

		walkForPersistence(child, docID, skip, nodes, edges)
	}
}
