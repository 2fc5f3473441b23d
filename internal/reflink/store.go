package reflink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mhanii/corolaria-sub000/internal/graph"
)

const dateLayout = "2006-01-02"

// GraphStore implements Store against a live graph.Adapter. Document
// existence checks are cached for the lifetime of the GraphStore, per the
// spec's "cached existence check" invariant, so a law cited by thousands of
// articles is looked up once.
type GraphStore struct {
	Adapter *graph.Adapter

	mu     sync.Mutex
	exists map[string]bool
}

// NewGraphStore wraps adapter for use by a Linker.
func NewGraphStore(adapter *graph.Adapter) *GraphStore {
	return &GraphStore{Adapter: adapter, exists: map[string]bool{}}
}

func (s *GraphStore) FetchArticles(ctx context.Context, offset, limit int) ([]ArticleRef, error) {
	rows, err := s.Adapter.RunQuery(ctx,
		`MATCH (a)-[:PART_OF]->(d:Normativa)
		 WHERE a:ARTICULO OR a:ARTICULO_UNICO
		 RETURN a.id AS id, labels(a) AS labels, a.full_text AS full_text,
		        a.clean_number AS clean_number, a.fecha_vigencia AS fecha_vigencia,
		        a.fecha_caducidad AS fecha_caducidad, d.id AS document_id
		 ORDER BY a.id
		 SKIP $offset LIMIT $limit`,
		map[string]any{"offset": offset, "limit": limit})
	if err != nil {
		return nil, err
	}

	articles := make([]ArticleRef, 0, len(rows))
	for _, row := range rows {
		ref, err := articleRefFromRow(row)
		if err != nil {
			return nil, err
		}
		articles = append(articles, ref)
	}
	return articles, nil
}

func (s *GraphStore) FindArticleByCleanNumber(ctx context.Context, documentID, cleanNumber string) (ArticleRef, bool, error) {
	row, err := s.Adapter.RunQuerySingle(ctx,
		`MATCH (a)-[:PART_OF]->(d:Normativa {id: $docID})
		 WHERE (a:ARTICULO OR a:ARTICULO_UNICO) AND a.clean_number = $number
		 RETURN a.id AS id, labels(a) AS labels, a.full_text AS full_text,
		        a.clean_number AS clean_number, a.fecha_vigencia AS fecha_vigencia,
		        a.fecha_caducidad AS fecha_caducidad, d.id AS document_id
		 LIMIT 1`,
		map[string]any{"docID": documentID, "number": cleanNumber})
	if err != nil {
		return ArticleRef{}, false, err
	}
	if row == nil {
		return ArticleRef{}, false, nil
	}
	ref, err := articleRefFromRow(row)
	if err != nil {
		return ArticleRef{}, false, err
	}
	return ref, true, nil
}

func (s *GraphStore) DocumentExists(ctx context.Context, documentID string) (bool, error) {
	s.mu.Lock()
	if cached, ok := s.exists[documentID]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	row, err := s.Adapter.RunQuerySingle(ctx,
		`MATCH (d:Normativa {id: $id}) RETURN d.id AS id`, map[string]any{"id": documentID})
	if err != nil {
		return false, err
	}
	found := row != nil

	s.mu.Lock()
	s.exists[documentID] = found
	s.mu.Unlock()
	return found, nil
}

func (s *GraphStore) FlushEdges(ctx context.Context, edges []graph.EdgeRecord) error {
	return s.Adapter.BatchMergeEdges(ctx, edges)
}

func articleRefFromRow(row map[string]any) (ArticleRef, error) {
	ref := ArticleRef{
		ID:          fmt.Sprintf("%v", row["id"]),
		DocumentID:  fmt.Sprintf("%v", row["document_id"]),
		CleanNumber: fmt.Sprintf("%v", row["clean_number"]),
		FullText:    fmt.Sprintf("%v", row["full_text"]),
		Label:       "ARTICULO",
	}

	if labels, ok := row["labels"].([]any); ok {
		for _, l := range labels {
			if s, ok := l.(string); ok && (s == "ARTICULO" || s == "ARTICULO_UNICO") {
				ref.Label = s
			}
		}
	}

	if raw, ok := row["fecha_vigencia"].(string); ok && raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return ArticleRef{}, fmt.Errorf("parse fecha_vigencia for article %s: %w", ref.ID, err)
		}
		ref.FechaVigencia = t
	}
	if raw, ok := row["fecha_caducidad"].(string); ok && raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return ArticleRef{}, fmt.Errorf("parse fecha_caducidad for article %s: %w", ref.ID, err)
		}
		ref.FechaCaducidad = &t
	}
	return ref, nil
}
