// Package graph provides the minimal typed surface the ingestion engine
// needs over the property graph store: batched node/edge upserts, simple
// parameterized queries, and vector index lifecycle management. It is the
// only package that imports the Neo4j driver directly.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrStoreUnavailable marks a transient failure the caller should retry
// with backoff (connection reset, leader election, timeout).
var ErrStoreUnavailable = errors.New("graph store unavailable")

// ErrConstraintViolation marks a terminal failure: the store rejected the
// write because of a schema or uniqueness constraint.
var ErrConstraintViolation = errors.New("graph constraint violation")

// NodeRecord is an opaque bundle for one node upsert: the label set plus the
// properties to merge, keyed by "id".
type NodeRecord struct {
	Labels []string
	Props  map[string]any
}

// EdgeRecord is an opaque bundle for one edge upsert between two existing
// nodes, identified by their "id" property and label.
type EdgeRecord struct {
	FromID, ToID         string
	FromLabel, ToLabel   string
	Type                 string
	Props                map[string]any
}

// VectorHit is one ranked result from a vector similarity search.
type VectorHit struct {
	NodeID string
	Score  float64
	Props  map[string]any
}

// Adapter wraps a Neo4j driver with the ingestion engine's batching and
// vector-index conventions. A single Adapter is shared (as a singleton)
// across every worker pool; the driver's own connection pool handles
// concurrent sessions.
type Adapter struct {
	driver neo4j.DriverWithContext
}

// Open connects to uri and verifies connectivity before returning. Callers
// should size maxConnections to at least disk_workers+2 per the spec's
// shared-resource policy.
func Open(ctx context.Context, uri, username, password string, maxConnections int) (*Adapter, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""),
		func(c *neo4j.Config) {
			if maxConnections > 0 {
				c.MaxConnectionPoolSize = maxConnections
			}
		})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &Adapter{driver: driver}, nil
}

// Close releases the underlying driver and its connection pool.
func (a *Adapter) Close(ctx context.Context) error {
	return a.driver.Close(ctx)
}

func (a *Adapter) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return a.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
}

func (a *Adapter) readSession(ctx context.Context) neo4j.SessionWithContext {
	return a.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
}

// classify maps a driver error onto the engine's transient/terminal
// taxonomy. Neo4j reports schema and uniqueness failures with a
// "ConstraintValidationFailed"/"ConstraintViolation" code fragment; anything
// else involving connectivity is treated as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "ConstraintValidationFailed") || strings.Contains(msg, "ConstraintViolation") {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func labelClause(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return ":" + strings.Join(labels, ":")
}

// MergeNode upserts a single node by props["id"], setting labels and every
// property in props.
func (a *Adapter) MergeNode(ctx context.Context, labels []string, props map[string]any) error {
	session := a.writeSession(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf("MERGE (n%s {id: $id}) SET n += $props", labelClause(labels))
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{"id": props["id"], "props": props})
		return nil, err
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// MergeEdge upserts a single edge between two existing nodes identified by
// their "id" property.
func (a *Adapter) MergeEdge(ctx context.Context, fromID, toID, edgeType string, props map[string]any, fromLabel, toLabel string) error {
	session := a.writeSession(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf(
		"MATCH (a:%s {id: $from}), (b:%s {id: $to}) MERGE (a)-[r:%s]->(b) SET r += $props",
		fromLabel, toLabel, edgeType)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{"from": fromID, "to": toID, "props": props})
		return nil, err
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// BatchMergeNodes commits every record in list within a single transaction,
// grouping by label set so each group becomes one UNWIND-based round trip.
// Either every record lands or none does.
func (a *Adapter) BatchMergeNodes(ctx context.Context, list []NodeRecord) error {
	if len(list) == 0 {
		return nil
	}
	type group struct {
		labels string
		rows   []map[string]any
	}
	order := []string{}
	groups := map[string]*group{}
	for _, rec := range list {
		key := strings.Join(rec.Labels, ":")
		g, ok := groups[key]
		if !ok {
			g = &group{labels: labelClause(rec.Labels)}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, rec.Props)
	}

	session := a.writeSession(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, key := range order {
			g := groups[key]
			query := fmt.Sprintf("UNWIND $rows AS row MERGE (n%s {id: row.id}) SET n += row", g.labels)
			if _, err := tx.Run(ctx, query, map[string]any{"rows": g.rows}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// BatchMergeEdges commits every record in list within a single transaction,
// grouping by (fromLabel, toLabel, type) so each group becomes one
// UNWIND-based round trip. Either every edge lands or none does.
func (a *Adapter) BatchMergeEdges(ctx context.Context, list []EdgeRecord) error {
	if len(list) == 0 {
		return nil
	}
	type group struct {
		fromLabel, toLabel, edgeType string
		rows                         []map[string]any
	}
	order := []string{}
	groups := map[string]*group{}
	for _, rec := range list {
		key := rec.FromLabel + "|" + rec.ToLabel + "|" + rec.Type
		g, ok := groups[key]
		if !ok {
			g = &group{fromLabel: rec.FromLabel, toLabel: rec.ToLabel, edgeType: rec.Type}
			groups[key] = g
			order = append(order, key)
		}
		props := map[string]any{}
		for k, v := range rec.Props {
			props[k] = v
		}
		g.rows = append(g.rows, map[string]any{"from": rec.FromID, "to": rec.ToID, "props": props})
	}

	session := a.writeSession(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, key := range order {
			g := groups[key]
			query := fmt.Sprintf(
				"UNWIND $rows AS row MATCH (a:%s {id: row.from}), (b:%s {id: row.to}) MERGE (a)-[r:%s]->(b) SET r += row.props",
				g.fromLabel, g.toLabel, g.edgeType)
			if _, err := tx.Run(ctx, query, map[string]any{"rows": g.rows}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// RunQuery executes a parameterized read and returns every record as a
// plain map.
func (a *Adapter) RunQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := a.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var rows []map[string]any
		for res.Next(ctx) {
			rows = append(rows, res.Record().AsMap())
		}
		return rows, res.Err()
	})
	if err != nil {
		return nil, classify(err)
	}
	return result.([]map[string]any), nil
}

// RunQuerySingle executes a parameterized read and returns the first
// record, or nil if the query produced no rows.
func (a *Adapter) RunQuerySingle(ctx context.Context, cypher string, params map[string]any) (map[string]any, error) {
	rows, err := a.RunQuery(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// VectorSearch returns the topK nearest nodes to vec under indexName,
// ordered by descending similarity score.
func (a *Adapter) VectorSearch(ctx context.Context, vec []float32, topK int, indexName string) ([]VectorHit, error) {
	rows, err := a.RunQuery(ctx,
		`CALL db.index.vector.queryNodes($indexName, $topK, $vec) YIELD node, score RETURN node, score`,
		map[string]any{"indexName": indexName, "topK": topK, "vec": vec})
	if err != nil {
		return nil, err
	}
	hits := make([]VectorHit, 0, len(rows))
	for _, row := range rows {
		node, _ := row["node"].(neo4j.Node)
		hits = append(hits, VectorHit{
			NodeID: fmt.Sprintf("%v", node.Props["id"]),
			Score:  row["score"].(float64),
			Props:  node.Props,
		})
	}
	return hits, nil
}

// CreateVectorIndex creates (or confirms the existence of) a vector index
// over label.property with the given dimensionality and similarity metric.
// Idempotent.
func (a *Adapter) CreateVectorIndex(ctx context.Context, name, label, property string, dims int, metric string) error {
	query := fmt.Sprintf(
		"CREATE VECTOR INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.%s) "+
			"OPTIONS {indexConfig: {`vector.dimensions`: $dims, `vector.similarity_function`: $metric}}",
		name, label, property)
	session := a.writeSession(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{"dims": dims, "metric": metric})
		return nil, err
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// DropVectorIndex removes a vector index by name. Idempotent.
func (a *Adapter) DropVectorIndex(ctx context.Context, name string) error {
	session := a.writeSession(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, fmt.Sprintf("DROP INDEX %s IF EXISTS", name), nil)
		return nil, err
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// DeleteDocumentCascade deletes every node reachable from docID via
// PART_OF* edges, then the document node itself. Classification/subject
// nodes referenced by other documents are untouched because they are
// matched only via an incoming PART_OF from the deleted document's content,
// never deleted directly. Idempotent: running it again against an
// already-deleted document matches zero nodes and succeeds.
func (a *Adapter) DeleteDocumentCascade(ctx context.Context, docID string) error {
	session := a.writeSession(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			`MATCH (doc:Normativa {id: $id})
			 OPTIONAL MATCH (content)-[:PART_OF*]->(doc)
			 DETACH DELETE content, doc`,
			map[string]any{"id": docID})
		return nil, err
	})
	if err != nil {
		return classify(err)
	}
	return nil
}
