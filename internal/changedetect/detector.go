// Package changedetect compares two versions of the same article's node
// tree and reports what changed, for the ingestion log. Its output is
// advisory: nothing here is persisted as a graph edge.
package changedetect

import (
	"time"

	"github.com/mhanii/corolaria-sub000/internal/model"
)

// Kind classifies one detected change.
type Kind string

const (
	KindAdded    Kind = "added"
	KindModified Kind = "modified"
	KindRemoved  Kind = "removed"
)

// toEvent builds a model.ChangeEvent for one detected difference, using the
// version dates carried by whichever node is relevant (the new one for
// added/modified, the old one for removed).
func toEvent(articleID string, kind Kind, node *model.Node, from, to *time.Time) model.ChangeEvent {
	return model.ChangeEvent{
		ArticleID:    articleID,
		Kind:         string(kind),
		NodeType:     string(node.Type),
		NodeName:     node.Name,
		FromVersion:  from,
		ToVersion:    to,
		DetectedAt:   time.Time{},
	}
}

// Diff compares old and neu, the same article rendered at two points in
// time, and returns every structural or textual change in a fixed order: a
// node's own "modified" event first, then its new-version children left to
// right (each reported as added or recursed into), then the old-version
// children left unmatched, as removed, in their original order. Diff(A, A)
// always returns an empty slice and repeated calls over the same pair return
// identical results.
func Diff(old, neu *model.Node) []model.ChangeEvent {
	if old == nil && neu == nil {
		return nil
	}
	var events []model.ChangeEvent
	diffNode(old, neu, &events)
	return events
}

// diffKey identifies a node for structural matching across versions:
// node_type plus name, per §4.G.
func diffKey(n *model.Node) string {
	return string(n.Type) + "|" + n.Name
}

func diffNode(old, neu *model.Node, events *[]model.ChangeEvent) {
	if old == nil || neu == nil {
		return
	}
	if normalizedText(old) != normalizedText(neu) {
		*events = append(*events, toEvent(neu.ID, KindModified, neu, old.FechaVigencia, neu.FechaVigencia))
	}

	oldByKey := indexChildren(old.Children)

	for _, child := range neu.Children {
		key := diffKey(child)
		oldMatches := oldByKey[key]
		if len(oldMatches) == 0 {
			*events = append(*events, toEvent(child.ID, KindAdded, child, nil, neu.FechaVigencia))
			continue
		}
		oldByKey[key] = oldMatches[1:]
		diffNode(oldMatches[0], child, events)
	}

	for _, child := range old.Children {
		key := diffKey(child)
		remaining := oldByKey[key]
		if len(remaining) > 0 && remaining[0] == child {
			oldByKey[key] = remaining[1:]
			*events = append(*events, toEvent(child.ID, KindRemoved, child, old.FechaVigencia, nil))
		}
	}
}

func indexChildren(children []*model.Node) map[string][]*model.Node {
	out := map[string][]*model.Node{}
	for _, c := range children {
		key := diffKey(c)
		out[key] = append(out[key], c)
	}
	return out
}

// normalizedText is the text compared for the "modified" kind: full_text
// (the node's own content plus every descendant's) when it is set, as it is
// for an article, and otherwise the node's own Content alone.
func normalizedText(n *model.Node) string {
	if n.FullText != "" {
		return n.FullText
	}
	return n.Content
}
