// Package tree turns one document's raw retrieved content into the single
// typed Node tree the rest of the ingestion engine operates on: compound
// article blocks are expanded, headers are classified by a fixed level
// table, and a stack-based pass assembles the hierarchy line by line.
package tree

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mhanii/corolaria-sub000/internal/changedetect"
	"github.com/mhanii/corolaria-sub000/internal/model"
	"github.com/mhanii/corolaria-sub000/internal/numerals"
)

// Options configures a Build call.
type Options struct {
	// DocumentPrefix seeds every generated node ID (documentID + "-n" + a
	// monotonic counter).
	DocumentPrefix string

	// Warn receives parser warnings (unknown compound target, unrecognized
	// block); nil discards them.
	Warn func(string)
}

// Result is everything the parser/tree-builder stage produces for one
// document.
type Result struct {
	Root    *model.Node
	Changes []model.ChangeEvent
}

type builderState struct {
	counter int
	prefix  string
}

func (s *builderState) nextID() string {
	s.counter++
	return fmt.Sprintf("%s-n%d", s.prefix, s.counter)
}

// Build expands compound blocks, then assembles doc's blocks into a single
// tree rooted at a synthetic level -1 node. Articles with more than one
// recorded version are folded into a chronological chain per §4.F; the
// Change Detector runs once per adjacent pair and its output is returned
// alongside the tree for logging.
func Build(doc RawDocument, opts Options) (Result, error) {
	doc = ExpandCompoundBlocks(doc, opts.Warn)

	root := &model.Node{ID: opts.DocumentPrefix + "-root", Type: model.NodeRoot, Level: -1}
	state := &builderState{prefix: opts.DocumentPrefix}
	stack := []*model.Node{root}

	var allChanges []model.ChangeEvent

	for _, block := range doc.Blocks {
		if len(block.Versions) == 0 {
			continue
		}
		sortedVersions := sortVersionsAsc(block.Versions)
		latest := sortedVersions[len(sortedVersions)-1]
		node := processBlockLines(&stack, latest.Lines, state)
		if node == nil {
			continue
		}
		node.FechaVigencia = latest.FechaVigencia
		if node.FechaVigencia == nil {
			node.FechaVigencia = &latest.FechaPublicacion
		}
		if node.Type.IsArticle() {
			node.ArticleNumber = numerals.NormalizeArticleNumber(node.Name)
			node.FullText = collectFullText(node)
		}

		if len(block.Versions) == 1 || !node.Type.IsArticle() {
			continue
		}
		allChanges = append(allChanges, spliceHistoricalVersions(node, sortedVersions, state)...)
	}

	for len(stack) > 1 {
		stack = stack[:len(stack)-1]
	}

	return Result{Root: root, Changes: allChanges}, nil
}

// processBlockLines feeds every line of one block's current version through
// the stack algorithm and returns the node created for the block's own
// heading line, which is a paragraph node when the heading only matched the
// catch-all rule under an open article or paragraph, and nil when the
// heading created no node (its text was appended to an existing node).
func processBlockLines(stack *[]*model.Node, lines []string, state *builderState) *model.Node {
	if len(lines) == 0 {
		return nil
	}
	headingNode := processLine(stack, lines[0], state)
	for _, line := range lines[1:] {
		processLine(stack, line, state)
	}
	return headingNode
}

// processLine implements the single-version stack algorithm for one line,
// returning a newly created node when the line introduced one (a new
// structural/article/element node, or a fresh paragraph), or nil when the
// line's text was merely appended to an existing node's content.
func processLine(stack *[]*model.Node, line string, state *builderState) *model.Node {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	det, ok := detectLevel(line)
	if !ok {
		top := (*stack)[len(*stack)-1]
		top.AddText(line)
		return nil
	}

	if det.isCatchAll {
		top := (*stack)[len(*stack)-1]
		if top.Type.IsArticle() || top.Type == model.NodeParrafo {
			if n := len(top.Children); n > 0 && top.Children[n-1].Type == model.NodeParrafo {
				top.Children[n-1].AddText(det.name)
				return nil
			}
			child := &model.Node{
				ID:    state.nextID(),
				Type:  model.NodeParrafo,
				Name:  fmt.Sprintf("%d", len(top.Children)+1),
				Level: top.Level + 1,
			}
			child.AddText(det.name)
			top.AddChild(child)
			return child
		}
		top.AddText(det.name)
		return nil
	}

	for len(*stack) > 1 && (*stack)[len(*stack)-1].Level >= det.level {
		*stack = (*stack)[:len(*stack)-1]
	}
	parent := (*stack)[len(*stack)-1]

	child := &model.Node{
		ID:    state.nextID(),
		Type:  det.kind,
		Name:  strings.TrimSpace(det.name),
		Level: det.level,
	}
	if residual := strings.TrimSpace(det.residual); residual != "" {
		child.AddText(residual)
	}
	parent.AddChild(child)
	*stack = append(*stack, child)
	return child
}

// collectFullText concatenates an article node's own content with every
// descendant's content, depth-first, for reference extraction and
// embedding.
func collectFullText(n *model.Node) string {
	var parts []string
	n.Walk(func(node *model.Node) {
		if node.Content != "" {
			parts = append(parts, node.Content)
		}
	})
	return strings.Join(parts, "\n")
}

// sortVersionsAsc returns a copy of versions ordered oldest to newest.
func sortVersionsAsc(versions []RawVersion) []RawVersion {
	sorted := make([]RawVersion, len(versions))
	copy(sorted, versions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return versionTime(sorted[i]).Before(versionTime(sorted[j]))
	})
	return sorted
}

// spliceHistoricalVersions parses every version older than the already-built
// latest node (sorted is already in ascending order, latest being the last
// entry), links the chronological chain via FechaVigencia/FechaCaducidad,
// inserts the older nodes into the tree immediately before latest, and
// returns the Change Detector's output for each adjacent pair.
func spliceHistoricalVersions(latest *model.Node, sorted []RawVersion, state *builderState) []model.ChangeEvent {
	chain := make([]*model.Node, 0, len(sorted))
	for _, v := range sorted[:len(sorted)-1] {
		localStack := []*model.Node{{Level: latest.Level - 1}}
		node := processBlockLines(&localStack, v.Lines, state)
		if node == nil {
			continue
		}
		node.FechaVigencia = v.FechaVigencia
		if node.FechaVigencia == nil {
			t := v.FechaPublicacion
			node.FechaVigencia = &t
		}
		node.ArticleNumber = numerals.NormalizeArticleNumber(node.Name)
		node.FullText = collectFullText(node)
		chain = append(chain, node)
	}
	chain = append(chain, latest)

	var events []model.ChangeEvent
	for i := 0; i < len(chain)-1; i++ {
		chain[i].FechaCaducidad = chain[i+1].FechaVigencia
		events = append(events, changedetect.Diff(chain[i], chain[i+1])...)
	}
	latest.FechaCaducidad = nil

	if len(chain) > 1 {
		parent := latest.Parent
		insertAt := -1
		for i, c := range parent.Children {
			if c == latest {
				insertAt = i
				break
			}
		}
		if insertAt >= 0 {
			older := chain[:len(chain)-1]
			for _, node := range older {
				node.Parent = parent
			}
			rest := append([]*model.Node{}, parent.Children[insertAt:]...)
			parent.Children = append(append(parent.Children[:insertAt], older...), rest...)
		}
	}

	return events
}

func versionTime(v RawVersion) time.Time {
	if v.FechaVigencia != nil {
		return *v.FechaVigencia
	}
	return v.FechaPublicacion
}
