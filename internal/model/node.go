// Package model defines the domain types shared across the ingestion engine:
// the hierarchical document tree, document metadata, and legal cross-reference
// records produced by parsing and reference extraction.
package model

import (
	"strings"
	"time"
)

// NodeType classifies a position in the hierarchical breakdown of a legal
// document. Structural types group content (books, titles, chapters);
// article types carry the actual normative text; element types are the
// numbered/lettered subdivisions within an article.
type NodeType string

const (
	NodeRoot        NodeType = "ROOT"
	NodeLibro       NodeType = "LIBRO"
	NodeTitulo      NodeType = "TITULO"
	NodeCapitulo    NodeType = "CAPITULO"
	NodeSeccion     NodeType = "SECCION"
	NodeSubseccion  NodeType = "SUBSECCION"
	NodeArticuloUno NodeType = "ARTICULO_UNICO"
	NodeArticulo    NodeType = "ARTICULO"
	NodeApartadoNum NodeType = "APARTADO_NUMERICO"
	NodeApartadoAlf NodeType = "APARTADO_ALFA"
	NodeOrdinalAlf  NodeType = "ORDINAL_ALFA"
	NodeOrdinalNum  NodeType = "ORDINAL_NUMERICO"
	NodeParrafo     NodeType = "PARRAFO"
	NodeDisposicion NodeType = "DISPOSICION"
	NodeAnexo       NodeType = "ANEXO"
)

// structureTypes groups nodes whose job is containment rather than content.
var structureTypes = map[NodeType]bool{
	NodeLibro: true, NodeTitulo: true, NodeCapitulo: true,
	NodeSeccion: true, NodeSubseccion: true, NodeDisposicion: true, NodeAnexo: true,
}

// articleTypes groups nodes that represent a full article.
var articleTypes = map[NodeType]bool{
	NodeArticulo: true, NodeArticuloUno: true,
}

// articleElementTypes groups the numbered/lettered subdivisions of an article.
var articleElementTypes = map[NodeType]bool{
	NodeApartadoNum: true, NodeApartadoAlf: true,
	NodeOrdinalAlf: true, NodeOrdinalNum: true, NodeParrafo: true,
}

// IsStructure reports whether t is a pure containment node.
func (t NodeType) IsStructure() bool { return structureTypes[t] }

// IsArticle reports whether t represents a full article.
func (t NodeType) IsArticle() bool { return articleTypes[t] }

// IsArticleElement reports whether t is a subdivision within an article.
func (t NodeType) IsArticleElement() bool { return articleElementTypes[t] }

// Node is one position in the parsed document tree. Every node carries a
// generated ID, its type, level in the hierarchy, and the raw text assigned
// to it; articles additionally accumulate FullText across their children for
// reference extraction and embedding.
type Node struct {
	ID       string
	Type     NodeType
	Name     string
	Prefix   string
	Level    int
	Content  string
	FullText string
	Parent   *Node
	Children []*Node

	// Article-only fields.
	ArticleNumber  string
	FechaVigencia  *time.Time
	FechaCaducidad *time.Time
	IntroducedBy   string
	Embedding      []float32
}

// AddChild appends child to the node's children and sets the back-reference.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// AddText appends text content to the node, separated by a newline if it
// already has content. Used while a block of running text is being
// accumulated under the current leaf node during parsing.
func (n *Node) AddText(text string) {
	if n.Content == "" {
		n.Content = text
	} else {
		n.Content += "\n" + text
	}
}

// Walk calls fn for n and every descendant, depth-first pre-order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Path returns the slash-joined names of every ancestor from the root down
// to and including n, skipping the synthetic root node itself.
func (n *Node) Path() string {
	var names []string
	for cur := n; cur != nil && cur.Level >= 0; cur = cur.Parent {
		names = append([]string{cur.Name}, names...)
	}
	return strings.Join(names, "/")
}

// Articles returns every article-type node in the subtree rooted at n.
func (n *Node) Articles() []*Node {
	var out []*Node
	n.Walk(func(node *Node) {
		if node.Type.IsArticle() {
			out = append(out, node)
		}
	})
	return out
}
