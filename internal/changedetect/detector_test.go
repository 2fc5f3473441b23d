package changedetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhanii/corolaria-sub000/internal/model"
)

func article(text string, children ...*model.Node) *model.Node {
	n := &model.Node{Type: model.NodeArticulo, Name: "Artículo 1", ID: "a1", FullText: text}
	for _, c := range children {
		n.AddChild(c)
	}
	return n
}

func apartado(name, text string) *model.Node {
	return &model.Node{Type: model.NodeApartadoNum, Name: name, Content: text}
}

func TestDiffIdenticalIsEmpty(t *testing.T) {
	a := article("same text", apartado("1", "uno"))
	b := article("same text", apartado("1", "uno"))
	assert.Empty(t, Diff(a, b))
}

func TestDiffDetectsModified(t *testing.T) {
	a := article("old text")
	b := article("new text")
	events := Diff(a, b)
	require.Len(t, events, 1)
	assert.Equal(t, string(KindModified), events[0].Kind)
}

func TestDiffDetectsAddedAndRemoved(t *testing.T) {
	a := article("text", apartado("1", "uno"))
	b := article("text", apartado("1", "uno"), apartado("2", "dos"))

	events := Diff(a, b)
	require.Len(t, events, 1)
	assert.Equal(t, string(KindAdded), events[0].Kind)

	events = Diff(b, a)
	require.Len(t, events, 1)
	assert.Equal(t, string(KindRemoved), events[0].Kind)
}

func TestDiffSelfIsIdempotent(t *testing.T) {
	a := article("text", apartado("1", "uno"), apartado("2", "dos"))
	assert.Empty(t, Diff(a, a))
}
