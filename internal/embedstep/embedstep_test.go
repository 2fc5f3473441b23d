package embedstep

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhanii/corolaria-sub000/internal/model"
)

type fakeClient struct {
	calls [][]string
	err   error
}

func (f *fakeClient) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i), 1}
	}
	return vectors, nil
}

func buildTree() *model.Node {
	root := &model.Node{Type: model.NodeRoot, Name: "Ley de prueba", Level: -1}
	art1 := &model.Node{Type: model.NodeArticulo, Name: "Artículo 1", Level: 0, FullText: "Texto uno."}
	art2 := &model.Node{Type: model.NodeArticulo, Name: "Artículo 2", Level: 0, FullText: "Texto dos."}
	root.AddChild(art1)
	root.AddChild(art2)
	return root
}

func TestRunAssignsEmbeddingToEveryArticle(t *testing.T) {
	root := buildTree()
	client := &fakeClient{}

	n, err := Run(context.Background(), client, root)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, a := range root.Articles() {
		assert.NotEmpty(t, a.Embedding)
	}
	require.Len(t, client.calls, 1)
	assert.Contains(t, client.calls[0][0], "Artículo 1")
	assert.Contains(t, client.calls[0][0], "Texto uno.")
}

func TestRunNoArticlesIsNoOp(t *testing.T) {
	root := &model.Node{Type: model.NodeRoot, Level: -1}
	client := &fakeClient{}

	n, err := Run(context.Background(), client, root)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, client.calls)
}

func TestRunPropagatesClientError(t *testing.T) {
	root := buildTree()
	client := &fakeClient{err: errors.New("provider down")}

	_, err := Run(context.Background(), client, root)
	assert.Error(t, err)
}
