//go:build integration

package reflink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mhanii/corolaria-sub000/internal/graph"
	"github.com/mhanii/corolaria-sub000/internal/graphtest"
)

func TestGraphStoreAgainstRealNeo4j(t *testing.T) {
	ctx := context.Background()

	uri, username, cleanup, err := graphtest.SetupNeo4j(ctx, nil)
	require.NoError(t, err)
	defer cleanup()

	adapter, err := graph.Open(ctx, uri, username, graphtest.Password(nil), 4)
	require.NoError(t, err)
	defer adapter.Close(ctx)

	require.NoError(t, adapter.BatchMergeNodes(ctx, []graph.NodeRecord{
		{Labels: []string{"Normativa"}, Props: map[string]any{"id": "BOE-A-2015-11430"}},
		{
			Labels: []string{"ARTICULO"},
			Props: map[string]any{
				"id": "BOE-A-2015-11430#art-1", "clean_number": "1",
				"full_text": "Artículo primero.", "fecha_vigencia": "2015-01-01",
			},
		},
	}))
	require.NoError(t, adapter.BatchMergeEdges(ctx, []graph.EdgeRecord{
		{
			FromID: "BOE-A-2015-11430#art-1", FromLabel: "ARTICULO",
			ToID: "BOE-A-2015-11430", ToLabel: "Normativa",
			Type: "PART_OF",
		},
	}))

	store := NewGraphStore(adapter)

	exists, err := store.DocumentExists(ctx, "BOE-A-2015-11430")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = store.DocumentExists(ctx, "BOE-A-9999-00000")
	require.NoError(t, err)
	require.False(t, exists)

	ref, found, err := store.FindArticleByCleanNumber(ctx, "BOE-A-2015-11430", "1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "BOE-A-2015-11430#art-1", ref.ID)
	require.Equal(t, "Artículo primero.", ref.FullText)

	articles, err := store.FetchArticles(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, articles, 1)
}
