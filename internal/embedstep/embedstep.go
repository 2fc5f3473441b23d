// Package embedstep walks a parsed document tree and assigns an embedding
// vector to every article node, batching the calls through an
// internal/embedding.Provider.
package embedstep

import (
	"context"
	"fmt"

	"github.com/mhanii/corolaria-sub000/internal/model"
)

// Client is the subset of embedding.Provider this step needs, kept narrow so
// tests can substitute a fake without constructing a real Provider.
type Client interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Run collects every article under root, embeds path+"\n\n"+full_text for
// each, and assigns the resulting vector back onto the node. A document with
// no articles is a no-op. Failure propagates to the caller unchanged; the
// pipeline runner maps it onto the active Ingestion Context.
func Run(ctx context.Context, client Client, root *model.Node) (int, error) {
	if root == nil {
		return 0, nil
	}

	articles := root.Articles()
	if len(articles) == 0 {
		return 0, nil
	}

	texts := make([]string, len(articles))
	for i, a := range articles {
		texts[i] = a.Path() + "\n\n" + a.FullText
	}

	vectors, err := client.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %d articles: %w", len(articles), err)
	}
	if len(vectors) != len(articles) {
		return 0, fmt.Errorf("embed batch returned %d vectors for %d articles", len(vectors), len(articles))
	}

	for i, a := range articles {
		a.Embedding = vectors[i]
	}
	return len(articles), nil
}
