package reflink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhanii/corolaria-sub000/internal/graph"
	"github.com/mhanii/corolaria-sub000/internal/model"
)

type fakeStore struct {
	articles []ArticleRef
	docs     map[string]bool
	flushed  []graph.EdgeRecord
	flushErr error
	flushes  int
}

func (f *fakeStore) FetchArticles(_ context.Context, offset, limit int) ([]ArticleRef, error) {
	if offset >= len(f.articles) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.articles) {
		end = len(f.articles)
	}
	return f.articles[offset:end], nil
}

func (f *fakeStore) FindArticleByCleanNumber(_ context.Context, documentID, cleanNumber string) (ArticleRef, bool, error) {
	for _, a := range f.articles {
		if a.DocumentID == documentID && a.CleanNumber == cleanNumber {
			return a, true, nil
		}
	}
	return ArticleRef{}, false, nil
}

func (f *fakeStore) DocumentExists(_ context.Context, documentID string) (bool, error) {
	return f.docs[documentID], nil
}

func (f *fakeStore) FlushEdges(_ context.Context, edges []graph.EdgeRecord) error {
	if f.flushErr != nil {
		return f.flushErr
	}
	f.flushes++
	f.flushed = append(f.flushed, edges...)
	return nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRunLinksInternalReferenceWhenTemporallyValid(t *testing.T) {
	store := &fakeStore{
		docs: map[string]bool{"BOE-TEST": true},
		articles: []ArticleRef{
			{ID: "a1", Label: "ARTICULO", DocumentID: "BOE-TEST", CleanNumber: "1",
				FullText: "El plazo se computa por días naturales.", FechaVigencia: day("2020-01-01")},
			{ID: "a2", Label: "ARTICULO", DocumentID: "BOE-TEST", CleanNumber: "2",
				FullText: "Lo dispuesto en el artículo 1 se aplicará con carácter general.", FechaVigencia: day("2020-06-01")},
		},
	}
	l := New(store, nil, Options{})

	result, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.ArticlesScanned)
	require.Len(t, store.flushed, 1)
	assert.Equal(t, "a2", store.flushed[0].FromID)
	assert.Equal(t, "a1", store.flushed[0].ToID)
	assert.Equal(t, "REFERS_TO", store.flushed[0].Type)
}

func TestRunSkipsInternalReferenceWhenTargetNotYetValid(t *testing.T) {
	store := &fakeStore{
		articles: []ArticleRef{
			{ID: "a1", Label: "ARTICULO", DocumentID: "BOE-TEST", CleanNumber: "1",
				FullText: "Texto.", FechaVigencia: day("2021-01-01")},
			{ID: "a2", Label: "ARTICULO", DocumentID: "BOE-TEST", CleanNumber: "2",
				FullText: "Lo dispuesto en el artículo 1 se aplicará.", FechaVigencia: day("2020-06-01")},
		},
	}
	l := New(store, nil, Options{})

	result, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.EdgesCreated)
}

func TestRunEmitsDerogatesForKeywordInSurroundingText(t *testing.T) {
	store := &fakeStore{
		articles: []ArticleRef{
			{ID: "a1", Label: "ARTICULO", DocumentID: "BOE-TEST", CleanNumber: "1",
				FullText: "Texto.", FechaVigencia: day("2020-01-01")},
			{ID: "a2", Label: "ARTICULO", DocumentID: "BOE-TEST", CleanNumber: "2",
				FullText: "Esta disposición deroga el artículo 1 de esta ley.", FechaVigencia: day("2020-06-01")},
		},
	}
	l := New(store, nil, Options{})

	_, err := l.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, store.flushed, 1)
	assert.Equal(t, "DEROGATES", store.flushed[0].Type)
}

func TestRunFallsBackToDocumentEdgeWhenArticleNotFound(t *testing.T) {
	store := &fakeStore{
		docs: map[string]bool{"BOE-A-1978-31229": true},
		articles: []ArticleRef{
			{ID: "a1", Label: "ARTICULO", DocumentID: "BOE-TEST", CleanNumber: "24",
				FullText: "Conforme al artículo 24 CE, toda persona tiene derecho a la tutela judicial.",
				FechaVigencia: day("2020-01-01")},
		},
	}
	l := New(store, nil, Options{})

	_, err := l.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, store.flushed, 1)
	assert.Equal(t, "BOE-A-1978-31229", store.flushed[0].ToID)
	assert.Equal(t, "Normativa", store.flushed[0].ToLabel)
}

func TestRunSkipsExternalReferenceWhenTargetDocumentUnknown(t *testing.T) {
	store := &fakeStore{
		articles: []ArticleRef{
			{ID: "a1", Label: "ARTICULO", DocumentID: "BOE-TEST", CleanNumber: "24",
				FullText: "Conforme al artículo 24 CE, toda persona tiene derecho a la tutela judicial.",
				FechaVigencia: day("2020-01-01")},
		},
	}
	l := New(store, nil, Options{})

	_, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.flushed)
}

func TestRunCallsUnresolvedSinkForUnresolvableReference(t *testing.T) {
	var captured []model.ExtractedReference
	store := &fakeStore{
		articles: []ArticleRef{
			{ID: "a1", Label: "ARTICULO", DocumentID: "BOE-TEST", CleanNumber: "1",
				FullText: "Conforme a la STS de 10 de enero de 2020, 123/2020, procede estimar el recurso.",
				FechaVigencia: day("2020-01-01")},
		},
	}
	l := New(store, nil, Options{UnresolvedSink: func(documentID, articleID string, ref model.ExtractedReference) {
		captured = append(captured, ref)
	}})

	_, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, captured)
	assert.Empty(t, store.flushed)
}

func TestRunPaginatesAcrossMultipleChunks(t *testing.T) {
	store := &fakeStore{
		articles: []ArticleRef{
			{ID: "a1", Label: "ARTICULO", DocumentID: "BOE-TEST", CleanNumber: "1",
				FullText: "Texto llano.", FechaVigencia: day("2020-01-01")},
			{ID: "a2", Label: "ARTICULO", DocumentID: "BOE-TEST", CleanNumber: "2",
				FullText: "Texto llano también.", FechaVigencia: day("2020-01-01")},
		},
	}
	l := New(store, nil, Options{ChunkSize: 1})

	result, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.ArticlesScanned)
	assert.Equal(t, 2, store.flushes)
}

func TestRunSkipsSelfReferentialArticle(t *testing.T) {
	store := &fakeStore{
		articles: []ArticleRef{
			{ID: "a1", Label: "ARTICULO", DocumentID: "BOE-TEST", CleanNumber: "1",
				FullText: "Lo dispuesto en el artículo 1 no afecta a lo establecido en este mismo precepto.",
				FechaVigencia: day("2020-01-01")},
		},
	}
	l := New(store, nil, Options{})

	_, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.flushed)
}
