package tree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhanii/corolaria-sub000/internal/model"
)

func version(t time.Time, lines ...string) RawVersion {
	return RawVersion{FechaPublicacion: t, FechaVigencia: &t, Lines: lines}
}

func TestBuildSimpleHierarchy(t *testing.T) {
	doc := RawDocument{Blocks: []RawBlock{
		{Versions: []RawVersion{version(time.Unix(0, 0), "TÍTULO I De las disposiciones generales")}},
		{Versions: []RawVersion{version(time.Unix(0, 0), "CAPÍTULO I Ámbito de aplicación")}},
		{Versions: []RawVersion{version(time.Unix(0, 0), "Artículo 1", "El presente texto se aplica a todo el territorio.")}},
		{Versions: []RawVersion{version(time.Unix(0, 0), "Artículo 2", "Definiciones adicionales.")}},
	}}

	result, err := Build(doc, Options{DocumentPrefix: "BOE-TEST"})
	require.NoError(t, err)
	require.NotNil(t, result.Root)

	articles := result.Root.Articles()
	require.Len(t, articles, 2)
	assert.Equal(t, "1", articles[0].ArticleNumber)
	assert.Equal(t, "2", articles[1].ArticleNumber)
	assert.Contains(t, articles[0].FullText, "territorio")
}

func TestBuildArticleWithApartados(t *testing.T) {
	doc := RawDocument{Blocks: []RawBlock{
		{Versions: []RawVersion{version(time.Unix(0, 0),
			"Artículo 3",
			"1. Primer apartado.",
			"2. Segundo apartado.",
			"a) Letra a.",
		)}},
	}}

	result, err := Build(doc, Options{DocumentPrefix: "BOE-TEST"})
	require.NoError(t, err)
	articles := result.Root.Articles()
	require.Len(t, articles, 1)
	require.Len(t, articles[0].Children, 2)
	assert.Equal(t, model.NodeApartadoNum, articles[0].Children[0].Type)
	assert.Equal(t, model.NodeApartadoNum, articles[0].Children[1].Type)
	require.Len(t, articles[0].Children[1].Children, 1)
	assert.Equal(t, model.NodeApartadoAlf, articles[0].Children[1].Children[0].Type)
}

func TestBuildCompoundBlockExpansion(t *testing.T) {
	t0 := time.Unix(0, 0)
	t1 := time.Unix(0, 0).Add(time.Second)

	doc := RawDocument{Blocks: []RawBlock{
		{Versions: []RawVersion{version(t0, "Artículo 10", "Texto base.")}},
		{Versions: []RawVersion{version(t0, "Artículo 11", "Otro texto base.")}},
		{Versions: []RawVersion{version(t1, "Artículos 10 y 11", "Texto común añadido.")}},
	}}

	result, err := Build(doc, Options{DocumentPrefix: "BOE-TEST"})
	require.NoError(t, err)
	articles := result.Root.Articles()
	// Each target article now carries two versions: its original text and
	// the later shared disposition cloned onto it by compound expansion.
	require.Len(t, articles, 4)
	latestByNumber := map[string]*model.Node{}
	for _, a := range articles {
		if existing, ok := latestByNumber[a.ArticleNumber]; !ok || a.FechaVigencia.After(*existing.FechaVigencia) {
			latestByNumber[a.ArticleNumber] = a
		}
	}
	require.Len(t, latestByNumber, 2)
	for _, a := range latestByNumber {
		assert.Contains(t, a.FullText, "Texto común añadido")
	}
}

func TestBuildMultipleArticleVersionsChainsDates(t *testing.T) {
	t0 := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

	doc := RawDocument{Blocks: []RawBlock{
		{Versions: []RawVersion{
			version(t0, "Artículo 5", "Texto original."),
			version(t1, "Artículo 5", "Texto modificado."),
		}},
	}}

	result, err := Build(doc, Options{DocumentPrefix: "BOE-TEST"})
	require.NoError(t, err)
	articles := result.Root.Articles()
	require.Len(t, articles, 2)
	assert.Equal(t, t0, *articles[0].FechaVigencia)
	require.NotNil(t, articles[0].FechaCaducidad)
	assert.Equal(t, t1, *articles[0].FechaCaducidad)
	assert.Equal(t, t1, *articles[1].FechaVigencia)
	assert.Nil(t, articles[1].FechaCaducidad)
	assert.NotEmpty(t, result.Changes)
}

func TestBuildEmptyDocument(t *testing.T) {
	result, err := Build(RawDocument{}, Options{DocumentPrefix: "BOE-EMPTY"})
	require.NoError(t, err)
	require.NotNil(t, result.Root)
	assert.Empty(t, result.Root.Articles())
	assert.Empty(t, result.Changes)
}
