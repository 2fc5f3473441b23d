package tree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenTableRendersMarkdown(t *testing.T) {
	out := FlattenTable([][]string{
		{"Concepto", "Importe"},
		{"Base imponible", "1.000 €"},
	})
	assert.Equal(t, "| Concepto | Importe |\n| --- | --- |\n| Base imponible | 1.000 € |", out)
}

func TestFlattenTableFallsBackOnUnevenRows(t *testing.T) {
	out := FlattenTable([][]string{
		{"a", "b"},
		{"c"},
	})
	assert.Equal(t, "a | b\nc", out)
}

func TestFromPlainTextFlattensTableRows(t *testing.T) {
	content := "Artículo 4\n" +
		"Tabla de cuantías.\n" +
		"| Concepto | Importe |\n" +
		"| Base imponible | 1.000 € |\n" +
		"Texto posterior a la tabla."

	doc := FromPlainText(content, time.Unix(0, 0))
	require.Len(t, doc.Blocks, 1)

	lines := doc.Blocks[0].Versions[0].Lines
	require.Len(t, lines, 6)
	assert.Equal(t, "Artículo 4", lines[0])
	assert.Equal(t, "Tabla de cuantías.", lines[1])
	assert.Equal(t, "| Concepto | Importe |", lines[2])
	assert.Equal(t, "| --- | --- |", lines[3])
	assert.Equal(t, "| Base imponible | 1.000 € |", lines[4])
	assert.Equal(t, "Texto posterior a la tabla.", lines[5])
}

func TestFromPlainTextTableFeedsBuilderContent(t *testing.T) {
	content := "Artículo 4\n" +
		"| Concepto | Importe |\n" +
		"| Base imponible | 1.000 € |"

	doc := FromPlainText(content, time.Unix(0, 0))
	result, err := Build(doc, Options{DocumentPrefix: "BOE-TEST"})
	require.NoError(t, err)

	articles := result.Root.Articles()
	require.Len(t, articles, 1)
	assert.Contains(t, articles[0].FullText, "Base imponible")
}
