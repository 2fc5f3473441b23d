package refextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhanii/corolaria-sub000/internal/model"
)

func TestExtractInternalArticleReference(t *testing.T) {
	e := NewExtractor()
	result := e.Extract("art-1", "Lo dispuesto en el artículo 14 se aplicará sin perjuicio de lo anterior.", "")

	require.NotEmpty(t, result.References)
	found := false
	for _, ref := range result.References {
		if ref.Type == model.ReferenceInternal && ref.ArticleNumber == "14" {
			found = true
		}
	}
	assert.True(t, found, "expected an internal reference to article 14")
}

func TestExtractAbbreviatedKnownLaw(t *testing.T) {
	e := NewExtractor()
	result := e.Extract("art-2", "Conforme al artículo 24 CE, toda persona tiene derecho a la tutela judicial.", "")

	found := false
	for _, ref := range result.References {
		if ref.Type == model.ReferenceAbbreviated && ref.Abbreviation == "CE" {
			assert.Equal(t, "BOE-A-1978-31229", ref.ResolvedBOEID)
			found = true
		}
	}
	assert.True(t, found, "expected abbreviated reference to the Constitution")
}

func TestExtractNonOverlappingSpans(t *testing.T) {
	e := NewExtractor()
	result := e.Extract("art-3", "Ley Orgánica 3/2018, de 5 de diciembre, modifica la LOPD.", "")

	seen := map[[2]int]bool{}
	for _, ref := range result.References {
		key := [2]int{ref.StartPos, ref.EndPos}
		assert.False(t, seen[key], "duplicate span for overlapping match")
		seen[key] = true
		for other := range seen {
			if other == key {
				continue
			}
			overlap := ref.StartPos < other[1] && ref.EndPos > other[0]
			assert.False(t, overlap, "found overlapping reference spans")
		}
	}
}

func TestExtractFullLawPattern(t *testing.T) {
	e := NewExtractor()
	result := e.Extract("art-4", "Se estará a lo dispuesto en la Ley 39/2015, de 1 de octubre.", "")

	found := false
	for _, ref := range result.References {
		if ref.Type == model.ReferenceLaw && ref.LawNumber == "39/2015" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtractConstitutionAndCode(t *testing.T) {
	e := NewExtractor()
	result := e.Extract("art-5",
		"de acuerdo con el artículo 14 de la Constitución Española y el artículo 1902 del Código Civil", "")

	require.Len(t, result.References, 2)
	types := map[model.ReferenceType]bool{}
	numbers := map[string]bool{}
	for _, ref := range result.References {
		types[ref.Type] = true
		numbers[ref.ArticleNumber] = true
	}
	assert.True(t, types[model.ReferenceConstitution])
	assert.True(t, types[model.ReferenceCode])
	assert.True(t, numbers["14"])
	assert.True(t, numbers["1902"])
}

func TestExtractRelativeInternalReference(t *testing.T) {
	e := NewExtractor()
	result := e.Extract("art-7", "como se vio en el artículo anterior", "7")

	require.Len(t, result.References, 1)
	assert.Equal(t, model.ReferenceInternal, result.References[0].Type)
	assert.Equal(t, "6", result.References[0].ArticleNumber)
}

func TestExtractInternalArticleRange(t *testing.T) {
	e := NewExtractor()
	result := e.Extract("art-8", "lo dispuesto en los artículos 5 a 12 de esta ley", "")

	require.Len(t, result.References, 1)
	ref := result.References[0]
	assert.Equal(t, model.ReferenceInternal, ref.Type)
	assert.Equal(t, "5", ref.ArticleRangeStart)
	assert.Equal(t, "12", ref.ArticleRangeEnd)
	assert.Empty(t, ref.ArticleNumber)
}

func TestExtractInternalArticleList(t *testing.T) {
	e := NewExtractor()
	result := e.Extract("art-9", "según los artículos 96, 782 y 808 del mismo texto", "")

	require.Len(t, result.References, 3)
	numbers := map[string]bool{}
	for _, ref := range result.References {
		assert.Equal(t, model.ReferenceInternal, ref.Type)
		numbers[ref.ArticleNumber] = true
	}
	assert.True(t, numbers["96"])
	assert.True(t, numbers["782"])
	assert.True(t, numbers["808"])
}

func TestExtractInternalArticlePair(t *testing.T) {
	e := NewExtractor()
	result := e.Extract("art-10", "conforme a los artículos 5 y 6", "")

	require.Len(t, result.References, 2)
	numbers := map[string]bool{}
	for _, ref := range result.References {
		numbers[ref.ArticleNumber] = true
	}
	assert.True(t, numbers["5"])
	assert.True(t, numbers["6"])
}

func TestExtractCitedBackReference(t *testing.T) {
	e := NewExtractor()
	result := e.Extract("art-11", "en aplicación de la citada Ley Orgánica 6/1985", "")

	require.Len(t, result.References, 1)
	ref := result.References[0]
	assert.Equal(t, model.ReferenceOrganicLaw, ref.Type)
	assert.Equal(t, "6/1985", ref.LawNumber)
	assert.True(t, ref.IsExternal)
}

func TestExtractCitedBackReferenceWithoutNumber(t *testing.T) {
	e := NewExtractor()
	result := e.Extract("art-12", "según la mencionada Ley, procede la sanción", "")

	require.Len(t, result.References, 1)
	ref := result.References[0]
	assert.Equal(t, model.ReferenceLaw, ref.Type)
	assert.Empty(t, ref.LawNumber)
}
