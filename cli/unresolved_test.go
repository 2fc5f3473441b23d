package cli

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhanii/corolaria-sub000/internal/model"
)

func TestNewUnresolvedSinkNoopWhenPathEmpty(t *testing.T) {
	sink, closeFn, err := newUnresolvedSink("")
	require.NoError(t, err)
	assert.Nil(t, sink)
	assert.NoError(t, closeFn())
}

func TestNewUnresolvedSinkWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "unresolved.ndjson")

	sink, closeFn, err := newUnresolvedSink(path)
	require.NoError(t, err)
	require.NotNil(t, sink)

	sink("BOE-A-2015-11430", "art-5", model.ExtractedReference{
		RawText:   "Ley 99/1980",
		LawType:   "Ley",
		LawNumber: "99/1980",
	})
	sink("BOE-A-2015-11430", "art-6", model.ExtractedReference{
		RawText:      "RGPD",
		Abbreviation: "RGPD",
	})
	require.NoError(t, closeFn())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []unresolvedRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec unresolvedRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 2)
	assert.Equal(t, "BOE-A-2015-11430", records[0].DocumentID)
	assert.Equal(t, "art-5", records[0].ArticleID)
	assert.Equal(t, "Ley 99/1980", records[0].RawText)
	assert.Equal(t, "99/1980", records[0].LawNumber)
	assert.Equal(t, "RGPD", records[1].Abbreviation)
}

func TestNewUnresolvedSinkAppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unresolved.ndjson")

	sink1, close1, err := newUnresolvedSink(path)
	require.NoError(t, err)
	sink1("doc-1", "art-1", model.ExtractedReference{RawText: "first"})
	require.NoError(t, close1())

	sink2, close2, err := newUnresolvedSink(path)
	require.NoError(t, err)
	sink2("doc-2", "art-1", model.ExtractedReference{RawText: "second"})
	require.NoError(t, close2())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 2, lines)
}
