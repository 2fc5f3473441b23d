package tree

import (
	"strings"
	"time"
)

// FromPlainText turns one fetched document's raw text into a RawDocument
// with a single version per block, grouping each heading line together with
// the body lines that follow it until the next recognized heading. Structural
// headings with no body of their own (TÍTULO, CAPÍTULO, ...) end up as
// single-line blocks; article and sub-article headings carry their body text
// in the same block.
//
// This is the shape every live single-fetch retrieval produces; documents
// with more than one dated redaction per article (consolidated texts pulled
// from an archive) are assembled by merging several FromPlainText results
// for the same block position instead, upstream of Build.
func FromPlainText(content string, publishedAt time.Time) RawDocument {
	var doc RawDocument
	var current []string
	var tableRows [][]string

	flushTable := func() {
		if len(tableRows) == 0 {
			return
		}
		// detectLevel matches one line at a time, so the flattened table is
		// split back into individual lines rather than kept as one string
		// with embedded newlines.
		current = append(current, strings.Split(FlattenTable(tableRows), "\n")...)
		tableRows = nil
	}

	flush := func() {
		flushTable()
		if len(current) == 0 {
			return
		}
		doc.Blocks = append(doc.Blocks, RawBlock{Versions: []RawVersion{{
			FechaPublicacion: publishedAt,
			FechaVigencia:    &publishedAt,
			Lines:            current,
		}}})
		current = nil
	}

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if cells, ok := tableRowCells(line); ok {
			tableRows = append(tableRows, cells)
			continue
		}
		flushTable()
		if _, ok := detectLevel(line); ok && !isCatchAllLine(line) {
			flush()
		}
		current = append(current, line)
	}
	flush()

	return doc
}

// tableRowCells reports whether line is a pipe-delimited table row, the form
// BOE and EUR-Lex plain-text exports render simple tables in, and returns its
// cells trimmed of surrounding whitespace. Consecutive table rows are
// collected and flattened through FlattenTable instead of being fed to the
// builder line by line, so the table's content survives as ordinary text.
func tableRowCells(line string) ([]string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "|") || !strings.HasSuffix(trimmed, "|") {
		return nil, false
	}
	inner := strings.Trim(trimmed, "|")
	if inner == "" {
		return nil, false
	}
	parts := strings.Split(inner, "|")
	if len(parts) < 2 {
		return nil, false
	}
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells, true
}

// isCatchAllLine reports whether line only matches the level table's
// catch-all paragraph rule, meaning it continues the current block rather
// than starting a new one.
func isCatchAllLine(line string) bool {
	det, ok := detectLevel(line)
	return ok && det.isCatchAll
}
