package tree

import "strings"

// FlattenTable renders a parsed table (rows of cells) as Markdown-style text
// so that downstream embedding and reference extraction see something
// meaningful in place of the original tabular layout. Rows of differing
// width fall back to a plain lines rendering (one cell per line, cells
// joined by " | ") rather than a broken Markdown table. FromPlainText calls
// this for every run of pipe-delimited rows it finds in a document's raw
// content.
func FlattenTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	width := len(rows[0])
	for _, row := range rows {
		if len(row) != width {
			return flattenLines(rows)
		}
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("| ")
		b.WriteString(strings.Join(row, " | "))
		b.WriteString(" |\n")
	}
	writeRow(rows[0])
	sep := make([]string, width)
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), "\n")
}

func flattenLines(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}
