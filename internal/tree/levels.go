package tree

import (
	"regexp"

	"github.com/mhanii/corolaria-sub000/internal/model"
)

// levelRule maps one recognized header pattern to the tree depth and node
// type it introduces. The table is consulted top to bottom; the first match
// wins, so more specific patterns must precede the catch-all paragraph rule.
type levelRule struct {
	level   int
	kind    model.NodeType
	pattern *regexp.Regexp
}

var levelTable = []levelRule{
	{0, model.NodeDisposicion, regexp.MustCompile(`(?i)^Disposici[óo]n\s+(.+)`)},
	{0, model.NodeLibro, regexp.MustCompile(`(?i)^LIBRO\s+(.+)`)},
	{1, model.NodeTitulo, regexp.MustCompile(`(?i)^T[ÍI]TULO\s+(.+)`)},
	{2, model.NodeCapitulo, regexp.MustCompile(`(?i)^CAP[ÍI]TULO\s+(.+)`)},
	{3, model.NodeSeccion, regexp.MustCompile(`(?i)^Secci[óo]n\s+(\d+\.ª)(?:\s*\.?\s*(.*))?`)},
	{4, model.NodeSubseccion, regexp.MustCompile(`(?i)^Subsecci[óo]n\s+(\d+ª)(?:\s*\.?\s*(.*))?`)},
	{5, model.NodeArticuloUno, regexp.MustCompile(`(?i)^Art[íi]culo\s+[úu]nico(?:\s*\.?\s*(.*))?`)},
	{5, model.NodeArticulo, regexp.MustCompile(`(?i)^Art[íi]culo\s+(\d+(?:\s+(?:bis|ter|quater|quinquies|sexies|septies|octies|novies|decies|[A-Za-z]))?)`)},
	{6, model.NodeApartadoNum, regexp.MustCompile(`^(\d+)\.\s+(.+)`)},
	{8, model.NodeApartadoAlf, regexp.MustCompile(`^([a-z])\)\s+(.+)`)},
	{8, model.NodeOrdinalAlf, regexp.MustCompile(`^(\d+\.+ª)\s*(.*)`)},
	{10, model.NodeOrdinalNum, regexp.MustCompile(`^(\d+\.+º)\s*(.*)`)},
	{9, model.NodeParrafo, regexp.MustCompile(`^\s*(.+)`)},
}

// detection is the outcome of matching one line against levelTable.
type detection struct {
	level    int
	kind     model.NodeType
	name     string
	residual string
	isCatchAll bool
}

// detectLevel returns the first matching rule for line, iterating levelTable
// top to bottom as the catch-all paragraph rule always matches last.
func detectLevel(line string) (detection, bool) {
	for _, rule := range levelTable {
		m := rule.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := line
		residual := ""
		if len(m) > 1 {
			name = m[1]
		}
		if len(m) > 2 {
			residual = m[2]
		}
		return detection{
			level:      rule.level,
			kind:       rule.kind,
			name:       name,
			residual:   residual,
			isCatchAll: rule.kind == model.NodeParrafo,
		}, true
	}
	return detection{}, false
}
