package retriever

import (
	"fmt"
	"time"
)

// fechaLayouts covers the date formats seen across BOE's XML feed
// ("2015-10-01") and EUR-Lex's metadata ("01/10/2015").
var fechaLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339}

// parseFechaPublicacion parses a document's publication date in whichever
// layout its source reports. An empty string is treated as "now" is not
// assumed; callers must supply a real date, since it seeds every node's
// FechaVigencia in the tree this document produces.
func parseFechaPublicacion(raw string) (time.Time, error) {
	for _, layout := range fechaLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized publication date %q", raw)
}
