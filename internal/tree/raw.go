package tree

import "time"

// RawVersion is one dated snapshot of a block's text: the heading line
// (Lines[0]) followed by its body, as it read between FechaPublicacion and
// whatever FechaVigencia the next version (if any) carries.
type RawVersion struct {
	FechaPublicacion time.Time
	FechaVigencia    *time.Time
	Lines            []string
}

// RawBlock is one document position as delivered by the retriever: a
// structural heading, a single article, or (before preprocessing) a
// compound article block covering a range/list of article numbers. Most
// blocks carry exactly one RawVersion; an article with a consolidation
// history carries one per historical redaction, oldest first.
type RawBlock struct {
	Versions []RawVersion
}

// RawDocument is the full, still-flat input to the tree builder: every
// block in source document order.
type RawDocument struct {
	Blocks []RawBlock
}

func (b RawBlock) heading() string {
	if len(b.Versions) == 0 || len(b.Versions[0].Lines) == 0 {
		return ""
	}
	return b.Versions[0].Lines[0]
}
