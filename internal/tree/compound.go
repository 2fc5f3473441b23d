package tree

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mhanii/corolaria-sub000/internal/model"
	"github.com/mhanii/corolaria-sub000/internal/numerals"
)

var (
	compoundPrefix     = regexp.MustCompile(`(?i)^Art[íi]culos\s+`)
	compoundRangeBody  = regexp.MustCompile(`^(\d+)\s+a\s+(\d+)`)
	compoundListDigits = regexp.MustCompile(`\d+`)
	leadingListTokens  = regexp.MustCompile(`(?i)^[\d,\sy]+`)
)

// compoundTargets reports whether heading introduces a compound article
// block ("Artículos X a Y", "Artículos X, Y y Z", "Artículos X y Y") and, if
// so, the individual article numbers it refers to, in ascending order for a
// range and as written for a list.
func compoundTargets(heading string) ([]string, bool) {
	if !compoundPrefix.MatchString(heading) {
		return nil, false
	}
	rest := compoundPrefix.ReplaceAllString(heading, "")

	if m := compoundRangeBody.FindStringSubmatch(rest); m != nil {
		start, errA := strconv.Atoi(m[1])
		end, errB := strconv.Atoi(m[2])
		if errA != nil || errB != nil || end < start {
			return nil, false
		}
		out := make([]string, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, strconv.Itoa(i))
		}
		return out, true
	}

	clause := rest
	if idx := strings.Index(clause, "."); idx >= 0 {
		clause = clause[:idx]
	}
	nums := compoundListDigits.FindAllString(clause, -1)
	if len(nums) < 2 {
		return nil, false
	}
	return nums, true
}

// patchHeading rewrites a compound heading line into a single-article
// heading for target, preserving any trailing body text on the same line.
func patchHeading(original, target string) string {
	rest := compoundPrefix.ReplaceAllString(original, "")
	if loc := compoundRangeBody.FindStringIndex(rest); loc != nil {
		rest = rest[loc[1]:]
	} else {
		rest = leadingListTokens.ReplaceAllString(rest, "")
	}
	rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "."))
	if rest == "" {
		return "Artículo " + target
	}
	return "Artículo " + target + " " + rest
}

func cloneVersionsFor(b RawBlock, target string) []RawVersion {
	clones := make([]RawVersion, len(b.Versions))
	for i, v := range b.Versions {
		lines := make([]string, len(v.Lines))
		copy(lines, v.Lines)
		if len(lines) > 0 {
			lines[0] = patchHeading(lines[0], target)
		}
		clones[i] = RawVersion{
			FechaPublicacion: v.FechaPublicacion,
			FechaVigencia:    v.FechaVigencia,
			Lines:            lines,
		}
	}
	return clones
}

// ExpandCompoundBlocks indexes every single-article block by clean number,
// then for each compound block clones its versions onto every target
// article that exists individually, adjusting the leading heading line, and
// drops the compound block from the result. A target that does not exist
// individually is skipped with a warning via warn (may be nil).
func ExpandCompoundBlocks(doc RawDocument, warn func(string)) RawDocument {
	index := map[string]int{}
	for i, b := range doc.Blocks {
		heading := b.heading()
		det, ok := detectLevel(heading)
		if !ok || det.kind != model.NodeArticulo {
			continue
		}
		num := numerals.NormalizeArticleNumber(det.name)
		if num != "" {
			if _, exists := index[num]; !exists {
				index[num] = i
			}
		}
	}

	merged := make([]RawBlock, len(doc.Blocks))
	copy(merged, doc.Blocks)

	isCompound := make([]bool, len(doc.Blocks))
	for i, b := range doc.Blocks {
		targets, ok := compoundTargets(b.heading())
		if !ok {
			continue
		}
		isCompound[i] = true
		for _, target := range targets {
			idx, found := index[target]
			if !found {
				if warn != nil {
					warn(fmt.Sprintf("compound block %q references unknown article %s", b.heading(), target))
				}
				continue
			}
			merged[idx].Versions = append(merged[idx].Versions, cloneVersionsFor(b, target)...)
		}
	}

	out := make([]RawBlock, 0, len(merged))
	for i, b := range merged {
		if isCompound[i] {
			continue
		}
		out = append(out, b)
	}
	return RawDocument{Blocks: out}
}
