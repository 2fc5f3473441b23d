// Package refextract finds legal citations inside an article's running text
// and classifies them by type (internal article reference, named Spanish
// law, EU legislation/treaty, judicial decision) ahead of graph linking.
package refextract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mhanii/corolaria-sub000/internal/model"
)

// Extractor finds and classifies legal references in article text. It is
// safe for concurrent use: all state is immutable after construction.
type Extractor struct {
	articleWithLaw       *regexp.Regexp
	euLegislation        *regexp.Regexp
	euTreaty             *regexp.Regexp
	judicial             *regexp.Regexp
	fullLaw              *regexp.Regexp
	abbreviated          *regexp.Regexp
	citedReference       *regexp.Regexp
	internalArticleRange *regexp.Regexp
	internalArticleList  *regexp.Regexp
	internalArticle      *regexp.Regexp
}

// NewExtractor compiles the reference patterns once for reuse across every
// article processed by the pipeline.
func NewExtractor() *Extractor {
	return &Extractor{
		articleWithLaw: regexp.MustCompile(
			`(?i)art[íi]culo\s+(\d+(?:\s*(?:bis|ter|quater))?)\s+(?:de\s+la|del)\s+` +
				`(Constituci[óo]n(?:\s+Espa[ñn]ola)?|C[óo]digo(?:\s+(?:de\s+)?\p{L}+)?|` +
				`Estatuto\s+de\s+Autonom[íi]a(?:\s+de\s+\p{L}+)?|` +
				`Ley(?:\s+Org[áa]nica)?|Real Decreto(?:-ley|\s+Legislativo)?|Orden)` +
				`(?:\s+(\d+/\d{4}))?`),
		euLegislation: regexp.MustCompile(
			`(?i)(Reglamento|Directiva|Decisi[óo]n)\s*(?:\(UE\)|\(CE\))?\s*(?:n[ºo.]*\s*)?(\d{1,4}/\d{4})`),
		euTreaty: regexp.MustCompile(
			`(?i)(Tratado de\s+(?:la Uni[óo]n Europea|Funcionamiento de la Uni[óo]n Europea)|TUE|TFUE)`),
		judicial: regexp.MustCompile(
			`(?i)(STS|STC|SAN|SAP)\s+(?:de\s+)?(\d{1,2}\s+de\s+\w+\s+de\s+\d{4})?,?\s*(?:n[úu]m\.?\s*)?(\d+/\d{4})?`),
		fullLaw: regexp.MustCompile(
			`(?i)(Ley(?:\s+Org[áa]nica)?|Real Decreto(?:-ley|\s+Legislativo)?)\s+(\d+/\d{4}),?\s*de\s+(\d{1,2}\s+de\s+\w+)`),
		abbreviated: regexp.MustCompile(
			`(?i)(?:^|[^\w(])(CE|CC|CP|LEC|LECrim|LECr|LOPJ|LOTC|LOREG|LOPDGDD|LOPD|LPAC|LRJSP|LJCA|ET|LGSS|LGT|LIRPF|LIS|LIVA|LPH|LAU|LH|LSC)\b`),
		citedReference: regexp.MustCompile(
			`(?i)(?:la|el)\s+(?:citad[ao]|mencionad[ao]|referid[ao]|expresad[ao])\s+` +
				`(Ley(?:\s+Org[áa]nica)?|Real Decreto(?:-ley|\s+Legislativo)?|Decreto(?:-ley)?|Orden|Constituci[óo]n)` +
				`(?:\s+(\d{1,4}/\d{4}))?`),
		internalArticleRange: regexp.MustCompile(
			`(?i)art[íi]culos?\s+(\d+(?:\s*(?:bis|ter|quater))?)\s+(?:a|al)\s+(\d+(?:\s*(?:bis|ter|quater))?)`),
		internalArticleList: regexp.MustCompile(
			`(?i)art[íi]culos\s+(\d+(?:\s*(?:bis|ter|quater))?(?:\s*,\s*\d+(?:\s*(?:bis|ter|quater))?)*\s+y\s+\d+(?:\s*(?:bis|ter|quater))?)`),
		internalArticle: regexp.MustCompile(
			`(?i)art[íi]culo(?:s)?\s+(\d+(?:\s*(?:bis|ter|quater))?)(?:\s*,?\s*apartado\s+(\d+))?` +
				`|art[íi]culo\s+anterior|art[íi]culo\s+siguiente`),
	}
}

// listItemSplitter splits a matched article-list capture ("96, 782 y 808")
// into its individual number tokens.
var listItemSplitter = regexp.MustCompile(`(?i)\s*,\s*|\s+y\s+`)

func splitArticleList(raw string) []string {
	var out []string
	for _, part := range listItemSplitter.Split(strings.TrimSpace(raw), -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type span struct{ start, end int }

func overlaps(ranges []span, s span) bool {
	for _, r := range ranges {
		if s.start < r.end && s.end > r.start {
			return true
		}
	}
	return false
}

// Extract scans text and returns every reference found, in priority order
// (article-with-law, EU legislation, EU treaties, judicial, full law,
// abbreviated, cited back-reference, internal range/list/single), never
// returning two overlapping matches for the same span of text.
// currentArticleNumber is the clean number of the article the text belongs
// to, used to resolve relative internal references ("artículo
// anterior"/"artículo siguiente"); pass "" when it is unknown or
// irrelevant.
func (e *Extractor) Extract(articleID, text, currentArticleNumber string) model.ExtractionResult {
	var matched []span
	var refs []model.ExtractedReference

	reserve := func(loc []int) bool {
		s := span{loc[0], loc[1]}
		if overlaps(matched, s) {
			return false
		}
		matched = append(matched, s)
		return true
	}

	addMatch := func(loc []int, ref model.ExtractedReference) bool {
		if !reserve(loc) {
			return false
		}
		ref.StartPos = loc[0]
		ref.EndPos = loc[1]
		refs = append(refs, ref)
		return true
	}

	for _, loc := range e.articleWithLaw.FindAllStringSubmatchIndex(text, -1) {
		groups := submatches(text, loc)
		addMatch(loc[0:2], model.ExtractedReference{
			RawText:       groups[0],
			Type:          classifyLawType(groups[2]),
			ArticleNumber: groups[1],
			LawType:       groups[2],
			LawNumber:     groups[3],
			IsExternal:    true,
			ResolvedBOEID: tryResolve(groups[2], groups[3]),
		})
	}

	for _, loc := range e.euLegislation.FindAllStringSubmatchIndex(text, -1) {
		groups := submatches(text, loc)
		addMatch(loc[0:2], model.ExtractedReference{
			RawText:    groups[0],
			Type:       model.ReferenceEULegislation,
			LawType:    groups[1],
			LawNumber:  groups[2],
			IsExternal: true,
		})
	}

	for _, loc := range e.euTreaty.FindAllStringSubmatchIndex(text, -1) {
		groups := submatches(text, loc)
		addMatch(loc[0:2], model.ExtractedReference{
			RawText:    groups[0],
			Type:       model.ReferenceEUTreaty,
			LawTitle:   groups[1],
			IsExternal: true,
		})
	}

	for _, loc := range e.judicial.FindAllStringSubmatchIndex(text, -1) {
		groups := submatches(text, loc)
		if groups[0] == "" {
			continue
		}
		addMatch(loc[0:2], model.ExtractedReference{
			RawText:        groups[0],
			Type:           model.ReferenceJudicial,
			JudicialCourt:  groups[1],
			JudicialNumber: groups[3],
			IsExternal:     true,
		})
	}

	for _, loc := range e.fullLaw.FindAllStringSubmatchIndex(text, -1) {
		groups := submatches(text, loc)
		addMatch(loc[0:2], model.ExtractedReference{
			RawText:       groups[0],
			Type:          classifyLawType(groups[1]),
			LawType:       groups[1],
			LawNumber:     groups[2],
			LawDate:       groups[3],
			IsExternal:    true,
			ResolvedBOEID: tryResolve(groups[1], groups[2]),
		})
	}

	for _, loc := range e.abbreviated.FindAllStringSubmatchIndex(text, -1) {
		groups := submatches(text, loc)
		abbr := strings.ToLower(groups[1])
		overridesMu.RLock()
		boeID, known := overrides[abbr]
		overridesMu.RUnlock()
		if !known {
			boeID, known = KnownLaws[abbr]
		}
		if !known {
			continue
		}
		// Re-anchor the match span onto the abbreviation group, not the
		// leading boundary character captured by the pattern.
		abbrStart, abbrEnd := loc[2], loc[3]
		if !addMatch([]int{abbrStart, abbrEnd}, model.ExtractedReference{
			RawText:       groups[1],
			Type:          model.ReferenceAbbreviated,
			Abbreviation:  groups[1],
			IsExternal:    true,
			ResolvedBOEID: boeID,
		}) {
			continue
		}
	}

	for _, loc := range e.citedReference.FindAllStringSubmatchIndex(text, -1) {
		groups := submatches(text, loc)
		addMatch(loc[0:2], model.ExtractedReference{
			RawText:       groups[0],
			Type:          classifyLawType(groups[1]),
			LawType:       groups[1],
			LawNumber:     groups[2],
			IsExternal:    true,
			ResolvedBOEID: tryResolve(groups[1], groups[2]),
		})
	}

	for _, loc := range e.internalArticleRange.FindAllStringSubmatchIndex(text, -1) {
		groups := submatches(text, loc)
		addMatch(loc[0:2], model.ExtractedReference{
			RawText:           groups[0],
			Type:              model.ReferenceInternal,
			ArticleRangeStart: groups[1],
			ArticleRangeEnd:   groups[2],
			IsExternal:        false,
		})
	}

	for _, loc := range e.internalArticleList.FindAllStringSubmatchIndex(text, -1) {
		groups := submatches(text, loc)
		if !reserve(loc[0:2]) {
			continue
		}
		for _, number := range splitArticleList(groups[1]) {
			refs = append(refs, model.ExtractedReference{
				RawText:       groups[0],
				Type:          model.ReferenceInternal,
				ArticleNumber: number,
				IsExternal:    false,
				StartPos:      loc[0],
				EndPos:        loc[1],
			})
		}
	}

	for _, loc := range e.internalArticle.FindAllStringSubmatchIndex(text, -1) {
		groups := submatches(text, loc)
		articleNumber := groups[1]
		if articleNumber == "" {
			lower := strings.ToLower(groups[0])
			switch {
			case strings.Contains(lower, "anterior"):
				articleNumber = relativeArticleNumber(currentArticleNumber, -1)
			case strings.Contains(lower, "siguiente"):
				articleNumber = relativeArticleNumber(currentArticleNumber, 1)
			}
		}
		addMatch(loc[0:2], model.ExtractedReference{
			RawText:       groups[0],
			Type:          model.ReferenceInternal,
			ArticleNumber: articleNumber,
			Apartado:      groups[2],
			IsExternal:    false,
		})
	}

	return model.ExtractionResult{ArticleID: articleID, References: refs}
}

// submatches returns each capture group's text ("" for unmatched optional
// groups) given a FindAllStringSubmatchIndex location slice.
func submatches(text string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := 0; i < len(loc); i += 2 {
		if loc[i] < 0 {
			out[i/2] = ""
			continue
		}
		out[i/2] = text[loc[i]:loc[i+1]]
	}
	return out
}

func classifyLawType(lawType string) model.ReferenceType {
	lower := strings.ToLower(lawType)
	switch {
	case strings.HasPrefix(lower, "constitución") || strings.HasPrefix(lower, "constitucion"):
		return model.ReferenceConstitution
	case strings.HasPrefix(lower, "estatuto"):
		return model.ReferenceStatuteOfAutonomy
	case strings.Contains(lower, "orgánica") || strings.Contains(lower, "organica"):
		return model.ReferenceOrganicLaw
	case strings.HasPrefix(lower, "ley"):
		return model.ReferenceLaw
	case strings.Contains(lower, "legislativo"):
		return model.ReferenceLegislativeDecree
	case strings.Contains(lower, "decreto-ley") || strings.Contains(lower, "decreto ley"):
		return model.ReferenceRoyalDecreeLaw
	case strings.HasPrefix(lower, "real decreto"):
		return model.ReferenceRoyalDecree
	case strings.HasPrefix(lower, "orden"):
		return model.ReferenceOrder
	case strings.HasPrefix(lower, "código") || strings.HasPrefix(lower, "codigo"):
		return model.ReferenceCode
	default:
		return model.ReferenceUnknown
	}
}

// relativeArticleNumber resolves "artículo anterior"/"artículo siguiente"
// against the current article's clean number, returning "" if current is
// not a plain integer (e.g. it carries a bis/ter suffix or is itself
// unresolved).
func relativeArticleNumber(current string, delta int) string {
	n, err := strconv.Atoi(strings.TrimSpace(current))
	if err != nil || n+delta < 1 {
		return ""
	}
	return strconv.Itoa(n + delta)
}
