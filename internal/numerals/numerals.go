// Package numerals normalizes the article and apartado numbering styles
// found in Spanish legal text (plain digits, ordinal words, Roman numerals,
// and the "bis"/"ter" suffix convention) into a single comparable string.
package numerals

import (
	"regexp"
	"strconv"
	"strings"
)

// cardinalWords maps Spanish cardinal number words to their digit form, for
// headings such as "artículo primero" that spell out small numbers.
var cardinalWords = map[string]string{
	"uno": "1", "una": "1", "dos": "2", "tres": "3", "cuatro": "4",
	"cinco": "5", "seis": "6", "siete": "7", "ocho": "8", "nueve": "9",
	"diez": "10",
}

// ordinalWords maps Spanish ordinal number words, the most common form used
// in article and apartado headings ("artículo primero", "disposición
// segunda"), to their digit form.
var ordinalWords = map[string]string{
	"primero": "1", "primera": "1", "primer": "1",
	"segundo": "2", "segunda": "2",
	"tercero": "3", "tercera": "3", "tercer": "3",
	"cuarto": "4", "cuarta": "4",
	"quinto": "5", "quinta": "5",
	"sexto": "6", "sexta": "6",
	"séptimo": "7", "séptima": "7", "septimo": "7", "septima": "7",
	"octavo": "8", "octava": "8",
	"noveno": "9", "novena": "9",
	"décimo": "10", "décima": "10", "decimo": "10", "decima": "10",
}

// romanValues maps a single Roman numeral digit to its value, used by
// ParseRoman to read headings such as "TÍTULO IV".
var romanValues = map[byte]int{
	'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000,
}

var bisSuffixPattern = regexp.MustCompile(`(?i)^(\d+)\s*(bis|ter|quater|quinquies|sexies)$`)

// articlePrefixPattern strips the leading "Artículo"/"Art." label (and its
// plural) from a heading so the remainder can be normalized on its own.
var articlePrefixPattern = regexp.MustCompile(`(?i)^(?:art[íi]culos?\.?|art\.)\s+`)

// phraseUnitWords maps the Spanish cardinal words for 1-29, the range that
// appears contracted (veintiuno, not veinte y uno) in legal headings.
var phraseUnitWords = map[string]int{
	"uno": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
	"once": 11, "doce": 12, "trece": 13, "catorce": 14, "quince": 15,
	"dieciséis": 16, "dieciseis": 16, "diecisiete": 17, "dieciocho": 18, "diecinueve": 19,
	"veinte": 20, "veintiuno": 21, "veintidós": 22, "veintidos": 22,
	"veintitrés": 23, "veintitres": 23, "veinticuatro": 24, "veinticinco": 25,
	"veintiséis": 26, "veintiseis": 26, "veintisiete": 27, "veintiocho": 28, "veintinueve": 29,
}

// phraseTensWords maps the round-tens words used as the leading component of
// a compound cardinal ("cincuenta y uno").
var phraseTensWords = map[string]int{
	"treinta": 30, "cuarenta": 40, "cincuenta": 50,
	"sesenta": 60, "setenta": 70, "ochenta": 80, "noventa": 90,
}

// phraseHundredWords maps the hundreds words used as the leading component
// of a compound cardinal ("ciento veintisiete").
var phraseHundredWords = map[string]int{
	"cien": 100, "ciento": 100, "doscientos": 200, "trescientos": 300,
	"cuatrocientos": 400, "quinientos": 500, "seiscientos": 600,
	"setecientos": 700, "ochocientos": 800, "novecientos": 900,
}

// parseCardinalPhrase sums the value of a multi-word Spanish cardinal
// ("ciento veintisiete" -> 127), ignoring the "y" conjunction. It returns
// ok=false as soon as any token is unrecognized, so mixed forms like
// "1 bis" fall through to the caller's other normalization rules instead of
// being partially parsed.
func parseCardinalPhrase(s string) (int, bool) {
	tokens := strings.Fields(strings.ToLower(s))
	if len(tokens) == 0 {
		return 0, false
	}
	total := 0
	matched := false
	for _, tok := range tokens {
		if tok == "y" {
			continue
		}
		if v, ok := phraseHundredWords[tok]; ok {
			total += v
			matched = true
			continue
		}
		if v, ok := phraseTensWords[tok]; ok {
			total += v
			matched = true
			continue
		}
		if v, ok := phraseUnitWords[tok]; ok {
			total += v
			matched = true
			continue
		}
		return 0, false
	}
	if !matched {
		return 0, false
	}
	return total, true
}

// stripApartadoSuffix drops a trailing ".N" apartado suffix from an article
// number like "154.1", leaving the article number "154" alone; it leaves a
// bare trailing "." untouched so TrimSuffix in CleanNumber still handles it.
func stripApartadoSuffix(s string) string {
	idx := strings.Index(s, ".")
	if idx < 0 || idx == len(s)-1 {
		return s
	}
	rest := strings.TrimSpace(s[idx+1:])
	if _, err := strconv.Atoi(rest); err != nil {
		return s
	}
	return s[:idx]
}

// NormalizeArticleNumber extracts and normalizes the clean article number
// from a full heading such as "Artículo 154.1" or "Artículo cincuenta y
// uno", producing the same canonical form CleanNumber would from the bare
// number. It is idempotent: normalizing an already-normalized number
// returns it unchanged.
func NormalizeArticleNumber(heading string) string {
	s := articlePrefixPattern.ReplaceAllString(strings.TrimSpace(heading), "")
	s = strings.TrimSpace(s)
	s = stripApartadoSuffix(s)
	if v, ok := parseCardinalPhrase(s); ok {
		return strconv.Itoa(v)
	}
	return CleanNumber(s)
}

// CleanNumber normalizes a raw article/apartado number extracted from a
// heading into a canonical digit-based form, preserving a trailing bis/ter
// suffix and lowercased letter suffixes (e.g. "3 bis" -> "3 bis", "2º" ->
// "2", "a)" -> "a").
func CleanNumber(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimSuffix(s, ")")
	s = strings.TrimSpace(s)

	lower := strings.ToLower(s)

	if m := bisSuffixPattern.FindStringSubmatch(lower); m != nil {
		return m[1] + " " + strings.ToLower(m[2])
	}

	if digits, ok := ordinalWords[lower]; ok {
		return digits
	}
	if digits, ok := cardinalWords[lower]; ok {
		return digits
	}

	// Ordinal marker suffixes: "1º", "2ª", "3er".
	s = strings.TrimSuffix(s, "º")
	s = strings.TrimSuffix(s, "ª")
	s = strings.TrimSuffix(s, "er")

	if _, err := strconv.Atoi(s); err == nil {
		return s
	}

	// Single lowercase letter apartado label, e.g. "a", "b".
	if len(lower) == 1 && lower[0] >= 'a' && lower[0] <= 'z' {
		return lower
	}

	if roman, ok := ParseRoman(strings.ToUpper(s)); ok {
		return strconv.Itoa(roman)
	}

	return s
}

// ParseRoman parses an upper-case Roman numeral. It returns ok=false if s
// contains any character outside I,V,X,L,C,D,M.
func ParseRoman(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	total := 0
	prev := 0
	for i := len(s) - 1; i >= 0; i-- {
		value, ok := romanValues[s[i]]
		if !ok {
			return 0, false
		}
		if value < prev {
			total -= value
		} else {
			total += value
			prev = value
		}
	}
	return total, true
}
