package refextract

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// KnownLaws maps a lowercased abbreviation to the BOE ID of the law it
// stands for, carried over verbatim from reference_extractor.py's
// KNOWN_LAWS table.
var KnownLaws = map[string]string{
	"ce":      "BOE-A-1978-31229", // Constitución Española
	"cc":      "BOE-A-1889-4763",  // Código Civil
	"cp":      "BOE-A-1995-25444", // Código Penal
	"lec":     "BOE-A-2000-323",   // Ley de Enjuiciamiento Civil
	"lecrim":  "BOE-A-1882-6036",  // Ley de Enjuiciamiento Criminal
	"lecr":    "BOE-A-1882-6036",
	"lopj":    "BOE-A-1985-12666", // Ley Orgánica del Poder Judicial
	"lotc":    "BOE-A-1979-23709", // Ley Orgánica del Tribunal Constitucional
	"loreg":   "BOE-A-1985-11672", // Ley Orgánica del Régimen Electoral General
	"lopdgdd": "BOE-A-2018-16673", // Ley Orgánica de Protección de Datos
	"lopd":    "BOE-A-2018-16673",
	"lpac":    "BOE-A-2015-10565", // Ley de Procedimiento Administrativo Común
	"lrjsp":   "BOE-A-2015-10566", // Ley de Régimen Jurídico del Sector Público
	"ljca":    "BOE-A-1998-16718", // Ley de la Jurisdicción Contencioso-administrativa
	"et":      "BOE-A-2015-11430", // Estatuto de los Trabajadores
	"lgss":    "BOE-A-2015-11724", // Ley General de la Seguridad Social
	"lgt":     "BOE-A-2003-23186", // Ley General Tributaria
	"lirpf":   "BOE-A-2006-20764", // Ley del IRPF
	"lis":     "BOE-A-2014-12328", // Ley del Impuesto sobre Sociedades
	"liva":    "BOE-A-1992-28740", // Ley del IVA
	"lph":     "BOE-A-1960-10906", // Ley de Propiedad Horizontal
	"lau":     "BOE-A-1994-26003", // Ley de Arrendamientos Urbanos
	"lh":      "BOE-A-1946-2453",  // Ley Hipotecaria
	"lsc":     "BOE-A-2010-10544", // Ley de Sociedades de Capital
}

// knownLawsByTypeAndNumber maps a "{law_type}|{law_number}" key (law_type as
// classifyLawType's input string, lowercased) to a BOE ID, for full
// citations like "Ley Orgánica 3/2018" that spell out a number instead of
// using an abbreviation.
var knownLawsByTypeAndNumber = map[string]string{
	"ley orgánica|3/2018": "BOE-A-2018-16673",
	"ley|39/2015":         "BOE-A-2015-10565",
	"ley|40/2015":         "BOE-A-2015-10566",
}

var (
	overridesMu sync.RWMutex
	overrides   map[string]string
)

// LoadKnownLawOverrides merges a YAML file of abbreviation → BOE-ID pairs
// that Extract consults before the built-in table; an entry for an
// abbreviation the table already carries takes precedence over it. Keys are
// matched case-insensitively. Only the abbreviations the abbreviated pattern
// recognizes are ever looked up, so an entry for any other abbreviation has
// no effect. "law type|number" keys are consulted the same way by tryResolve.
func LoadKnownLawOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read known laws override %s: %w", path, err)
	}
	var extra map[string]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return fmt.Errorf("parse known laws override %s: %w", path, err)
	}
	overridesMu.Lock()
	defer overridesMu.Unlock()
	if overrides == nil {
		overrides = map[string]string{}
	}
	for k, v := range extra {
		overrides[strings.ToLower(k)] = v
	}
	return nil
}

// tryResolve maps a law type + number to a known BOE identifier, consulting
// operator-supplied overrides before the built-in table.
func tryResolve(lawType, lawNumber string) string {
	key := strings.ToLower(strings.TrimSpace(lawType)) + "|" + lawNumber

	overridesMu.RLock()
	defer overridesMu.RUnlock()
	if overrides != nil {
		if id, ok := overrides[key]; ok {
			return id
		}
	}
	if id, ok := knownLawsByTypeAndNumber[key]; ok {
		return id
	}
	return ""
}
