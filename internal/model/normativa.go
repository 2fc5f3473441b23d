package model

import "time"

// Metadata carries the bibliographic and classification fields attached to a
// Normativa, mirroring what the BOE/EUR-Lex source feeds expose alongside
// the document body.
type Metadata struct {
	Ambito                string
	Departamento           string
	Rango                  string
	FechaDisposicion       string
	FechaPublicacion       string
	FechaVigencia          string
	EstadoConsolidacion    string
	URLELI                 string
	URLHTMLConsolidado     string
	URLPDF                 string
	Titulo                 string
	Diario                 string
	NumeroOficial          string
	Origen                 string
	Materias               []string
}

// ReferenciaType classifies a bibliographic relationship reported by the
// source feed between two Normativa documents (as opposed to a reference
// extracted from running article text, see ExtractedReference).
type ReferenciaType string

const (
	RelacionAnterior  ReferenciaType = "anterior"
	RelacionPosterior ReferenciaType = "posterior"
)

// Referencia is a single bibliographic relationship entry as reported by the
// source feed's metadata (e.g. "this norm modifies BOE-A-2015-1234").
type Referencia struct {
	IDNorma  string
	Type     ReferenciaType
	Relacion int
	Text     string
}

// IsValid reports whether the relation code is recognized.
func (r Referencia) IsValid() bool {
	return r.Relacion > 0
}

// Version is a single consolidated version of a Normativa at a point in
// time: the text tree as it stood between FechaPublicacion and the next
// FechaVigencia.
type Version struct {
	IDNorma          string
	FechaPublicacion time.Time
	FechaVigencia    *time.Time
	Root             *Node
}

// Normativa is the top-level legal document: a BOE law/decree/order or a
// EUR-Lex regulation/directive, with its full parsed hierarchy and known
// bibliographic relationships to other documents.
type Normativa struct {
	ID           string
	Metadata     Metadata
	Root         *Node
	Referencias  []Referencia
	IngestedAt   time.Time
}
