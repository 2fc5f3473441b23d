package retriever

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/google/uuid"

	"github.com/mhanii/corolaria-sub000/common"
	"github.com/mhanii/corolaria-sub000/internal/model"
)

// boeDocumento mirrors the subset of BOE's consolidated-text XML feed this
// engine cares about: metadata plus the plain-text body, already stripped of
// the feed's own inline markup by the server.
type boeDocumento struct {
	XMLName  xml.Name `xml:"documento"`
	Metadata struct {
		Identificador       string `xml:"identificador"`
		Ambito              string `xml:"ambito"`
		Departamento        string `xml:"departamento"`
		Rango               string `xml:"rango"`
		FechaDisposicion    string `xml:"fecha_disposicion"`
		FechaPublicacion    string `xml:"fecha_publicacion"`
		FechaVigencia       string `xml:"fecha_vigencia"`
		EstadoConsolidacion string `xml:"estado_consolidacion"`
		Titulo              string `xml:"titulo"`
		Diario              string `xml:"diario"`
		NumeroOficial       string `xml:"numero_oficial"`
		URLELI              string `xml:"url_eli"`
		URLHTMLConsolidado  string `xml:"url_html_consolidado"`
		URLPDF              string `xml:"url_pdf"`
		Materias            struct {
			Materia []string `xml:"materia"`
		} `xml:"materias"`
	} `xml:"metadatos"`
	Texto struct {
		Bloque []struct {
			Contenido string `xml:",chardata"`
		} `xml:"bloque"`
	} `xml:"texto"`
}

// BOESource fetches a document from BOE's XML-like consolidated-text API.
type BOESource struct {
	HTTP    *http.Client
	BaseURL string // e.g. "https://www.boe.es/diario_boe/xml.php"

	limiter *rate.Limiter
}

// NewBOESource builds a BOESource with a courteous client-side request cap,
// the way http/server.go caps outbound calls with golang.org/x/time/rate.
func NewBOESource(httpClient *http.Client, baseURL string, requestsPerSecond float64) *BOESource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &BOESource{
		HTTP:    httpClient,
		BaseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Fetch retrieves documentID's consolidated XML and flattens its text blocks
// into newline-joined plain text.
func (s *BOESource) Fetch(ctx context.Context, documentID string) (string, model.Metadata, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", model.Metadata{}, fmt.Errorf("%w: rate limit wait: %v", ErrSourceUnavailable, err)
		}
	}

	url := fmt.Sprintf("%s?id=%s", s.BaseURL, documentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", model.Metadata{}, fmt.Errorf("%w: build BOE request: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return "", model.Metadata{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", model.Metadata{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	case resp.StatusCode >= 500:
		return "", model.Metadata{}, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return "", model.Metadata{}, fmt.Errorf("%w: status %d", ErrDocumentNotFound, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", model.Metadata{}, fmt.Errorf("%w: read BOE response: %v", ErrSourceUnavailable, err)
	}

	var doc boeDocumento
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", model.Metadata{}, fmt.Errorf("%w: decode BOE XML: %v", ErrDocumentNotFound, err)
	}

	meta := model.Metadata{
		Ambito:              doc.Metadata.Ambito,
		Departamento:        doc.Metadata.Departamento,
		Rango:               doc.Metadata.Rango,
		FechaDisposicion:    doc.Metadata.FechaDisposicion,
		FechaPublicacion:    doc.Metadata.FechaPublicacion,
		FechaVigencia:       doc.Metadata.FechaVigencia,
		EstadoConsolidacion: doc.Metadata.EstadoConsolidacion,
		URLELI:              doc.Metadata.URLELI,
		URLHTMLConsolidado:  doc.Metadata.URLHTMLConsolidado,
		URLPDF:              doc.Metadata.URLPDF,
		Titulo:              doc.Metadata.Titulo,
		Diario:              doc.Metadata.Diario,
		NumeroOficial:       doc.Metadata.NumeroOficial,
		Origen:              "BOE",
		Materias:            doc.Metadata.Materias.Materia,
	}

	var text string
	for i, block := range doc.Texto.Bloque {
		if i > 0 {
			text += "\n"
		}
		text += block.Contenido
	}

	common.Logger.WithField("document_id", documentID).WithField("bytes", len(body)).
		Debug("fetched BOE document")

	return text, meta, nil
}
