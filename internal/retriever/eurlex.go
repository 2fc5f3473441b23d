package retriever

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/google/uuid"

	"github.com/mhanii/corolaria-sub000/common"
	"github.com/mhanii/corolaria-sub000/internal/model"
)

var (
	htmlTagPattern   = regexp.MustCompile(`(?s)<[^>]*>`)
	htmlEntityAmp    = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&nbsp;", " ", "&quot;", `"`)
	collapseBlankRun = regexp.MustCompile(`\n{3,}`)
)

// EURLexSource fetches a document's HTML rendering over plain HTTP and
// reduces it to a text surrogate, since EUR-Lex exposes no structured API
// equivalent to BOE's XML feed for full consolidated texts.
type EURLexSource struct {
	HTTP    *http.Client
	BaseURL string // e.g. "https://eur-lex.europa.eu/legal-content/EN/TXT/HTML/"

	limiter *rate.Limiter
}

// NewEURLexSource builds an EURLexSource with the same client-side request
// cap idiom as BOESource.
func NewEURLexSource(httpClient *http.Client, baseURL string, requestsPerSecond float64) *EURLexSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &EURLexSource{
		HTTP:    httpClient,
		BaseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Fetch retrieves documentID's (a "CELEX:..." identifier) HTML rendering
// and strips it to plain text, one line per block-level element.
func (s *EURLexSource) Fetch(ctx context.Context, documentID string) (string, model.Metadata, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", model.Metadata{}, fmt.Errorf("%w: rate limit wait: %v", ErrSourceUnavailable, err)
		}
	}

	celex := strings.TrimPrefix(documentID, "CELEX:")
	url := s.BaseURL + celex

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", model.Metadata{}, fmt.Errorf("%w: build EUR-Lex request: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("Accept", "text/html")

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
		return "", model.Metadata{}, fmt.Errorf("%w: read EUR-Lex response: %v", ErrSourceUnavailable, err)
	}

	text := htmlToText(string(body))
	meta := model.Metadata{
		Origen:           "EUR-Lex",
		NumeroOficial:    celex,
		FechaPublicacion: time.Now().Format("2006-01-02"),
		URLHTMLConsolidado: url,
	}

	common.Logger.WithField("document_id", documentID).WithField("bytes", len(body)).
		Debug("fetched EUR-Lex document")

	return text, meta, nil
}

// htmlToText is a deliberately crude surrogate: it breaks the document on
// block-level closing tags, strips remaining tags, and decodes the handful
// of entities EUR-Lex's markup actually uses. It is not a general HTML
// parser; the tree builder's level table is tolerant of the residual noise
// this leaves behind.
func htmlToText(body string) string {
	replacer := strings.NewReplacer(
		"</p>", "\n", "</div>", "\n", "</li>", "\n", "<br>", "\n", "<br/>", "\n", "<br />", "\n",
	)
	text := replacer.Replace(body)
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = htmlEntityAmp.Replace(text)
	text = collapseBlankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
