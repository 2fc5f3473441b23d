// Package retriever fetches one document's raw content and bibliographic
// metadata from its source of record: a structured XML-like API for
// national (BOE) documents, a plain HTTP fetch for EU (EUR-Lex) documents,
// or a local S3-compatible archive of previously-fetched payloads of either
// kind. Retrieval is read-only; nothing here caches.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mhanii/corolaria-sub000/internal/model"
	"github.com/mhanii/corolaria-sub000/internal/tree"
)

// ErrDocumentNotFound is terminal: the orchestrator marks the document
// failed and does not retry.
var ErrDocumentNotFound = errors.New("document not found")

// ErrSourceUnavailable is transient: the orchestrator retries the fetch
// exactly once before marking the document failed.
var ErrSourceUnavailable = errors.New("document source unavailable")

// Source fetches the raw payload and metadata for one document ID from a
// single backend. Source is national-source or EU-source specific; Retriever
// picks one by documentID shape.
type Source interface {
	Fetch(ctx context.Context, documentID string) (content string, metadata model.Metadata, err error)
}

// Retriever dispatches a document ID to the Source that owns its namespace.
// BOE IDs look like "BOE-A-2015-11430"; EUR-Lex IDs look like
// "CELEX:32016R0679". Archive is consulted only for IDs carrying the
// explicit "ARCHIVE:" prefix; a BOE or CELEX ID whose live source is not
// configured fails with ErrSourceUnavailable.
type Retriever struct {
	BOE     Source
	EURLex  Source
	Archive Source
}

// Fetch resolves documentID to a Source, fetches its raw content, and turns
// that content into the flat RawDocument the tree builder consumes.
func (r *Retriever) Fetch(ctx context.Context, documentID string) (tree.RawDocument, model.Metadata, error) {
	source, id, err := r.resolve(documentID)
	if err != nil {
		return tree.RawDocument{}, model.Metadata{}, err
	}

	content, meta, err := source.Fetch(ctx, id)
	if err != nil {
		return tree.RawDocument{}, model.Metadata{}, err
	}

	publishedAt, err := parseFechaPublicacion(meta.FechaPublicacion)
	if err != nil {
		return tree.RawDocument{}, meta, fmt.Errorf("%w: %v", ErrDocumentNotFound, err)
	}

	return tree.FromPlainText(content, publishedAt), meta, nil
}

func (r *Retriever) resolve(documentID string) (Source, string, error) {
	switch {
	case strings.HasPrefix(documentID, "ARCHIVE:"):
		if r.Archive == nil {
			return nil, "", fmt.Errorf("%w: no archive source configured", ErrSourceUnavailable)
		}
		return r.Archive, strings.TrimPrefix(documentID, "ARCHIVE:"), nil
	case strings.HasPrefix(documentID, "CELEX:"):
		if r.EURLex == nil {
			return nil, "", fmt.Errorf("%w: no EUR-Lex source configured", ErrSourceUnavailable)
		}
		return r.EURLex, documentID, nil
	case strings.HasPrefix(documentID, "BOE-"):
		if r.BOE == nil {
			return nil, "", fmt.Errorf("%w: no BOE source configured", ErrSourceUnavailable)
		}
		return r.BOE, documentID, nil
	default:
		return nil, "", fmt.Errorf("%w: unrecognized document ID %q", ErrDocumentNotFound, documentID)
	}
}
