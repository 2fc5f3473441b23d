package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mhanii/corolaria-sub000/internal/model"
	"github.com/mhanii/corolaria-sub000/internal/reflink"
)

// unresolvedRecord is one line of the unresolved-reference log: enough to
// let an operator manually look up why a citation couldn't be resolved.
type unresolvedRecord struct {
	DocumentID   string `json:"document_id"`
	ArticleID    string `json:"article_id"`
	RawText      string `json:"raw_text"`
	LawType      string `json:"law_type,omitempty"`
	LawNumber    string `json:"law_number,omitempty"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

// newUnresolvedSink opens path for append and returns a reflink.UnresolvedSink
// that writes one newline-delimited JSON record per unresolved reference,
// plus a close func for the CLI to defer. An empty path disables the sink.
func newUnresolvedSink(path string) (reflink.UnresolvedSink, func() error, error) {
	noop := func() error { return nil }
	if path == "" {
		return nil, noop, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, noop, fmt.Errorf("create unresolved log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, noop, fmt.Errorf("open unresolved log %s: %w", path, err)
	}

	var mu sync.Mutex
	sink := func(documentID, articleID string, ref model.ExtractedReference) {
		record := unresolvedRecord{
			DocumentID:   documentID,
			ArticleID:    articleID,
			RawText:      ref.RawText,
			LawType:      ref.LawType,
			LawNumber:    ref.LawNumber,
			Abbreviation: ref.Abbreviation,
		}
		line, err := json.Marshal(record)
		if err != nil {
			log.WithError(err).Warn("marshal unresolved reference record")
			return
		}
		line = append(line, '\n')

		mu.Lock()
		defer mu.Unlock()
		if _, err := f.Write(line); err != nil {
			log.WithError(err).Warn("write unresolved reference record")
		}
	}

	return sink, f.Close, nil
}
