package model

import "time"

// ChangeEvent records one structural or textual difference the Change
// Detector found between two versions of the same article. It is logged
// for observability; it is never persisted as a graph edge.
type ChangeEvent struct {
	ArticleID string
	Kind      string // added | modified | removed
	NodeType  string
	NodeName  string

	FromVersion *time.Time
	ToVersion   *time.Time
	DetectedAt  time.Time
}
