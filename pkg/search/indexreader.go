package search

import (
	"context"
	"time"
)

// IndexDocument is one raw hit returned by an IndexReader, before the
// engine's own path/hidden/excluded-path filtering and result shaping.
type IndexDocument struct {
	Path         string
	Size         int64
	ModifiedTime time.Time
	IsDirectory  bool
	FileType     FileType
	IsHidden     bool
	Content      string // populated for content-search hits, for Highlight
}

// IndexReader is the external collaborator: an already-built inverted
// index (filename or content) that can answer a constructed Query.
// This package never builds, updates, or owns the on-disk index
// format; a separate indexing daemon does that.
type IndexReader interface {
	Search(ctx context.Context, q Query, maxResults int) ([]IndexDocument, error)
}

// IndexAvailability reports whether an index is ready to serve
// queries, and if not, why.
type IndexAvailability struct {
	Available bool
	Status    string // "loading", "scanning", "monitoring", "closed", or "" if unknown
}

// IndexStatusChecker probes whether an index directory and its sidecar
// status file indicate a usable index, per §4.5.6's availability rules.
type IndexStatusChecker interface {
	FilenameIndexAvailability() IndexAvailability
	ContentIndexAvailability() IndexAvailability
}
