package fake

import (
	"context"

	"github.com/linuxdeepin/dfm-toolkit/pkg/search"
)

// IndexReader is a scriptable fake of search.IndexReader: it ignores
// the constructed Query and returns whatever Docs was preloaded with,
// truncated to maxResults when positive.
type IndexReader struct {
	Docs []search.IndexDocument
	Err  error

	LastQuery search.Query
}

var _ search.IndexReader = (*IndexReader)(nil)

func (r *IndexReader) Search(ctx context.Context, q search.Query, maxResults int) ([]search.IndexDocument, error) {
	r.LastQuery = q
	if r.Err != nil {
		return nil, r.Err
	}
	docs := r.Docs
	if maxResults > 0 && len(docs) > maxResults {
		docs = docs[:maxResults]
	}
	return docs, nil
}

// IndexStatusChecker is a scriptable fake of search.IndexStatusChecker.
type IndexStatusChecker struct {
	Filename search.IndexAvailability
	Content  search.IndexAvailability
}

var _ search.IndexStatusChecker = (*IndexStatusChecker)(nil)

func (c *IndexStatusChecker) FilenameIndexAvailability() search.IndexAvailability { return c.Filename }
func (c *IndexStatusChecker) ContentIndexAvailability() search.IndexAvailability  { return c.Content }
