package search

import (
	"os"

	"github.com/linuxdeepin/dfm-toolkit/pkg/searcherr"
)

// Preflight validates a query + options before any index or filesystem
// work starts. These are errors, not warnings: a preflight failure
// means the search never starts.
func Preflight(q SearchQuery, opts SearchOptions) error {
	if opts.SearchPath == "" {
		return searcherr.New(searcherr.PathIsEmpty, "search_path is empty")
	}
	info, err := os.Stat(opts.SearchPath)
	if err != nil {
		return searcherr.New(searcherr.PathNotFound, opts.SearchPath)
	}
	if !info.IsDir() {
		return searcherr.New(searcherr.PathNotFound, opts.SearchPath+" is not a directory")
	}
	if f, err := os.Open(opts.SearchPath); err != nil {
		return searcherr.New(searcherr.PermissionDenied, opts.SearchPath)
	} else {
		f.Close()
	}

	if q.Kind == QueryBoolean && len(q.Terms) == 0 {
		return searcherr.New(searcherr.InvalidBoolean, "boolean query has no sub-queries")
	}

	hasTypeOrExt := len(opts.FileTypes) > 0 || len(opts.FileExtensions) > 0
	if q.Kind != QueryBoolean && q.Keyword == "" && !hasTypeOrExt {
		return searcherr.New(searcherr.KeywordIsEmpty, "no keyword, file type, or extension filter supplied")
	}

	for _, t := range opts.FileTypes {
		if !IsValidFileType(t) {
			return searcherr.New(searcherr.InvalidFileTypes, string(t))
		}
	}

	return nil
}
