package search

import (
	"github.com/linuxdeepin/dfm-toolkit/pkg/searcherr"
)

// BuildContentQuery constructs the index query for a content search.
// Content search is indexed-only: Realtime is rejected, Wildcard
// queries are rejected, and a Simple keyword shorter than
// kMinContentSearchKeywordLength UTF-8 bytes (not runes) is rejected.
func BuildContentQuery(q SearchQuery, opts SearchOptions) (Query, error) {
	if opts.Method == MethodRealtime {
		return Query{}, searcherr.New(searcherr.InvalidSearchMethod, "content search requires an index")
	}
	if q.Kind == QueryWildcard {
		return Query{}, searcherr.New(searcherr.WildcardNotSupported, "content search does not support wildcard queries")
	}
	if q.Kind == QuerySimple && len(q.Keyword) < kMinContentSearchKeywordLength {
		return Query{}, searcherr.New(searcherr.KeywordTooShort, "content keyword below minimum length")
	}

	terms := contentTerms(q)
	if len(terms) == 0 {
		return Query{}, searcherr.New(searcherr.KeywordIsEmpty, "content search requires at least one term")
	}

	if opts.FilenameContentMixedAndEnabled && q.Kind == QueryBoolean && q.Op == BooleanAND {
		return buildMixedAndQuery(terms), nil
	}
	return buildDefaultContentQuery(terms, q.Op), nil
}

func contentTerms(q SearchQuery) []string {
	if q.Kind == QueryBoolean {
		out := make([]string, 0, len(q.Terms))
		for _, t := range q.Terms {
			if t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	if q.Keyword == "" {
		return nil
	}
	return []string{q.Keyword}
}

// buildDefaultContentQuery ANDs or ORs a per-term contents query,
// following the query's own boolean operator (Simple queries behave
// like a single-term AND/OR, which is a no-op either way).
func buildDefaultContentQuery(terms []string, op BooleanOp) Query {
	children := make([]Query, len(terms))
	for i, t := range terms {
		children[i] = term(FieldContents, escapeQueryChars(t))
	}
	if len(children) == 1 {
		return children[0]
	}
	if op == BooleanOR {
		return or(children...)
	}
	return and(children...)
}

// buildMixedAndQuery builds
//
//	AND_i (contents:k_i OR filename:k_i) AND NOT (filename:k_1 AND filename:k_2 ... AND filename:k_n)
//
// matching when every term appears either in content or filename,
// while excluding hits where every term happens to be in the filename
// alone (those belong to the filename engine, not this one).
func buildMixedAndQuery(terms []string) Query {
	perTerm := make([]Query, len(terms))
	filenameOnly := make([]Query, len(terms))
	for i, t := range terms {
		escaped := escapeQueryChars(t)
		perTerm[i] = or(term(FieldContents, escaped), term(FieldFilename, escaped))
		filenameOnly[i] = term(FieldFilename, escaped)
	}
	mustNot := not(and(filenameOnly...))
	return and(append(perTerm, mustNot)...)
}
