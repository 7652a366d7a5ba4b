package search

import "strings"

// Field names are contractual (read/written by the index this engine
// consumes), not tied to any particular index library's own field
// naming.
type Field string

const (
	FieldFilename      Field = "filename"
	FieldFilenameLower Field = "file_name_lower"
	FieldFullPath      Field = "full_path"
	FieldFileType      Field = "file_type"
	FieldFileExt       Field = "file_ext"
	FieldPinyin        Field = "pinyin"
	FieldPinyinAcronym Field = "pinyin_acronym"
	FieldIsHidden      Field = "is_hidden"
	FieldContents      Field = "contents"
)

// QueryOp is the node kind of a constructed Query tree.
type QueryOp int

const (
	OpTerm QueryOp = iota
	OpWildcardTerm
	OpPrefix
	OpAnd
	OpOr
	OpNot
)

// Query is the constructed index query tree. It is intentionally a
// plain tree rather than a library-specific query builder, since the
// on-disk index format and its query API are external collaborators
// this package only needs to describe a request to, not implement.
type Query struct {
	Op       QueryOp
	Field    Field
	Value    string
	Children []Query
}

func term(f Field, v string) Query          { return Query{Op: OpTerm, Field: f, Value: v} }
func wildcardTerm(f Field, v string) Query  { return Query{Op: OpWildcardTerm, Field: f, Value: v} }
func prefix(f Field, v string) Query        { return Query{Op: OpPrefix, Field: f, Value: v} }
func and(children ...Query) Query           { return Query{Op: OpAnd, Children: children} }
func or(children ...Query) Query            { return Query{Op: OpOr, Children: children} }
func not(q Query) Query                     { return Query{Op: OpNot, Children: []Query{q}} }

// specialChars is the set of query-syntax characters that must be
// backslash-escaped in any user-supplied term before it is parsed by
// the index's own query parser (wildcard terms bypass the parser and
// are never escaped).
const specialChars = `+-&&||!(){}[]^"~*?:\/`

func escapeQueryChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parsedFilenameQuery splits keyword on whitespace and ANDs an escaped
// term query per token against filename, the "parsed query" Simple
// mode uses.
func parsedFilenameQuery(field Field, keyword string) Query {
	tokens := strings.Fields(keyword)
	if len(tokens) == 0 {
		return term(field, "")
	}
	if len(tokens) == 1 {
		return term(field, escapeQueryChars(tokens[0]))
	}
	children := make([]Query, len(tokens))
	for i, t := range tokens {
		children[i] = term(field, escapeQueryChars(t))
	}
	return and(children...)
}

// booleanTermSubquery is the per-term OR of {filename, pinyin (if
// valid), pinyin-acronym (if valid)} used by both Boolean mode and
// Combined mode's keyword half.
func booleanTermSubquery(term_ string, opts SearchOptions) Query {
	children := []Query{parsedFilenameQuery(FieldFilename, term_)}
	if opts.PinyinEnabled && IsPinyin(term_) {
		children = append(children, parsedFilenameQuery(FieldPinyin, term_))
	}
	if opts.PinyinAcronymEnabled && IsPinyinAcronym(term_) {
		children = append(children, parsedFilenameQuery(FieldPinyinAcronym, term_))
	}
	if len(children) == 1 {
		return children[0]
	}
	return or(children...)
}

func fileTypeQuery(types []FileType) Query {
	children := make([]Query, len(types))
	for i, t := range types {
		children[i] = term(FieldFileType, string(t))
	}
	if len(children) == 1 {
		return children[0]
	}
	return or(children...)
}

func fileExtQuery(exts []string) Query {
	children := make([]Query, len(exts))
	for i, e := range exts {
		children[i] = term(FieldFileExt, strings.ToLower(e))
	}
	if len(children) == 1 {
		return children[0]
	}
	return or(children...)
}

// BuildFilenameQuery constructs the index query for a filename search
// given the plan already selected by Plan(q, opts).
func BuildFilenameQuery(mode Mode, q SearchQuery, opts SearchOptions) Query {
	var built Query
	switch mode {
	case ModeSimple:
		built = parsedFilenameQuery(FieldFilename, q.Keyword)
	case ModeWildcard:
		pattern := q.Keyword
		if !opts.CaseSensitive {
			pattern = strings.ToLower(pattern)
		}
		built = wildcardTerm(FieldFilenameLower, pattern)
	case ModeBoolean:
		terms := make([]Query, 0, len(q.Terms))
		for _, t := range q.Terms {
			if t == "" {
				continue
			}
			terms = append(terms, booleanTermSubquery(t, opts))
		}
		if q.Op == BooleanOR {
			built = or(terms...)
		} else {
			built = and(terms...)
		}
	case ModePinyin:
		built = or(parsedFilenameQuery(FieldFilename, q.Keyword), parsedFilenameQuery(FieldPinyin, q.Keyword))
	case ModePinyinAcronym:
		built = or(parsedFilenameQuery(FieldFilename, q.Keyword), parsedFilenameQuery(FieldPinyinAcronym, q.Keyword))
	case ModeFileType:
		built = fileTypeQuery(opts.FileTypes)
	case ModeFileExt:
		built = fileExtQuery(opts.FileExtensions)
	case ModeCombined:
		parts := []Query{booleanTermSubquery(q.Keyword, opts)}
		if len(opts.FileTypes) > 0 {
			parts = append(parts, fileTypeQuery(opts.FileTypes))
		}
		if len(opts.FileExtensions) > 0 {
			parts = append(parts, fileExtQuery(opts.FileExtensions))
		}
		built = and(parts...)
	default:
		built = parsedFilenameQuery(FieldFilename, q.Keyword)
	}
	return withPathPrefixOptimization(built, opts)
}

// withPathPrefixOptimization ANDs in a prefix query on full_path when
// search_path is not a configured index root, pruning the scan instead
// of relying solely on the result-filtering pass.
func withPathPrefixOptimization(q Query, opts SearchOptions) Query {
	if opts.SearchPath == "" || isConfiguredRoot(opts.SearchPath) {
		return q
	}
	return and(q, prefix(FieldFullPath, opts.SearchPath))
}

// isConfiguredRoot reports whether path is one of the engine's indexed
// roots (the current user's home directory; see indexRoots in engine.go).
func isConfiguredRoot(path string) bool {
	for _, root := range indexRoots() {
		if path == root {
			return true
		}
	}
	return false
}
