package search

// Plan determines the effective internal Mode for a filename query from
// the public query plus options, following this precedence:
//
//  1. keyword present AND (file types OR extensions present) -> Combined
//  2. no keyword, file types present                          -> FileType
//  3. no keyword, extensions present                           -> FileExt
//  4. query is Wildcard                                        -> Wildcard
//  5. query is Boolean                                         -> Boolean
//  6. pinyin enabled and keyword is valid pinyin                -> Pinyin
//  7. pinyin-acronym enabled and keyword is valid acronym        -> PinyinAcronym
//  8. otherwise                                                  -> Simple
func Plan(q SearchQuery, opts SearchOptions) Mode {
	hasTypeOrExt := len(opts.FileTypes) > 0 || len(opts.FileExtensions) > 0
	hasKeyword := q.Kind != QueryBoolean && q.Keyword != ""

	if hasKeyword && hasTypeOrExt {
		return ModeCombined
	}
	if !hasKeyword {
		if len(opts.FileTypes) > 0 {
			return ModeFileType
		}
		if len(opts.FileExtensions) > 0 {
			return ModeFileExt
		}
	}
	if q.Kind == QueryWildcard {
		return ModeWildcard
	}
	if q.Kind == QueryBoolean {
		return ModeBoolean
	}
	if opts.PinyinEnabled && IsPinyin(q.Keyword) {
		return ModePinyin
	}
	if opts.PinyinAcronymEnabled && IsPinyinAcronym(q.Keyword) {
		return ModePinyinAcronym
	}
	return ModeSimple
}
