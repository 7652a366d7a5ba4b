package search

import "strings"

// Highlight builds the content-search preview snippet: find the
// earliest position where any of keywords matches, take a window of
// maxPreviewLength runes centered on that match (snapped to the
// nearest newline boundaries where one is found close by), and, if
// htmlEnabled, wrap every keyword occurrence inside the window with
// <b>...</b>, collapsing any resulting "</b><b>" pairs.
func Highlight(content string, keywords []string, maxPreviewLength int, htmlEnabled, caseSensitive bool) string {
	runes := []rune(content)
	if len(runes) == 0 {
		return ""
	}

	matchPos, matchLen, keyword := earliestMatch(runes, keywords, caseSensitive)
	if matchLen > maxPreviewLength {
		// The keyword itself exceeds the preview budget: return it alone.
		return keyword
	}
	if matchPos < 0 {
		matchPos, matchLen = 0, 0
	}

	start, end := centeredWindow(len(runes), matchPos, matchLen, maxPreviewLength)
	start, end = snapToNewlines(runes, start, end)

	snippet := string(runes[start:end])
	if !htmlEnabled {
		return snippet
	}
	return collapseAdjacentTags(wrapKeywords(snippet, keywords, caseSensitive))
}

func earliestMatch(runes []rune, keywords []string, caseSensitive bool) (pos, length int, keyword string) {
	haystack := string(runes)
	if !caseSensitive {
		haystack = strings.ToLower(haystack)
	}
	best := -1
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		needle := kw
		if !caseSensitive {
			needle = strings.ToLower(needle)
		}
		idx := strings.Index(haystack, needle)
		if idx < 0 {
			continue
		}
		runeIdx := len([]rune(haystack[:idx]))
		if best == -1 || runeIdx < best {
			best = runeIdx
			pos = runeIdx
			length = len([]rune(kw))
			keyword = kw
		}
	}
	if best == -1 {
		return -1, 0, ""
	}
	return pos, length, keyword
}

func centeredWindow(total, matchPos, matchLen, maxPreviewLength int) (start, end int) {
	if maxPreviewLength <= 0 || maxPreviewLength >= total {
		return 0, total
	}
	slack := maxPreviewLength - matchLen
	if slack < 0 {
		slack = 0
	}
	start = matchPos - slack/2
	end = start + maxPreviewLength
	if start < 0 {
		end -= start
		start = 0
	}
	if end > total {
		start -= end - total
		end = total
	}
	if start < 0 {
		start = 0
	}
	return start, end
}

const newlineSearchRadius = 80

func snapToNewlines(runes []rune, start, end int) (int, int) {
	if s := lastNewlineBefore(runes, start, newlineSearchRadius); s >= 0 {
		start = s
	}
	if e := firstNewlineAfter(runes, end, newlineSearchRadius); e >= 0 {
		end = e
	}
	if start > end {
		start = end
	}
	return start, end
}

func lastNewlineBefore(runes []rune, pos, radius int) int {
	limit := pos - radius
	if limit < 0 {
		limit = 0
	}
	for i := pos; i > limit; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	return -1
}

func firstNewlineAfter(runes []rune, pos, radius int) int {
	limit := pos + radius
	if limit > len(runes) {
		limit = len(runes)
	}
	for i := pos; i < limit; i++ {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}

func wrapKeywords(snippet string, keywords []string, caseSensitive bool) string {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		snippet = wrapKeyword(snippet, kw, caseSensitive)
	}
	return snippet
}

func wrapKeyword(snippet, keyword string, caseSensitive bool) string {
	haystack := snippet
	needle := keyword
	if !caseSensitive {
		haystack = strings.ToLower(haystack)
		needle = strings.ToLower(needle)
	}
	var b strings.Builder
	rest := snippet
	restLower := haystack
	for {
		idx := strings.Index(restLower, needle)
		if idx < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:idx])
		b.WriteString("<b>")
		b.WriteString(rest[idx : idx+len(needle)])
		b.WriteString("</b>")
		rest = rest[idx+len(needle):]
		restLower = restLower[idx+len(needle):]
	}
	return b.String()
}

func collapseAdjacentTags(s string) string {
	for strings.Contains(s, "</b><b>") {
		s = strings.ReplaceAll(s, "</b><b>", "")
	}
	return s
}
