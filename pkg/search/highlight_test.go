package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighlight_WrapsKeyword(t *testing.T) {
	content := "the quick brown fox jumps over the lazy dog"
	out := Highlight(content, []string{"fox"}, 40, true, false)
	assert.Contains(t, out, "<b>fox</b>")
}

func TestHighlight_KeywordExceedsPreviewReturnsKeywordAlone(t *testing.T) {
	longKeyword := strings.Repeat("x", 50)
	content := "prefix " + longKeyword + " suffix"
	out := Highlight(content, []string{longKeyword}, 10, true, false)
	assert.Equal(t, longKeyword, out)
}

func TestHighlight_CollapsesAdjacentTags(t *testing.T) {
	content := "foofoo bar"
	out := Highlight(content, []string{"foo"}, 40, true, false)
	assert.NotContains(t, out, "</b><b>")
	assert.Contains(t, out, "<b>foofoo</b>")
}

func TestHighlight_NoHTMLWhenDisabled(t *testing.T) {
	content := "the quick brown fox"
	out := Highlight(content, []string{"fox"}, 40, false, false)
	assert.NotContains(t, out, "<b>")
}

func TestHighlight_CaseInsensitiveByDefault(t *testing.T) {
	content := "The Quick Brown FOX"
	out := Highlight(content, []string{"fox"}, 40, true, false)
	assert.Contains(t, out, "<b>FOX</b>")
}
