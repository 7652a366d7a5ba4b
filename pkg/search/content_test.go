package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxdeepin/dfm-toolkit/pkg/searcherr"
)

func TestBuildContentQuery_RejectsRealtime(t *testing.T) {
	_, err := BuildContentQuery(Simple("report"), SearchOptions{Method: MethodRealtime})
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.InvalidSearchMethod, ""))
}

func TestBuildContentQuery_RejectsWildcard(t *testing.T) {
	_, err := BuildContentQuery(Wildcard("*.txt"), SearchOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.WildcardNotSupported, ""))
}

func TestBuildContentQuery_RejectsShortKeyword(t *testing.T) {
	_, err := BuildContentQuery(Simple("a"), SearchOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.KeywordTooShort, ""))
}

func TestBuildContentQuery_AcceptsSingleMultibyteRune(t *testing.T) {
	// "好" is one rune but three UTF-8 bytes; the minimum length is
	// counted in bytes, so this must be accepted despite its rune count
	// being 1.
	_, err := BuildContentQuery(Simple("好"), SearchOptions{})
	require.NoError(t, err)
}

func TestBuildContentQuery_MixedAnd(t *testing.T) {
	q, err := BuildContentQuery(Boolean(BooleanAND, []string{"dde", "file"}), SearchOptions{FilenameContentMixedAndEnabled: true})
	require.NoError(t, err)
	require.Equal(t, OpAnd, q.Op)
	// two per-term OR clauses plus the trailing MUST_NOT clause.
	require.Len(t, q.Children, 3)
	assert.Equal(t, OpOr, q.Children[0].Op)
	assert.Equal(t, OpOr, q.Children[1].Op)
	assert.Equal(t, OpNot, q.Children[2].Op)
	require.Len(t, q.Children[2].Children, 1)
	assert.Equal(t, OpAnd, q.Children[2].Children[0].Op)
}

func TestBuildContentQuery_DefaultBooleanOr(t *testing.T) {
	q, err := BuildContentQuery(Boolean(BooleanOR, []string{"dde", "file"}), SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, OpOr, q.Op)
}
