package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeQueryChars(t *testing.T) {
	assert.Equal(t, `a\+b\-c`, escapeQueryChars("a+b-c"))
	assert.Equal(t, `\(x\)`, escapeQueryChars("(x)"))
}

func TestBuildFilenameQuery_Wildcard_NotEscaped(t *testing.T) {
	q := BuildFilenameQuery(ModeWildcard, Wildcard("*.tar.gz"), SearchOptions{})
	assert.Equal(t, OpWildcardTerm, q.Op)
	assert.Equal(t, FieldFilenameLower, q.Field)
	assert.Equal(t, "*.tar.gz", q.Value)
}

func TestBuildFilenameQuery_Wildcard_CaseFolds(t *testing.T) {
	q := BuildFilenameQuery(ModeWildcard, Wildcard("*.TAR.GZ"), SearchOptions{CaseSensitive: false})
	assert.Equal(t, "*.tar.gz", q.Value)
}

func TestBuildFilenameQuery_Simple(t *testing.T) {
	q := BuildFilenameQuery(ModeSimple, Simple("report"), SearchOptions{})
	require.Equal(t, OpTerm, q.Op)
	assert.Equal(t, FieldFilename, q.Field)
	assert.Equal(t, "report", q.Value)
}

func TestBuildFilenameQuery_Boolean(t *testing.T) {
	q := BuildFilenameQuery(ModeBoolean, Boolean(BooleanAND, []string{"meeting", "notes", "2023"}), SearchOptions{})
	require.Equal(t, OpAnd, q.Op)
	assert.Len(t, q.Children, 3)
}

func TestBuildFilenameQuery_BooleanSkipsEmptyTerms(t *testing.T) {
	q := BuildFilenameQuery(ModeBoolean, Boolean(BooleanAND, []string{"meeting", "", "notes"}), SearchOptions{})
	assert.Len(t, q.Children, 2)
}

func TestBuildFilenameQuery_Pinyin(t *testing.T) {
	q := BuildFilenameQuery(ModePinyin, Simple("nihao"), SearchOptions{PinyinEnabled: true})
	require.Equal(t, OpOr, q.Op)
	require.Len(t, q.Children, 2)
	assert.Equal(t, FieldFilename, q.Children[0].Field)
	assert.Equal(t, FieldPinyin, q.Children[1].Field)
}

func TestBuildFilenameQuery_FileTypeOr(t *testing.T) {
	q := BuildFilenameQuery(ModeFileType, Simple(""), SearchOptions{FileTypes: []FileType{FileTypeDoc, FileTypePic}})
	require.Equal(t, OpOr, q.Op)
	assert.Len(t, q.Children, 2)
}

func TestBuildFilenameQuery_Combined(t *testing.T) {
	opts := SearchOptions{FileTypes: []FileType{FileTypeDoc}, FileExtensions: []string{"pdf"}}
	q := BuildFilenameQuery(ModeCombined, Simple("report"), opts)
	require.Equal(t, OpAnd, q.Op)
	assert.Len(t, q.Children, 3)
}

func TestBuildFilenameQuery_PathPrefixOptimization(t *testing.T) {
	opts := SearchOptions{SearchPath: "/home/user/Documents"}
	q := BuildFilenameQuery(ModeSimple, Simple("report"), opts)
	require.Equal(t, OpAnd, q.Op)
	require.Len(t, q.Children, 2)
	assert.Equal(t, OpPrefix, q.Children[1].Op)
	assert.Equal(t, FieldFullPath, q.Children[1].Field)
}
