package search

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxdeepin/dfm-toolkit/pkg/searcherr"
)

func TestPreflight_RejectsEmptySearchPath(t *testing.T) {
	err := Preflight(Simple("report"), SearchOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.PathIsEmpty, ""))
}

func TestPreflight_RejectsMissingPath(t *testing.T) {
	err := Preflight(Simple("report"), SearchOptions{SearchPath: "/no/such/path/at/all"})
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.PathNotFound, ""))
}

func TestPreflight_RejectsNonDirectory(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "file")
	require.NoError(t, err)
	f.Close()

	err = Preflight(Simple("report"), SearchOptions{SearchPath: f.Name()})
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.PathNotFound, ""))
}

func TestPreflight_RejectsEmptyBooleanQuery(t *testing.T) {
	root := t.TempDir()
	err := Preflight(Boolean(BooleanAND, nil), SearchOptions{SearchPath: root})
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.InvalidBoolean, ""))
}

func TestPreflight_RejectsEmptyKeywordWithoutFilter(t *testing.T) {
	root := t.TempDir()
	err := Preflight(Simple(""), SearchOptions{SearchPath: root})
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.KeywordIsEmpty, ""))
}

func TestPreflight_AllowsEmptyKeywordWithFileType(t *testing.T) {
	root := t.TempDir()
	err := Preflight(Simple(""), SearchOptions{SearchPath: root, FileTypes: []FileType{FileTypeDoc}})
	assert.NoError(t, err)
}

func TestPreflight_RejectsInvalidFileType(t *testing.T) {
	root := t.TempDir()
	err := Preflight(Simple("x"), SearchOptions{SearchPath: root, FileTypes: []FileType{"bogus"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.InvalidFileTypes, ""))
}

func TestPreflight_AcceptsValidQuery(t *testing.T) {
	root := t.TempDir()
	err := Preflight(Simple("report"), SearchOptions{SearchPath: root})
	assert.NoError(t, err)
}
