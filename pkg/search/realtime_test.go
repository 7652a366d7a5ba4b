package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildWalkTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "meeting-notes-2023.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "report.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden-notes.txt"), []byte("x"), 0o644))
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "archive.tar.gz"), []byte("x"), 0o644))
	return root
}

func TestRealtimeWalk_SimpleContains(t *testing.T) {
	root := buildWalkTree(t)
	var got []string
	err := RealtimeWalk(root, SearchOptions{IncludeHidden: true}, Simple("notes"), neverCancelled, func(p string) bool {
		got = append(got, p)
		return false
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got[0], ".hidden-notes.txt")
	assert.Contains(t, got[1], "meeting-notes-2023.txt")
}

func TestRealtimeWalk_BooleanAnd(t *testing.T) {
	root := buildWalkTree(t)
	var got []string
	q := Boolean(BooleanAND, []string{"meeting", "notes", "2023"})
	err := RealtimeWalk(root, SearchOptions{IncludeHidden: true}, q, neverCancelled, func(p string) bool {
		got = append(got, p)
		return false
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRealtimeWalk_ExcludesHiddenByDefault(t *testing.T) {
	root := buildWalkTree(t)
	var got []string
	err := RealtimeWalk(root, SearchOptions{}, Simple("notes"), neverCancelled, func(p string) bool {
		got = append(got, p)
		return false
	})
	require.NoError(t, err)
	assert.Len(t, got, 1) // only meeting-notes, the hidden one is excluded
}

func TestRealtimeWalk_ExtensionFilterAndRecursion(t *testing.T) {
	root := buildWalkTree(t)
	var got []string
	opts := SearchOptions{IncludeHidden: true, FileExtensions: []string{"gz"}}
	err := RealtimeWalk(root, opts, Simple(""), neverCancelled, func(p string) bool {
		got = append(got, p)
		return false
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "archive.tar.gz")
}

func TestRealtimeWalk_MaxResultsStopsEarly(t *testing.T) {
	root := buildWalkTree(t)
	var got []string
	opts := SearchOptions{IncludeHidden: true, MaxResults: 1}
	err := RealtimeWalk(root, opts, Simple(""), neverCancelled, func(p string) bool {
		got = append(got, p)
		return false
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRealtimeWalk_Cancellation(t *testing.T) {
	root := buildWalkTree(t)
	cancelled := func() bool { return true }
	var got []string
	err := RealtimeWalk(root, SearchOptions{IncludeHidden: true}, Simple(""), cancelled, func(p string) bool {
		got = append(got, p)
		return false
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func neverCancelled() bool { return false }
