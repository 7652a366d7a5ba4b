package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxdeepin/dfm-toolkit/internal/fake"
	"github.com/linuxdeepin/dfm-toolkit/pkg/metrics"
	"github.com/linuxdeepin/dfm-toolkit/pkg/searcherr"
)

func TestEngine_SearchSync_IndexedFilename(t *testing.T) {
	root := t.TempDir()
	reader := &fake.IndexReader{Docs: []IndexDocument{
		{Path: filepath.Join(root, "report.pdf")},
	}}
	e := New(reader, nil, nil, metrics.New())

	opts := SearchOptions{SearchPath: root, Method: MethodIndexed, SyncTimeoutSeconds: 5}
	results, err := e.SearchSync(context.Background(), Simple("report"), opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(root, "report.pdf"), results[0].Path)
}

func TestEngine_SearchSync_ZeroTimeoutIsImmediateTimeout(t *testing.T) {
	root := t.TempDir()
	e := New(&fake.IndexReader{}, nil, nil, metrics.New())

	opts := SearchOptions{SearchPath: root, Method: MethodIndexed, SyncTimeoutSeconds: 0}
	_, err := e.SearchSync(context.Background(), Simple("report"), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.SearchTimeout, ""))
}

func TestEngine_SearchSync_FilenameIndexUnavailable(t *testing.T) {
	root := t.TempDir()
	checker := &fake.IndexStatusChecker{Filename: IndexAvailability{Available: false}}
	e := New(&fake.IndexReader{}, nil, checker, metrics.New())

	opts := SearchOptions{SearchPath: root, Method: MethodIndexed, SyncTimeoutSeconds: 5}
	_, err := e.SearchSync(context.Background(), Simple("report"), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.FileNameIndexNotFound, ""))
}

func TestEngine_SearchSync_ContentIndexUnavailable(t *testing.T) {
	root := t.TempDir()
	checker := &fake.IndexStatusChecker{Content: IndexAvailability{Available: false}}
	e := New(nil, &fake.IndexReader{}, checker, metrics.New())

	opts := SearchOptions{SearchPath: root, Method: MethodIndexed, SyncTimeoutSeconds: 5, Target: TargetContent}
	_, err := e.SearchSync(context.Background(), Simple("report"), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.ContentIndexNotFound, ""))
}

func TestEngine_SearchSync_PreflightFailurePropagates(t *testing.T) {
	e := New(&fake.IndexReader{}, nil, nil, metrics.New())
	opts := SearchOptions{Method: MethodIndexed, SyncTimeoutSeconds: 5}
	_, err := e.SearchSync(context.Background(), Simple("report"), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, searcherr.New(searcherr.PathIsEmpty, ""))
}

func TestEngine_SearchWithCallback_InvokedPerStreamedResult(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("x"), 0o644))

	opts := SearchOptions{SearchPath: root, Method: MethodRealtime, IncludeHidden: true, StreamResults: true}
	e := New(nil, nil, nil, metrics.New())

	var calls int
	results, err := e.SearchWithCallback(context.Background(), Simple("txt"), opts, func(r SearchResult) bool {
		calls++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, results, 2)
}

func TestEngine_SearchSync_RealtimeFindsFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "other.txt"), []byte("x"), 0o644))

	e := New(nil, nil, nil, metrics.New())
	opts := SearchOptions{SearchPath: root, Method: MethodRealtime, IncludeHidden: true, SyncTimeoutSeconds: 5}
	results, err := e.SearchSync(context.Background(), Simple("notes"), opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Path, "notes.txt")
}

func TestEngine_SearchAsync_CancelYieldsNoError(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "f"+string(rune('a'+i%26))+".txt"), []byte("x"), 0o644))
	}

	e := New(nil, nil, nil, metrics.New())
	opts := SearchOptions{SearchPath: root, Method: MethodRealtime, IncludeHidden: true}

	var finalErr error
	obs := &testObserver{onError: func(err error) { finalErr = err }}
	job, err := e.SearchAsync(context.Background(), Simple("txt"), opts, obs)
	require.NoError(t, err)
	job.Cancel()
	job.Wait()
	assert.NoError(t, finalErr)
}

type testObserver struct {
	onError func(error)
}

func (o *testObserver) Started()                     {}
func (o *testObserver) ResultsFound(_ []SearchResult) {}
func (o *testObserver) Finished(_ []SearchResult)     {}
func (o *testObserver) Cancelled()                    {}
func (o *testObserver) Error(err error) {
	if o.onError != nil {
		o.onError(err)
	}
}
