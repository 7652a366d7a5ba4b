package search

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/klog/v2"

	"github.com/linuxdeepin/dfm-toolkit/pkg/metrics"
	"github.com/linuxdeepin/dfm-toolkit/pkg/searcherr"
)

const batchFlushInterval = 100 * time.Millisecond

// Observer receives the monotonic signal sequence for one search:
// Started, then zero or more ResultsFound batches, then exactly one of
// Finished/Cancelled/Error.
type Observer interface {
	Started()
	ResultsFound(batch []SearchResult)
	Finished(all []SearchResult)
	Cancelled()
	Error(err error)
}

// NopObserver implements Observer with no-ops, for callers that only
// want the final SearchSync/SearchWithCallback return value.
type NopObserver struct{}

func (NopObserver) Started()                     {}
func (NopObserver) ResultsFound(_ []SearchResult) {}
func (NopObserver) Finished(_ []SearchResult)     {}
func (NopObserver) Cancelled()                    {}
func (NopObserver) Error(_ error)                 {}

// Job is the handle returned by SearchAsync; Cancel() requests
// cancellation, checked at every loop iteration by the search goroutine
// (search: per result; realtime walk: per directory entry).
type Job struct {
	id        string
	cancelled atomic.Bool
	done      chan struct{}
}

func newJob() *Job {
	return &Job{done: make(chan struct{})}
}

// Cancel requests cancellation. Cancellation yields Observer.Cancelled
// with no error, once the search goroutine next checks the flag.
func (j *Job) Cancel() { j.cancelled.Store(true) }

func (j *Job) isCancelled() bool { return j.cancelled.Load() }

// Wait blocks until the job reaches a terminal state.
func (j *Job) Wait() { <-j.done }

// Engine plans and executes searches. Each call to SearchAsync runs on
// its own goroutine — the idiomatic-Go reading of "one dedicated
// worker thread per search engine instance owning strategy execution":
// a goroutine is the worker, context cancellation is the strategy
// hand-off, and the Engine itself stays stateless between calls.
type Engine struct {
	filenameIndex IndexReader
	contentIndex  IndexReader
	checker       IndexStatusChecker
	metrics       *metrics.Metrics

	mu   sync.Mutex
	jobs map[*Job]struct{}
}

// New constructs an Engine. Either index may be nil if that target is
// never queried by this process (e.g. a daemon that only serves
// filename search).
func New(filenameIndex, contentIndex IndexReader, checker IndexStatusChecker, m *metrics.Metrics) *Engine {
	return &Engine{
		filenameIndex: filenameIndex,
		contentIndex:  contentIndex,
		checker:       checker,
		metrics:       m,
		jobs:          make(map[*Job]struct{}),
	}
}

func indexRoots() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{home}
}

func searchTypeLabel(opts SearchOptions) string {
	if opts.Target == TargetContent {
		return "content"
	}
	return "filename"
}

// SearchAsync validates, plans, and executes q against opts, delivering
// the signal sequence to obs from a new goroutine. It returns
// immediately with a Job handle usable for cancellation.
func (e *Engine) SearchAsync(ctx context.Context, q SearchQuery, opts SearchOptions, obs Observer) (*Job, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	if err := Preflight(q, opts); err != nil {
		return nil, err
	}
	if err := e.checkIndexAvailability(opts); err != nil {
		return nil, err
	}

	job := newJob()
	e.mu.Lock()
	e.jobs[job] = struct{}{}
	e.mu.Unlock()

	go e.run(ctx, job, q, opts, obs)
	return job, nil
}

func (e *Engine) checkIndexAvailability(opts SearchOptions) error {
	if opts.Method != MethodIndexed || e.checker == nil {
		return nil
	}
	if opts.Target == TargetContent {
		if !e.checker.ContentIndexAvailability().Available {
			return searcherr.New(searcherr.ContentIndexNotFound, "content index unavailable")
		}
		return nil
	}
	if !e.checker.FilenameIndexAvailability().Available {
		return searcherr.New(searcherr.FileNameIndexNotFound, "filename index unavailable")
	}
	return nil
}

func (e *Engine) run(ctx context.Context, job *Job, q SearchQuery, opts SearchOptions, obs Observer) {
	defer func() {
		e.mu.Lock()
		delete(e.jobs, job)
		e.mu.Unlock()
		close(job.done)
	}()

	start := time.Now()
	obs.Started()

	var (
		all     []SearchResult
		pending []SearchResult
		flush   = rate.Sometimes{Interval: batchFlushInterval}
	)

	emit := func(r SearchResult) (cancelRequested bool) {
		all = append(all, r)
		pending = append(pending, r)
		if opts.StreamResults {
			flush.Do(func() {
				batch := pending
				pending = nil
				obs.ResultsFound(batch)
			})
		}
		if opts.MaxResults > 0 && len(all) >= opts.MaxResults {
			return true
		}
		return job.isCancelled()
	}

	var err error
	if opts.Method == MethodRealtime {
		err = e.runRealtime(ctx, job, q, opts, emit)
	} else {
		err = e.runIndexed(ctx, job, q, opts, emit)
	}

	if opts.StreamResults && len(pending) > 0 {
		obs.ResultsFound(pending)
	}

	outcome := "finished"
	switch {
	case err != nil:
		outcome = "error"
		klog.Errorf("search: %v", err)
		obs.Error(err)
	case job.isCancelled():
		outcome = "cancelled"
		obs.Cancelled()
	default:
		obs.Finished(all)
	}

	if e.metrics != nil {
		label := searchTypeLabel(opts)
		e.metrics.SearchesTotal.WithLabelValues(label, outcome).Inc()
		e.metrics.SearchDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		e.metrics.SearchResultsTotal.WithLabelValues(label).Add(float64(len(all)))
	}
}

func (e *Engine) runIndexed(ctx context.Context, job *Job, q SearchQuery, opts SearchOptions, emit func(SearchResult) bool) error {
	var built Query
	var reader IndexReader
	if opts.Target == TargetContent {
		cq, err := BuildContentQuery(q, opts)
		if err != nil {
			return err
		}
		built = cq
		reader = e.contentIndex
	} else {
		mode := Plan(q, opts)
		built = BuildFilenameQuery(mode, q, opts)
		reader = e.filenameIndex
	}
	if reader == nil {
		return searcherr.New(searcherr.InternalError, "no index reader configured for this target")
	}

	docs, err := reader.Search(ctx, built, opts.MaxResults)
	if err != nil {
		return searcherr.New(searcherr.InternalError, err.Error())
	}

	keywords := queryKeywords(q)
	for _, d := range docs {
		if job.isCancelled() {
			return nil
		}
		r, ok := toSearchResult(d, opts, keywords)
		if !ok {
			continue
		}
		if emit(r) {
			return nil
		}
	}
	return nil
}

func (e *Engine) runRealtime(ctx context.Context, job *Job, q SearchQuery, opts SearchOptions, emit func(SearchResult) bool) error {
	return RealtimeWalk(opts.SearchPath, opts, q, job.isCancelled, func(path string) bool {
		return emit(SearchResult{Path: path})
	})
}

func queryKeywords(q SearchQuery) []string {
	if q.Kind == QueryBoolean {
		return q.Terms
	}
	if q.Keyword == "" {
		return nil
	}
	return []string{q.Keyword}
}

// toSearchResult applies the result-processing filter (§4.5.4) and
// shapes an IndexDocument into a SearchResult; ok is false if the
// document was rejected.
func toSearchResult(d IndexDocument, opts SearchOptions, keywords []string) (SearchResult, bool) {
	if !strings.HasPrefix(d.Path, opts.SearchPath) {
		return SearchResult{}, false
	}
	for _, excluded := range opts.ExcludedPaths {
		if strings.HasPrefix(d.Path, excluded) {
			return SearchResult{}, false
		}
	}
	if !opts.IncludeHidden && d.IsHidden {
		return SearchResult{}, false
	}

	result := SearchResult{Path: d.Path}
	if opts.DetailedResults || opts.Target == TargetContent {
		meta := &Metadata{
			Size:         d.Size,
			ModifiedTime: d.ModifiedTime,
			IsDirectory:  d.IsDirectory,
			FileType:     d.FileType,
		}
		if opts.Target == TargetContent {
			maxLen := opts.MaxPreviewLength
			if maxLen <= 0 {
				maxLen = 200
			}
			meta.HighlightedContent = Highlight(d.Content, keywords, maxLen, opts.HighlightEnabled, opts.CaseSensitive)
		}
		result.Metadata = meta
	}
	return result, true
}

// SearchWithCallback runs q synchronously from the calling goroutine's
// perspective (it blocks until the search terminates), invoking cb
// once per result; cb returning true cancels the search.
func (e *Engine) SearchWithCallback(ctx context.Context, q SearchQuery, opts SearchOptions, cb func(SearchResult) bool) ([]SearchResult, error) {
	opts.StreamResults = true
	obs := &callbackObserver{cb: cb, ready: make(chan struct{})}
	job, err := e.SearchAsync(ctx, q, opts, obs)
	if err != nil {
		return nil, err
	}
	obs.job = job
	close(obs.ready)
	job.Wait()
	return obs.final, obs.err
}

type callbackObserver struct {
	cb      func(SearchResult) bool
	job     *Job
	ready   chan struct{}
	stopped bool
	final   []SearchResult
	err     error
}

func (o *callbackObserver) Started() {}
func (o *callbackObserver) ResultsFound(batch []SearchResult) {
	if o.stopped {
		return
	}
	for _, r := range batch {
		if o.cb(r) {
			o.stopped = true
			<-o.ready
			o.job.Cancel()
			return
		}
	}
}
func (o *callbackObserver) Finished(all []SearchResult) { o.final = all }
func (o *callbackObserver) Cancelled()                  {}
func (o *callbackObserver) Error(err error)              { o.err = err }

// SearchSync runs q and blocks until it finishes, is cancelled, or
// opts.SyncTimeoutSeconds elapses (0 means an immediate SearchTimeout,
// matching the boundary behavior of a zero deadline never being met).
func (e *Engine) SearchSync(ctx context.Context, q SearchQuery, opts SearchOptions) ([]SearchResult, error) {
	if opts.SyncTimeoutSeconds <= 0 {
		return nil, searcherr.New(searcherr.SearchTimeout, "sync_timeout_seconds is zero")
	}

	obs := &syncObserver{done: make(chan struct{})}
	job, err := e.SearchAsync(ctx, q, opts, obs)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(time.Duration(opts.SyncTimeoutSeconds) * time.Second)
	defer timer.Stop()

	select {
	case <-obs.done:
		return obs.final, obs.err
	case <-timer.C:
		job.Cancel()
		<-obs.done
		return nil, searcherr.New(searcherr.SearchTimeout, "sync search exceeded its deadline")
	}
}

type syncObserver struct {
	done  chan struct{}
	once  sync.Once
	final []SearchResult
	err   error
}

func (o *syncObserver) Started()                     {}
func (o *syncObserver) ResultsFound(_ []SearchResult) {}
func (o *syncObserver) Finished(all []SearchResult) {
	o.final = all
	o.once.Do(func() { close(o.done) })
}
func (o *syncObserver) Cancelled() {
	o.once.Do(func() { close(o.done) })
}
func (o *syncObserver) Error(err error) {
	o.err = err
	o.once.Do(func() { close(o.done) })
}
