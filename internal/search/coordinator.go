package search

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"

	"github.com/sourcegraph/grepd/internal/mimetype"
)

// DataSourceProducer produces one fresh pass over a lazy sequence of
// DataSources for the given context. It is invoked once per pass — once by
// the counter task, once (or twice, across a fallback) by the search task —
// so a producer backed by a non-idempotent walk (e.g. a directory tree
// that's mutating concurrently) may disagree between passes; Total is
// treated as a best-effort estimate for exactly this reason.
//
// The returned data channel is closed once the pass is exhausted. The
// returned error channel carries at most one terminal enumeration failure
// (the "parallel infrastructure" failing on the tree, e.g. a directory walk
// hitting an I/O error) and is then closed; it is distinct from per-file
// failures, which DataSource.OpenRead/Read report and FileScanner routes to
// the Error event instead.
type DataSourceProducer func(ctx context.Context) (<-chan DataSource, <-chan error)

// Config is the immutable configuration a SearchCoordinator is built from.
type Config struct {
	ContextLines      int
	MaxContextLength  int
	SkipBinaryFiles   bool
	MaxMatchesPerLine int // 0 = unlimited
}

// DefaultMaxContextLength is the default bound on a match's context string.
const DefaultMaxContextLength = 512

type state int32

const (
	stateIdle state = iota
	stateRunning
	stateCompleted
	stateCancelled
)

// SearchCoordinator drives a worker pool over a DataSourceProducer,
// reporting progress/match/error/completion events and falling back from
// parallel to sequential scanning if the parallel pass reports an aggregate
// I/O failure.
type SearchCoordinator struct {
	pattern  *Pattern
	producer DataSourceProducer
	cfg      Config
	observer EventObserver

	mu              sync.Mutex
	state           state
	cancel          context.CancelFunc
	cancelRequested bool
	wg              sync.WaitGroup
}

// NewSearchCoordinator validates its inputs and returns a coordinator ready
// for Begin. Violations return an argument error synchronously.
func NewSearchCoordinator(pattern *Pattern, producer DataSourceProducer, observer EventObserver, cfg Config) (*SearchCoordinator, error) {
	if pattern == nil {
		return nil, newArgError("pattern must not be nil")
	}
	if producer == nil {
		return nil, newArgError("producer must not be nil")
	}
	if cfg.ContextLines < 0 {
		return nil, newArgError("contextLineCount must be >= 0")
	}
	if cfg.MaxContextLength == 0 {
		cfg.MaxContextLength = DefaultMaxContextLength
	}
	if cfg.MaxContextLength < 0 {
		return nil, newArgError("maxContextLength must be > 0")
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &SearchCoordinator{pattern: pattern, producer: producer, observer: observer, cfg: cfg}, nil
}

// Begin starts the search: a counter task, a search task, and a progress
// task are launched and this call returns immediately. It fails with
// ErrInvalidState if a prior search is still running.
func (c *SearchCoordinator) Begin() error {
	c.mu.Lock()
	if c.state == stateRunning {
		c.mu.Unlock()
		return ErrInvalidState
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.cancelRequested = false
	c.state = stateRunning
	c.mu.Unlock()

	counters := &liveCounters{}
	searchDone := make(chan struct{})

	c.wg.Add(3)
	go func() {
		defer c.wg.Done()
		c.runCounterTask(ctx, counters)
	}()
	go func() {
		defer c.wg.Done()
		runProgressReporter(ctx, counters, c.observer, searchDone)
	}()
	go func() {
		defer c.wg.Done()
		defer close(searchDone)
		c.runSearchTask(ctx, counters)
	}()
	return nil
}

// Cancel requests cancellation and blocks until quiescence. It is
// idempotent: calling it again after the first no-op's.
func (c *SearchCoordinator) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	if cancel == nil {
		c.mu.Unlock()
		return
	}
	c.cancelRequested = true
	c.mu.Unlock()

	cancel()
	c.Wait()
}

// Wait blocks until the search and progress tasks (and the counter task)
// have terminated. After it returns, all task handles are cleared, so no
// resource tracked by the coordinator outlives Wait.
func (c *SearchCoordinator) Wait() {
	c.wg.Wait()
	c.mu.Lock()
	c.cancel = nil
	c.mu.Unlock()
}

func (c *SearchCoordinator) runCounterTask(ctx context.Context, counters *liveCounters) {
	defer func() { _ = recover() }() // exceptions swallowed here; total may remain 0

	ch, errCh := c.producer(ctx)
	var total int64
	for ch != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				ch = nil
				continue
			}
			total++
			counters.total.Store(total)
		case _, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			// Enumeration failed mid-count: total stays at whatever
			// was counted so far, treated as a best-effort estimate.
			return
		}
	}
}

func (c *SearchCoordinator) runSearchTask(ctx context.Context, counters *liveCounters) {
	start := time.Now()

	err := c.runSearch(ctx, counters, true)
	if mErr, ok := err.(*multierror.Error); ok && mErr.ErrorOrNil() != nil {
		counters.reset()
		c.observer.Reset()
		c.observer.Error(generalErrorIdentifier, errors.Wrap(mErr, "parallel scan failed; falling back to sequential scan"))
		err = c.runSearch(ctx, counters, false)
	}

	if err == context.Canceled {
		err = nil
	}
	c.finish(start, counters, err)
}

func (c *SearchCoordinator) finish(start time.Time, counters *liveCounters, err error) {
	c.mu.Lock()
	if c.cancelRequested {
		c.state = stateCancelled
	} else {
		c.state = stateCompleted
	}
	c.mu.Unlock()
	c.observer.Completed(time.Since(start), counters.snapshot(), err)
}

// runSearch executes one pass of the worker pool: degree workers (1 in
// fallback/sequential mode, otherwise GOMAXPROCS) pull DataSources from a
// fresh producer pass and run FileScanner over each, updating counters and
// firing MatchFound/Error events. It returns a *multierror.Error if the
// producer reported an aggregate enumeration failure, context.Canceled if
// the coordinator was cancelled, or nil on success.
func (c *SearchCoordinator) runSearch(outerCtx context.Context, counters *liveCounters, parallel bool) (retErr error) {
	span, ctx := opentracing.StartSpanFromContext(outerCtx, "SearchCoordinator.runSearch")
	ext.Component.Set(span, "search")
	span.SetTag("parallel", parallel)
	defer func() {
		if retErr != nil {
			ext.Error.Set(span, true)
			span.SetTag("err", retErr.Error())
		}
		span.Finish()
	}()

	ctx, cancelLocal := context.WithCancel(ctx)
	defer cancelLocal()

	sources, errCh := c.producer(ctx)

	degree := 1
	if parallel {
		degree = runtime.GOMAXPROCS(0)
		if degree < 1 {
			degree = 1
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < degree; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.runWorker(ctx, sources, counters)
		}()
	}

	var aggOnce sync.Once
	var errs *multierror.Error
	errDone := make(chan struct{})
	go func() {
		defer close(errDone)
		for e := range errCh {
			errs = multierror.Append(errs, e)
			aggOnce.Do(cancelLocal)
		}
	}()

	wg.Wait()
	<-errDone

	if errs.ErrorOrNil() != nil {
		return errs
	}
	if outerCtx.Err() != nil {
		return context.Canceled
	}
	return nil
}

// runWorker constructs its thread-local regex clone and MIME classifier on
// first use, reuses them across every DataSource it is assigned, and
// disposes the classifier on exit.
func (c *SearchCoordinator) runWorker(ctx context.Context, sources <-chan DataSource, counters *liveCounters) {
	var cfg scannerConfig

	for ds := range sources {
		if cfg.pattern == nil {
			classifier := mimetype.NewClassifier()
			defer classifier.Close()

			cfg = scannerConfig{
				pattern:           c.pattern.Clone(),
				classifier:        classifier,
				skipBinaryFiles:   c.cfg.SkipBinaryFiles,
				contextLines:      c.cfg.ContextLines,
				maxContextLength:  c.cfg.MaxContextLength,
				maxMatchesPerLine: c.cfg.MaxMatchesPerLine,
			}
		}
		res := scanFile(ctx, ds, cfg)
		switch res.kind {
		case scanCancelled:
			// Silent: no counters, no events.
		case scanDone:
			counters.done.Inc()
			if len(res.matches) > 0 {
				c.observer.MatchFound(ds.Identifier(), res.matches)
			}
		case scanSkippedBinary:
			counters.skipped.Inc()
			counters.done.Inc()
		case scanFailed:
			counters.failed.Inc()
			counters.done.Inc()
			c.observer.Error(ds.Identifier(), res.err)
		}
	}
}
