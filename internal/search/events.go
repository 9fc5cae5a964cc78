package search

import "time"

// EventObserver receives the coordinator's event stream. Dispatch is
// synchronous on whichever worker goroutine produced the event;
// implementations must be safe to call concurrently and must not block for
// long, since a slow observer stalls the worker that called it. Consumers
// that need a specific thread (e.g. a UI) must marshal internally.
//
// Observers must tolerate events arriving in any order across different
// DataSources, and must discard any previously accumulated MatchFound
// payloads when Reset is observed.
type EventObserver interface {
	ProgressChanged(done, total, failed, skipped int64)
	MatchFound(sourceID string, matches []Match)
	Error(sourceID string, cause error)
	Reset()
	Completed(elapsed time.Duration, final Counters, err error)
}

// Counters is an immutable snapshot of the four shared atomic counters at a
// point in time.
type Counters struct {
	Total   int64
	Done    int64
	Failed  int64
	Skipped int64
}

// noopObserver discards every event; used when a caller doesn't supply one
// so the coordinator never needs a nil check on its hot path.
type noopObserver struct{}

func (noopObserver) ProgressChanged(done, total, failed, skipped int64)         {}
func (noopObserver) MatchFound(sourceID string, matches []Match)               {}
func (noopObserver) Error(sourceID string, cause error)                        {}
func (noopObserver) Reset()                                                    {}
func (noopObserver) Completed(elapsed time.Duration, final Counters, err error) {}
