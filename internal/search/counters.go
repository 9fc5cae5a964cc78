package search

import "go.uber.org/atomic"

// liveCounters holds the four shared mutable counters: total, done, failed,
// skipped. All access is atomic; no lock is needed.
type liveCounters struct {
	total   atomic.Int64
	done    atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64
}

func (c *liveCounters) snapshot() Counters {
	return Counters{
		Total:   c.total.Load(),
		Done:    c.done.Load(),
		Failed:  c.failed.Load(),
		Skipped: c.skipped.Load(),
	}
}

// reset zeroes done/failed/skipped for the fallback path. total is left
// untouched: the counter task already sampled it and won't run again on
// the sequential retry.
func (c *liveCounters) reset() {
	c.done.Store(0)
	c.failed.Store(0)
	c.skipped.Store(0)
}
