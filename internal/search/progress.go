package search

import (
	"context"
	"time"
)

// progressTick is how often the progress reporter samples the shared
// counters.
const progressTick = 100 * time.Millisecond

// runProgressReporter samples counters every progressTick and fires
// ProgressChanged, exiting when ctx is cancelled or done is closed
// (whichever the search task signals first), and returns promptly once one
// does. A tick that is already pending when a signal arrives may still
// fire once, since select picks at random among ready cases.
func runProgressReporter(ctx context.Context, counters *liveCounters, observer EventObserver, done <-chan struct{}) {
	ticker := time.NewTicker(progressTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			c := counters.snapshot()
			observer.ProgressChanged(c.Done, c.Total, c.Failed, c.Skipped)
		}
	}
}
