package search

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// MaxFileSize is the limit on file size in bytes. Only files at or below
// this size are searched.
const MaxFileSize = 256 << 20

// prefixBufPool rents the 4096-byte binary-sniff buffers FileScanner uses,
// returned even on error, so per-file scratch buffers are reused rather
// than reallocated.
var prefixBufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, PrefixSize)
		return &b
	},
}

// scannerConfig is the per-worker, per-file configuration a FileScanner
// pass needs. pattern and classifier are worker-owned: constructed once
// when the worker is first scheduled a task and disposed when it exits.
type scannerConfig struct {
	pattern           *Pattern
	classifier        MIMEClassifier
	skipBinaryFiles   bool
	contextLines      int
	maxContextLength  int
	maxMatchesPerLine int
}

// scanKind distinguishes the outcomes of scanFile, cancellation included;
// exactly one of them applies to any given call.
type scanKind int

const (
	scanDone scanKind = iota
	scanSkippedBinary
	scanFailed
	scanCancelled
)

type scanResult struct {
	kind    scanKind
	matches []Match
	err     error
}

// scanFile runs the full per-file pipeline: open, size gate, binary sniff,
// rewind, line-windowed scan, match construction. It never
// panics on a per-file failure; every non-cancellation exit path is
// reported via scanResult.kind so the caller can update counters and emit
// events without re-deriving what happened.
func scanFile(ctx context.Context, ds DataSource, cfg scannerConfig) scanResult {
	if ctx.Err() != nil {
		return scanResult{kind: scanCancelled}
	}

	stream, size, err := ds.OpenRead()
	if err != nil {
		return scanResult{kind: scanFailed, err: errors.Wrap(err, "open")}
	}
	defer stream.Close()

	if size == 0 || size > MaxFileSize {
		// Size gating is silent: done increments (by the caller), but
		// neither skipped nor any event fires.
		return scanResult{kind: scanDone}
	}

	if ctx.Err() != nil {
		return scanResult{kind: scanCancelled}
	}

	prefixPtr := prefixBufPool.Get().(*[]byte)
	prefix := (*prefixPtr)[:0]
	defer prefixBufPool.Put(prefixPtr)

	n, err := readUpTo(stream, (*prefixPtr)[:cap(*prefixPtr)])
	if err != nil {
		return scanResult{kind: scanFailed, err: errors.Wrap(err, "read prefix")}
	}
	prefix = (*prefixPtr)[:n]

	if cfg.skipBinaryFiles && looksBinary(prefix, cfg.classifier) {
		return scanResult{kind: scanSkippedBinary}
	}

	if _, err := stream.Seek(0, 0); err != nil {
		return scanResult{kind: scanFailed, err: errors.Wrap(err, "rewind")}
	}

	matches, err := scanLines(ctx, stream, cfg)
	if err != nil {
		if err == context.Canceled {
			return scanResult{kind: scanCancelled}
		}
		return scanResult{kind: scanFailed, err: errors.Wrap(err, "scan")}
	}
	return scanResult{kind: scanDone, matches: matches}
}

// readUpTo fills buf as much as possible without treating a short read (or
// an empty file) as an error, the way a single io.ReadFull would.
func readUpTo(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			if total > 0 || err == io.EOF {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// scanLines initializes the sliding context window, primes it, then walks
// the file emitting one Match per regex hit in ascending line order.
func scanLines(ctx context.Context, stream interface {
	Read([]byte) (int, error)
}, cfg scannerConfig) ([]Match, error) {
	reader := newLineReader(stream)
	window := newRingBuffer(2*cfg.contextLines + 1)
	for i := 0; i < cfg.contextLines; i++ {
		window.pushBack(nil)
	}

	readLineCount := 0
	postMatchLineCount := 0
	for i := 0; i <= cfg.contextLines; i++ {
		if ctx.Err() != nil {
			return nil, context.Canceled
		}
		line, ok, err := reader.readLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			// The source ran out of lines before the window could be
			// fully primed. Pad the remaining slots with nil so every
			// position up to window.capacity() is populated; otherwise
			// the first buildMatch call below reads past window.size
			// and panics.
			for !window.isFull() {
				window.pushBack(nil)
			}
			break
		}
		readLineCount++
		l := line
		window.pushBack(&l)
		if i > 0 {
			postMatchLineCount++
		}
	}

	var matches []Match
	for window.get(cfg.contextLines) != nil {
		line := *window.get(cfg.contextLines)
		lineNumber := readLineCount - postMatchLineCount

		for _, m := range cfg.pattern.FindAllMatches(line, cfg.maxMatchesPerLine) {
			matches = append(matches, buildMatch(window, cfg.contextLines, lineNumber, line, m[0], m[1], cfg.maxContextLength))
		}

		if ctx.Err() != nil {
			return nil, context.Canceled
		}
		next, ok, err := reader.readLine()
		if err != nil {
			return nil, err
		}
		if ok {
			readLineCount++
			n := next
			window.pushBack(&n)
		} else {
			if postMatchLineCount > 0 {
				postMatchLineCount--
			}
			window.pushBack(nil)
		}
	}
	return matches, nil
}
