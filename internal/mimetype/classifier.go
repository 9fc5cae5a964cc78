// Package mimetype wraps github.com/h2non/filetype as the MIME classifier
// the search package's BinaryHeuristic falls back to once its NUL-run fast
// path is inconclusive.
package mimetype

import (
	"sync"
	"unicode/utf8"

	"github.com/h2non/filetype"
)

var warmupOnce sync.Once

// warmup forces filetype's internal matcher table to initialize. The
// library builds this table lazily from package-level state the first time
// a Match* function runs, which is not safe to race from multiple
// goroutines; callers serialize this call once, then every Classifier is
// used uncontended.
func warmup() {
	warmupOnce.Do(func() {
		_, _ = filetype.Match(nil)
	})
}

// Classifier maps a byte prefix to a MIME type string. It has no per-handle
// state of its own today — filetype.Match is pure once warmed up — but is
// still modeled as a worker-scoped resource with an explicit Close so a
// future classifier backed by a real stateful library (a loaded model, an
// open file-magic database) can be swapped in without changing the
// FileScanner/SearchCoordinator contract.
type Classifier struct{}

// NewClassifier constructs a worker-scoped classifier handle. Construction
// itself is the part that must be serialized process-wide; NewClassifier blocks on
// that shared initialization the first time it's called and is cheap on
// every subsequent call.
func NewClassifier() *Classifier {
	warmup()
	return &Classifier{}
}

// Classify returns a MIME type string for prefix, e.g. "image/png",
// "text/plain; charset=unknown" or "application/octet-stream". filetype is
// a magic-number signature matcher with no generic plain-text detector, so
// an ordinary source file has no signature to match and comes back
// filetype.Unknown just as often as a real binary with an unrecognized
// format does. An unrecognized prefix that passes looksLikeText (including
// an empty one) is reported as "text/plain; charset=unknown"; any other
// unrecognized prefix is "application/octet-stream". Treating every
// unrecognized prefix as application/octet-stream instead would make
// skip-binary mode silently drop ordinary text files.
func (c *Classifier) Classify(prefix []byte) string {
	kind, err := filetype.Match(prefix)
	if err != nil || kind == filetype.Unknown {
		if looksLikeText(prefix) {
			return "text/plain; charset=unknown"
		}
		return "application/octet-stream"
	}
	return kind.MIME.Value
}

// looksLikeText reports whether prefix decodes as valid UTF-8 containing no
// control bytes other than tab, line feed, and carriage return. It is the
// same kind of check gabriel-vasile/mimetype's text fallback performs
// before giving up and calling something binary.
func looksLikeText(prefix []byte) bool {
	if len(prefix) == 0 {
		return true
	}
	if !utf8.Valid(prefix) {
		return false
	}
	for _, b := range prefix {
		if b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		if b < 0x20 || b == 0x7f {
			return false
		}
	}
	return true
}

// Close releases the classifier's worker-scoped resources. A no-op today,
// kept so the worker lifecycle in SearchCoordinator has somewhere to call
// into deterministically on exit.
func (c *Classifier) Close() error { return nil }
