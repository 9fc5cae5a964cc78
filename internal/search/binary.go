package search

import "strings"

// PrefixSize is how much of a file's start is sniffed to decide whether it
// is likely binary.
const PrefixSize = 4096

// MIMEClassifier is the external capability BinaryHeuristic falls back on
// once the NUL-run heuristic is inconclusive. internal/mimetype.Classifier
// (backed by github.com/h2non/filetype) is the production implementation.
type MIMEClassifier interface {
	Classify(prefix []byte) string
	Close() error
}

// looksBinary classifies prefix using a two-step algorithm:
//  1. Count NUL bytes while scanning for two consecutive NULs.
//  2. If two consecutive NULs occurred AND the total NUL count exceeds 2,
//     it's binary.
//  3. Otherwise ask the MIME classifier; binary iff the MIME type doesn't
//     start with "text/".
//
// An empty prefix has zero NULs and falls through to the classifier, whose
// answer on empty input this function defers to verbatim.
func looksBinary(prefix []byte, classifier MIMEClassifier) bool {
	nulCount := 0
	sawConsecutive := false
	for i, b := range prefix {
		if b != 0 {
			continue
		}
		nulCount++
		if i > 0 && prefix[i-1] == 0 {
			sawConsecutive = true
		}
	}
	if sawConsecutive && nulCount > 2 {
		return true
	}

	mime := classifier.Classify(prefix)
	return !strings.HasPrefix(mime, "text/")
}
