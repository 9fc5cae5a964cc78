package search

// Match is an immutable record of one regex hit on one line of a
// DataSource. LineNumber is 1-based. Context is bounded by the
// coordinator's MaxContextLength. When the match span itself exceeds that
// bound, Context is the first MaxContextLength bytes of the match,
// MatchIndex is 0, and MatchLength still reports the full span.
type Match struct {
	LineNumber  int
	Context     string
	MatchIndex  int
	MatchLength int
	PreContext  []string
	PostContext []string
}
