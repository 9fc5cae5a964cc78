// Package search is a concurrent recursive text search engine: given a
// compiled pattern and a lazy supply of DataSources, it scans each source in
// a worker pool, emits structured Match records with configurable
// surrounding context, reports progress continuously, and falls back from
// parallel to sequential scanning if the parallel pass hits an aggregate
// I/O failure.
//
// Directory traversal, glob matching, result presentation, and
// command-line parsing are not this package's job; DataSourceProducer is
// the seam where a caller plugs in its own file enumeration.
package search
