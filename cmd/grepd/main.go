// Command grepd is a thin CLI wrapper over internal/search: it walks a
// directory tree as the engine's DataSourceProducer and prints the event
// stream to stdout. File enumeration, result presentation, and flag
// parsing are deliberately minimal — this package exists only to exercise
// the library end-to-end, not to be a feature-complete grep frontend.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/sourcegraph/grepd/internal/search"
)

func main() {
	log.SetFlags(0)

	// Load an optional .grepdrc into the process environment the way
	// cmd/server/shared loads $CONFIG_DIR/env: best-effort, missing file is
	// not an error. No flag below reads the environment, so the loaded
	// values do not change flag defaults.
	if err := godotenv.Load(".grepdrc"); err != nil && !os.IsNotExist(err) {
		log.Printf("grepd: failed to load .grepdrc: %v", err)
	}

	var (
		ignoreCase  = flag.Bool("i", false, "case-insensitive match")
		wordMatch   = flag.Bool("w", false, "match whole words only")
		fixedString = flag.Bool("F", false, "treat pattern as a literal string, not a regexp")
		contextN    = flag.Int("C", 0, "lines of context around each match")
		maxContext  = flag.Int("max-context", search.DefaultMaxContextLength, "max length of a match's context string")
		skipBinary  = flag.Bool("skip-binary", true, "skip files that look binary")
		maxPerLine  = flag.Int("max-matches-per-line", 0, "cap on matches collected per line (0 = unlimited)")
	)
	flag.Parse()

	if flag.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: grepd [flags] <pattern> <path>")
		os.Exit(2)
	}
	expr, root := flag.Arg(0), flag.Arg(1)

	pattern, err := search.Compile(expr, search.PatternOptions{
		IsRegExp:        !*fixedString,
		IsWordMatch:     *wordMatch,
		IsCaseSensitive: !*ignoreCase,
	})
	if err != nil {
		log.Fatalf("grepd: bad pattern: %v", err)
	}

	coord, err := search.NewSearchCoordinator(pattern, walkProducer(root), &consoleObserver{}, search.Config{
		ContextLines:      *contextN,
		MaxContextLength:  *maxContext,
		SkipBinaryFiles:   *skipBinary,
		MaxMatchesPerLine: *maxPerLine,
	})
	if err != nil {
		log.Fatalf("grepd: %v", err)
	}

	if err := coord.Begin(); err != nil {
		log.Fatalf("grepd: %v", err)
	}
	coord.Wait()
}

// walkProducer turns a directory tree into a search.DataSourceProducer: a
// fresh filepath.WalkDir runs for every pass requested (counter pass,
// search pass, and the sequential retry pass after a fallback).
func walkProducer(root string) search.DataSourceProducer {
	return func(ctx context.Context) (<-chan search.DataSource, <-chan error) {
		out := make(chan search.DataSource)
		errCh := make(chan error, 1)
		go func() {
			defer close(out)
			defer close(errCh)
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					return nil
				}
				select {
				case out <- fileDataSource{path: path}:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil && err != context.Canceled {
				errCh <- err
			}
		}()
		return out, errCh
	}
}

type fileDataSource struct{ path string }

func (f fileDataSource) Identifier() string { return f.path }

func (f fileDataSource) OpenRead() (search.ReadAtSeekCloser, int64, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, err
	}
	return file, info.Size(), nil
}

// consoleObserver prints the event stream to stdout/stderr. It is not safe
// for concurrent use beyond what fmt.Print* itself guarantees: each
// fmt.Print* call is a single formatted write, but MatchFound issues one
// write per printed line, so lines from sources reported concurrently may
// interleave.
type consoleObserver struct{}

func (consoleObserver) ProgressChanged(done, total, failed, skipped int64) {
	fmt.Fprintf(os.Stderr, "\rsearched %d/%d (failed=%d skipped=%d)", done, total, failed, skipped)
}

func (consoleObserver) MatchFound(sourceID string, matches []search.Match) {
	for _, m := range matches {
		for _, pre := range m.PreContext {
			fmt.Printf("%s-%s\n", sourceID, pre)
		}
		fmt.Printf("%s:%d:%s\n", sourceID, m.LineNumber, m.Context)
		for _, post := range m.PostContext {
			fmt.Printf("%s-%s\n", sourceID, post)
		}
	}
}

func (consoleObserver) Error(sourceID string, cause error) {
	fmt.Fprintf(os.Stderr, "\ngrepd: %s: %v\n", sourceID, cause)
}

func (consoleObserver) Reset() {
	fmt.Fprintln(os.Stderr, "\ngrepd: parallel scan failed, restarting sequentially")
}

func (consoleObserver) Completed(elapsed time.Duration, final search.Counters, err error) {
	fmt.Fprintf(os.Stderr, "\ndone in %s: %d files (%d failed, %d skipped)\n", elapsed, final.Done, final.Failed, final.Skipped)
	if err != nil {
		fmt.Fprintf(os.Stderr, "grepd: %v\n", err)
		os.Exit(1)
	}
}
