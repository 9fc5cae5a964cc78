package search

import "github.com/pkg/errors"

// ErrInvalidState is returned by Begin when a prior search is still running.
var ErrInvalidState = errors.New("search: a search is already running")

// argError is raised synchronously by constructor/method misuse. It
// deliberately doesn't implement net.Error or any retryable marker:
// callers are expected to fix their call site, not retry.
type argError struct{ msg string }

func (e *argError) Error() string { return "search: " + e.msg }

func newArgError(msg string) error { return &argError{msg: msg} }

// generalErrorIdentifier is the sourceId used for the Error event fired
// alongside a parallel-to-sequential fallback: the failure isn't
// attributable to one file, so it doesn't carry one.
const generalErrorIdentifier = "(general error)"
