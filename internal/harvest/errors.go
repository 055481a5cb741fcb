package harvest

import (
	"errors"
	"fmt"
)

// Kind classifies an unrecoverable harvest failure so operators can tell an
// infrastructure fault from a source-layout change or an empty source.
type Kind string

const (
	// KindSessionSetup means the browser driver could not be started.
	KindSessionSetup Kind = "session_setup"
	// KindReviewsTabNotFound means the page never exposed the expected
	// reviews entry point.
	KindReviewsTabNotFound Kind = "reviews_tab_not_found"
	// KindNoRecords means the harvest ran to completion but yielded nothing.
	KindNoRecords Kind = "no_records"
	// KindUnclassified wraps anything else.
	KindUnclassified Kind = "unclassified"
)

// Error is the only error type Harvest returns.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("harvest: %s: %v", e.Msg, e.Err)
	}
	return "harvest: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Classify extracts the failure kind from an error chain. Errors that did
// not originate in the engine come back as unclassified.
func Classify(err error) Kind {
	var he *Error
	if errors.As(err, &he) {
		return he.Kind
	}
	return KindUnclassified
}
