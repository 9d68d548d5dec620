package input

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by a non-blocking source that has no data yet.
// Operations failing with it left the reader untouched and may be retried;
// the Context helpers do that automatically.
var ErrNotReady = errors.New("input: source not ready")

// ReadError wraps an error reported by the underlying source.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return "read: " + e.Err.Error()
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ExpectedError reports that the input in [Start, End) did not match what a
// parser expected there.
type ExpectedError struct {
	Start    int64
	End      int64
	Expected string
}

func (e *ExpectedError) Error() string {
	return fmt.Sprintf("%d-%d: expected %s", e.Start, e.End, e.Expected)
}

func wrapReadError(err error) error {
	if err == nil {
		return nil
	}
	var re *ReadError
	if errors.As(err, &re) {
		return err
	}
	return &ReadError{Err: err}
}
