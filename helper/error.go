package helper

import (
	"errors"
	"strings"
)

// Error is an error with a trace of the operations it passed through.
type Error struct {
	Original error
	Trace    []string
}

// NewError wraps err with the given trace step.
// Wrapping an *Error again prepends the step to its trace.
func NewError(trace string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Original: e.Original,
			Trace:    append([]string{trace}, e.Trace...),
		}
	}

	return &Error{
		Original: err,
		Trace:    []string{trace},
	}
}

func (e *Error) Error() string {
	if len(e.Trace) == 0 {
		return e.Original.Error()
	}
	return strings.Join(e.Trace, ": ") + ": " + e.Original.Error()
}

func (e *Error) Unwrap() error {
	return e.Original
}
