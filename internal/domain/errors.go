package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures. Callers switch on the kind,
// never on message text.
type ErrorKind string

const (
	KindInvalidSelection ErrorKind = "invalid_selection"
	KindCatalog          ErrorKind = "catalog_error"
	KindFetchFailed      ErrorKind = "fetch_failed"
	KindMuxFailed        ErrorKind = "mux_failed"
	KindCutFailed        ErrorKind = "cut_failed"
	KindNotFound         ErrorKind = "not_found"
)

// Error is the typed failure returned by pipeline operations. Output
// carries captured transcoder diagnostics when the failure came from an
// external process.
type Error struct {
	Kind   ErrorKind
	Msg    string
	Err    error
	Output string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error with a formatted message and no cause.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error around a cause.
func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether err is a pipeline Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// DiagnosticOutput returns captured external-process output attached to
// err, if any.
func DiagnosticOutput(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Output
	}
	return ""
}
