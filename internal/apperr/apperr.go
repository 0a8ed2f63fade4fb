// Package apperr defines the closed set of failure kinds shared by the
// transport, the collector, the task orchestrator and the LLM client.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure. The set is closed; callers switch on it instead
// of inspecting concrete error types.
type Kind int

const (
	KindUnknown Kind = iota
	// KindPermission is a 401 from an API. Fatal for the whole run.
	KindPermission
	// KindHTTP is any other non-2xx response or a network failure (Status 0).
	KindHTTP
	KindTimeout
	// KindValidation is a response body that could not be decoded into the expected shape.
	KindValidation
	// KindCanceled means the process is being torn down. Never isolated.
	KindCanceled
	// KindTaskFailed is produced by the orchestrator for a task that returned an error or panicked.
	KindTaskFailed
)

func (k Kind) String() string {
	switch k {
	case KindPermission:
		return "permission denied"
	case KindHTTP:
		return "http error"
	case KindTimeout:
		return "timeout"
	case KindValidation:
		return "invalid response"
	case KindCanceled:
		return "canceled"
	case KindTaskFailed:
		return "task failed"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names what was being done, e.g. "GET repos/o/r/commits".
	Op string
	// Status is the HTTP status code when one was received.
	Status int
	Err    error
}

// New returns a classified error wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewHTTP returns a KindHTTP error, or KindPermission for a 401.
func NewHTTP(op string, status int, err error) *Error {
	kind := KindHTTP
	if status == 401 {
		kind = KindPermission
	}
	return &Error{Kind: kind, Op: op, Status: status, Err: err}
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost classified error in the chain.
// Unclassified context errors map to KindCanceled and KindTimeout.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}
	return KindUnknown
}

// Has reports whether any classified error in the chain has the given kind.
// A task failure caused by a 401 is both KindTaskFailed and KindPermission.
func Has(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return KindOf(err) == kind
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// IsFatal reports whether err must abort the whole run instead of being
// isolated to one task.
func IsFatal(err error) bool {
	return Has(err, KindPermission) || Has(err, KindCanceled)
}
