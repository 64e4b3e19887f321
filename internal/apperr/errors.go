// Package apperr defines the typed error kinds shared across the pipeline,
// the slide worker, and the HTTP surfaces so a single place maps failures to
// status codes and log severity.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide how to react without
// string-matching error messages.
type Kind string

const (
	// BadRequest is a malformed request body or a missing required field.
	BadRequest Kind = "bad_request"
	// NotFound is an unknown prompt id for an endpoint that requires prior state.
	NotFound Kind = "not_found"
	// CollaboratorUnavailable is a connect failure or 5xx from a dependency.
	CollaboratorUnavailable Kind = "collaborator_unavailable"
	// MalformedLLMOutput is a JSON parse failure after fence-stripping and brace-scan recovery.
	MalformedLLMOutput Kind = "malformed_llm_output"
	// FilesystemError is a workspace write failure.
	FilesystemError Kind = "filesystem_error"
	// ShuttingDown is a cooperative exit between tasks.
	ShuttingDown Kind = "shutting_down"
)

// Error wraps an underlying error with a Kind so callers can errors.As into
// it and branch on Kind, while errors.Unwrap still exposes the cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf builds an *Error of the given kind from a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to CollaboratorUnavailable for
// untyped errors since that is the most common failure mode at the
// collaborator boundary.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return CollaboratorUnavailable
}
