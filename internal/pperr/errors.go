// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

// Package pperr defines the error taxonomy shared by the service manager
// and its collaborators. Every failure that crosses the control plane is
// classified with a Kind so the response envelope can label it and the
// CLI can pick an exit code.
package pperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for reporting purposes.
type Kind string

const (
	// KindConfiguration covers unparseable URLs, unsupported drivers and
	// invalid ports. Not retryable.
	KindConfiguration Kind = "configuration"

	// KindIO covers socket and filesystem failures.
	KindIO Kind = "io"

	// KindPluginLoad covers missing binaries, unresolved symbols and
	// failed installations.
	KindPluginLoad Kind = "plugin_load"

	// KindDatabase covers connect, migrate and query failures.
	KindDatabase Kind = "database"

	// KindAuthorization covers credential decode and lookup failures.
	KindAuthorization Kind = "authorization"

	// KindInternal covers everything else.
	KindInternal Kind = "internal"
)

// Error carries a Kind alongside the underlying cause.
type Error struct {
	kind Kind
	err  error
}

// New creates a classified error from a message.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, err: errors.New(msg)}
}

// Newf creates a classified error from a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error. A nil err yields nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, err: err}
}

// Wrapf classifies an existing error with additional context.
func Wrapf(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, err: fmt.Errorf(format+": %w", append(args, err)...)}
}

func (e *Error) Error() string { return e.err.Error() }

func (e *Error) Unwrap() error { return e.err }

// Kind returns the classification of e.
func (e *Error) Kind() Kind { return e.kind }

// KindOf extracts the Kind from err, walking the wrap chain.
// Unclassified errors report KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
