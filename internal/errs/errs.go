// Package errs defines the error kinds surfaced by virtphp workflows.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide how to react to it.
type Kind string

const (
	InvalidName       Kind = "invalid_name"
	AlreadyExists     Kind = "already_exists"
	NotWritable       Kind = "not_writable"
	InvalidArgument   Kind = "invalid_argument"
	PhpNotFound       Kind = "php_not_found"
	InvalidPhpBinary  Kind = "invalid_php_binary"
	PearInstall       Kind = "pear_install"
	ComposerInstall   Kind = "composer_install"
	InvalidSource     Kind = "invalid_source"
	CloneFailed       Kind = "clone_failed"
	NotFound          Kind = "not_found"
	NotManaged        Kind = "not_managed"
	ActiveEnvironment Kind = "active_environment"
	InvalidPath       Kind = "invalid_path"
	RegistryIO        Kind = "registry_io"
	Canceled          Kind = "canceled"
)

// Error is a classified error with a user-facing message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind wrapping err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether any *Error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
