// Package errors holds the coded errors storyflow returns when a request
// cannot be served at all: an undecodable story file, an unknown output
// format, a preview blocked by a gate.
//
// Defects inside a well-formed story (broken links, orphans, cycles) are
// not errors. Package flow reports them as data.
//
//	err := errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
//	if errors.Is(err, errors.ErrCodeFileNotFound) { ... }
//
// The server turns the code into a status and the CLI prints [UserMessage].
package errors

import (
	"errors"
	"fmt"
)

// Code is the machine-readable half of an [Error]. It is what API clients
// switch on.
type Code string

const (
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidStory  Code = "INVALID_STORY"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// A simulated step hit a besitos or role gate.
	ErrCodeBlocked Code = "BLOCKED"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, format string, args ...any) *Error {
	return Wrap(code, nil, format, args...)
}

// Wrap attaches code and a message to cause. cause may be nil.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func find(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether the outermost [Error] in err's chain carries code.
func Is(err error, code Code) bool {
	e, ok := find(err)
	return ok && e.Code == code
}

// GetCode returns the code of the outermost [Error] in err's chain, or ""
// for uncoded errors.
func GetCode(err error) Code {
	if e, ok := find(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage strips the code prefix and cause for display. Uncoded errors
// are returned verbatim.
func UserMessage(err error) string {
	if e, ok := find(err); ok {
		return e.Message
	}
	return err.Error()
}
