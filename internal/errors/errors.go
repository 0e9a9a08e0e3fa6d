package errors

import (
	stderrors "errors"

	"connectrpc.com/connect"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable message
	Metadata map[string]string // Additional context (ids, amounts)
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error carrying metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the domain code found in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeUnknown
}

// HasCode reports whether err carries the given domain code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// ToConnect converts err into a connect error with the mapped status code.
// Errors that are already connect errors pass through unchanged.
func ToConnect(err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if stderrors.As(err, &connectErr) {
		return connectErr
	}
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		ce := connect.NewError(domainErr.Code.ConnectCode(), err)
		ce.Meta().Set("X-Error-Code", string(domainErr.Code))
		return ce
	}
	return connect.NewError(connect.CodeInternal, err)
}
