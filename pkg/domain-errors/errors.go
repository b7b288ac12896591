package domainerrors

import "fmt"

// Code classifies a domain error so callers can map it to a per-item outcome or
// an HTTP status without string matching.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodePreconditionFailed Code = "precondition_failed"
	CodeConfigIntegrity    Code = "config_integrity"
	CodeConflict           Code = "conflict"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal_error"
)

// Error is a code-tagged domain error. Services construct these at decision
// points; stores wrap raw I/O errors with fmt.Errorf instead.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a cause while keeping the domain code visible to callers.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf extracts the domain code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if de, ok := err.(*Error); ok {
		return de.Code
	}
	return CodeInternal
}

// Is reports whether err is a domain error with the given code.
func Is(err error, code Code) bool {
	de, ok := err.(*Error)
	return ok && de.Code == code
}
