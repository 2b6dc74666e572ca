package errors

import "fmt"

// FSError is an engine error that carries one of the fixed Codes plus
// optional human-readable context.
type FSError interface {
	error
	Code() Code
	WithMessage(message string) FSError
	WrapError(err error) FSError
}

// -----------------------------------------------------------------------------

type customError struct {
	code          Code
	message       string
	originalError error
}

// Error implements the `error` interface. It returns the attached message,
// falling back to the code's canonical description if none was given.
func (e customError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.code.Error()
}

// Code returns the underlying fixed error code.
func (e customError) Code() Code {
	return e.code
}

func (e customError) WithMessage(message string) FSError {
	return customError{
		code:          e.code,
		message:       fmt.Sprintf("%s: %s", e.Error(), message),
		originalError: e,
	}
}

func (e customError) WrapError(err error) FSError {
	return customError{
		code:          e.code,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: err,
	}
}

func (e customError) Unwrap() error {
	return e.originalError
}

// AsCode returns the FSError's underlying Code for a plain error, or false if
// err doesn't carry one. Engine callers use this to map a returned error to
// the caller contract's "negative code" without a type switch at every call
// site.
func AsCode(err error) (Code, bool) {
	if err == nil {
		return 0, false
	}
	if fserr, ok := err.(FSError); ok {
		return fserr.Code(), true
	}
	if code, ok := err.(Code); ok {
		return code, true
	}
	return 0, false
}
