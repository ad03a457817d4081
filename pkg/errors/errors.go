package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code classifies a billing error for callers and the HTTP layer.
type Code string

const (
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeDuplicateKey        Code = "DUPLICATE_KEY"
	CodeMisconfiguredTariff Code = "MISCONFIGURED_TARIFF"
	CodePersistenceFailure  Code = "PERSISTENCE_FAILURE"
)

var httpStatusByCode = map[Code]int{
	CodeInvalidInput:        http.StatusBadRequest,
	CodeNotFound:            http.StatusNotFound,
	CodeDuplicateKey:        http.StatusConflict,
	CodeMisconfiguredTariff: http.StatusUnprocessableEntity,
	CodePersistenceFailure:  http.StatusInternalServerError,
}

// HTTPStatus maps a code to the response status the API layer should use.
func HTTPStatus(code Code) int {
	if s, ok := httpStatusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error carries a code, a human-readable message and an optional cause.
type Error struct {
	code    Code
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Code() Code { return e.code }

// New builds an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that annotates an underlying cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...), cause: cause}
}

// As extracts an *Error from err's chain, or nil.
func As(err error) *Error {
	var e *Error
	if stdErrors.As(err, &e) {
		return e
	}
	return nil
}

// CodeOf returns the code attached to err, or empty when err carries none.
func CodeOf(err error) Code {
	if e := As(err); e != nil {
		return e.code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
