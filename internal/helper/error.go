package helper

import "errors"

const (
	MsgFetchFailed      = "Request to clinic backend failed"
	MsgValidationFailed = "Validation failed"
)

const (
	CodeFetch = iota + 1
	CodeValidation
)

// AppError is the subsystem's whole error taxonomy: fetch errors (any
// network/HTTP failure, always non-fatal) and validation errors (rejected
// locally, no network call made).
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewFetchError(message string, err error) *AppError {
	if message == "" {
		message = MsgFetchFailed
	}
	return &AppError{
		Code:    CodeFetch,
		Message: message,
		Err:     err,
	}
}

func NewValidationError(message string) *AppError {
	if message == "" {
		message = MsgValidationFailed
	}
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func IsFetchError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeFetch
}

func IsValidationError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeValidation
}
