package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/usestring/apirecord/pkg/recorder"
)

// Error codes for MCP tool responses.
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeInvalidObservation = "INVALID_OBSERVATION"
	ErrCodeCanceled           = "CANCELED"
	ErrCodeInternal           = "INTERNAL"
)

// CodedError is an error with an associated error code.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WrapRecorderError maps recorder errors to coded errors.
func WrapRecorderError(err error) error {
	if err == nil {
		return nil
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return err
	}

	switch {
	case errors.Is(err, recorder.ErrUnknownOperation):
		coded = &CodedError{Code: ErrCodeNotFound, Message: "operation has no observations", Cause: err}
	case errors.Is(err, recorder.ErrNoRoute):
		coded = &CodedError{Code: ErrCodeNotFound, Message: "no route matches the exchange", Cause: err}
	case errors.Is(err, recorder.ErrInvalidObservation):
		coded = &CodedError{Code: ErrCodeInvalidObservation, Message: "observation rejected", Cause: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		coded = &CodedError{Code: ErrCodeCanceled, Message: "request canceled", Cause: err}
	default:
		coded = &CodedError{Code: ErrCodeInternal, Message: err.Error(), Cause: err}
	}

	slog.Warn("recorder error",
		slog.String("code", coded.Code),
		slog.String("error", err.Error()),
	)
	return coded
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &CodedError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInvalidInput creates an invalid input error.
func ErrInvalidInput(message string) error {
	return &CodedError{
		Code:    ErrCodeInvalidInput,
		Message: message,
	}
}
