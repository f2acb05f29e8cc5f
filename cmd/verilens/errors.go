// cmd/verilens/errors.go
package main

import (
	"errors"
	"fmt"
)

// ErrorType categorizes failures by the stage that produced them.
type ErrorType string

const (
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeFactCheck  ErrorType = "factcheck"
	ErrorTypeImage      ErrorType = "image"
	ErrorTypeVision     ErrorType = "vision"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeVerdict    ErrorType = "verdict"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes
const (
	// Config error codes
	ErrConfigMissingKey = "CONFIG_001"
	ErrConfigInvalid    = "CONFIG_002"

	// Validation error codes
	ErrValidationEmptyText   = "VALIDATION_001"
	ErrValidationNotImage    = "VALIDATION_002"
	ErrValidationImageSize   = "VALIDATION_003"
	ErrValidationBadPayload  = "VALIDATION_004"

	// Fact-check error codes
	ErrFactCheckAuth      = "FACTCHECK_001"
	ErrFactCheckRateLimit = "FACTCHECK_002"
	ErrFactCheckNetwork   = "FACTCHECK_003"

	// Image / vision / parse / verdict error codes
	ErrImageRead     = "IMAGE_001"
	ErrVisionFailure = "VISION_001"
	ErrAnalysisParse = "PARSE_001"
	ErrNoEvidence    = "VERDICT_001"
)

// AppError is the application error type. Every failure that crosses a
// component boundary is wrapped in one so the server can map it to a status
// code and the logs carry the failing stage.
type AppError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Inner   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("[%s-%s] %s: %v", e.Type, e.Code, e.Message, e.Inner)
	}
	return fmt.Sprintf("[%s-%s] %s", e.Type, e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Inner
}

// NewError creates a new AppError.
func NewError(errType ErrorType, code string, message string, inner error) *AppError {
	return &AppError{
		Type:    errType,
		Code:    code,
		Message: message,
		Inner:   inner,
	}
}

// Common error constructors
func NewConfigError(code, message string, inner error) *AppError {
	return NewError(ErrorTypeConfig, code, message, inner)
}

func NewValidationError(code, message string) *AppError {
	return NewError(ErrorTypeValidation, code, message, nil)
}

func NewFactCheckError(code, message string, inner error) *AppError {
	return NewError(ErrorTypeFactCheck, code, message, inner)
}

func NewImageError(message string, inner error) *AppError {
	return NewError(ErrorTypeImage, ErrImageRead, message, inner)
}

func NewVisionError(message string, inner error) *AppError {
	return NewError(ErrorTypeVision, ErrVisionFailure, message, inner)
}

func NewParseError(message string) *AppError {
	return NewError(ErrorTypeParse, ErrAnalysisParse, message, nil)
}

func NewNoEvidenceError() *AppError {
	return NewError(ErrorTypeVerdict, ErrNoEvidence, "no fact-check evidence available for claim", nil)
}

// AsAppError extracts an *AppError from an error chain, wrapping foreign
// errors as internal.
func AsAppError(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return NewError(ErrorTypeInternal, "INTERNAL_001", err.Error(), err)
}

// IsErrorType reports whether err carries the given error type.
func IsErrorType(err error, t ErrorType) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Type == t
	}
	return false
}
