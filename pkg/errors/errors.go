package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable, machine-readable identifier carried in error envelopes.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Lifecycle rule violations raised while committing or reversing plant entries.
const (
	CodeInactivePlant                 Code = "INACTIVE_PLANT"
	CodePlantScheduledForDestruction  Code = "PLANT_SCHEDULED_FOR_DESTRUCTION"
	CodeInvalidHarvestPrecondition    Code = "INVALID_HARVEST_PRECONDITION"
	CodeInvalidCurePrecondition       Code = "INVALID_CURE_PRECONDITION"
	CodeInvalidConvertPrecondition    Code = "INVALID_CONVERT_PRECONDITION"
	CodePlantNotActive                Code = "PLANT_NOT_ACTIVE"
	CodeTransactionNoLongerReversible Code = "TRANSACTION_NO_LONGER_REVERSIBLE"
)

// Metadata controls how a code is rendered over HTTP.
type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
	// ExposeMessage lets the error's own message replace PublicMessage.
	ExposeMessage  bool
	DetailsAllowed bool
}

func callerError(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, ExposeMessage: true, DetailsAllowed: details}
}

func plantRule(public string) Metadata {
	return callerError(http.StatusUnprocessableEntity, public, true)
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    callerError(http.StatusBadRequest, "validation failed", true),
	CodeNotFound:      callerError(http.StatusNotFound, "resource not found", false),
	CodeConflict:      callerError(http.StatusConflict, "conflict detected", false),
	CodeStateConflict: callerError(http.StatusUnprocessableEntity, "state transition disallowed", true),
	CodeIdempotency:   callerError(http.StatusConflict, "idempotency key reused with different payload", false),
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},

	CodeInactivePlant:                 plantRule("plant is not active"),
	CodePlantScheduledForDestruction:  plantRule("plant is scheduled for destruction"),
	CodeInvalidHarvestPrecondition:    plantRule("plant cannot be harvested"),
	CodeInvalidCurePrecondition:       plantRule("plant cannot be cured"),
	CodeInvalidConvertPrecondition:    plantRule("plant cannot be converted"),
	CodePlantNotActive:                plantRule("plant is not active"),
	CodeTransactionNoLongerReversible: plantRule("transaction can no longer be canceled"),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error with an optional cause and caller-facing details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf formats the message like fmt.Sprintf. It does not wrap %w operands.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	e := New(code, message)
	e.cause = err
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails attaches details in place and returns the receiver for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsCode reports whether the outermost coded error in err's chain has code.
func IsCode(err error, code Code) bool {
	if typed := As(err); typed != nil {
		return typed.code == code
	}
	return false
}

// IsRetryable reports whether the caller may retry the operation unchanged.
// Uncoded errors count as internal and therefore retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if typed := As(err); typed != nil {
		return MetadataFor(typed.code).Retryable
	}
	return true
}

func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
