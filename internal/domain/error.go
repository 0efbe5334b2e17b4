package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Application error codes. Handlers map them to HTTP statuses.
const (
	ECONFLICT  = "conflict"        // 409: cart moved under the request, duplicate submit
	ECOUPON    = "coupon_rejected" // 422: coupon refused, for whatever reason
	EINTERNAL  = "internal"        // 500
	EINVALID   = "invalid"         // 400
	ENOTFOUND  = "not_found"       // 404
	ERATELIMIT = "rate_limit"      // 429
	ETOOLARGE  = "too_large"       // 413
)

const (
	internalMessage   = "An internal error occurred. Please try again later."
	validationMessage = "Please correct the highlighted fields."
)

// Error is an application error. Message is safe to show the shopper; Op and
// Err are for logs only.
type Error struct {
	Code    string
	Message string
	Op      string // e.g. "cart.add"
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the code of the outermost domain error in err's chain.
// Validation errors are EINVALID, anything else EINTERNAL, and nil "".
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if IsValidationError(err) {
		return EINVALID
	}
	return EINTERNAL
}

// ErrorMessage returns the shopper-facing message for err. Internal errors
// and unknown errors share one generic message.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}
	if e == nil && IsValidationError(err) {
		return validationMessage
	}
	return internalMessage
}

// ErrorOp returns the operation recorded on err, if any. Validation errors
// report their own Op.
func ErrorOp(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Op
	}
	return ""
}

// Errorf builds a domain error with a formatted message.
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a code and shopper message to err. nil stays nil.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

// Invalid is an EINVALID error for a single problem.
func Invalid(op, message string) error {
	return &Error{Code: EINVALID, Op: op, Message: message}
}

// Internal wraps cause as EINTERNAL. The shopper only ever sees the generic
// message.
func Internal(err error, op, message string) error {
	return &Error{Code: EINTERNAL, Op: op, Message: message, Err: err}
}

// ValidationError carries per-field problems with a request body, keyed by
// the JSON field name.
type ValidationError struct {
	Fields map[string]string
	Op     string
}

func (e *ValidationError) Error() string {
	prefix := ""
	if e.Op != "" {
		prefix = e.Op + ": "
	}
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			return prefix + field + ": " + msg
		}
	}
	return fmt.Sprintf("%svalidation failed for %d fields", prefix, len(e.Fields))
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(op, field, message string) error {
	return &ValidationError{Op: op, Fields: map[string]string{field: message}}
}

// AddFieldError adds a field problem to err when it is a ValidationError,
// otherwise it starts a new one.
func AddFieldError(err error, field, message string) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return &ValidationError{Fields: map[string]string{field: message}}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GetValidationFields returns the field problems in err, or nil.
func GetValidationFields(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
