package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/genc/internal/ir"
)

// RuntimeError is a failure raised while executing a graph.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Kind is the node kind being evaluated, if any.
	Kind ir.Kind

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidHandle indicates an unknown or released ValueID.
	ErrCodeInvalidHandle RuntimeErrorCode = "INVALID_HANDLE"

	// ErrCodeInvalidGraph indicates an uploaded graph that fails validation.
	ErrCodeInvalidGraph RuntimeErrorCode = "INVALID_GRAPH"

	// ErrCodeNotCallable indicates a call on something that is not a function.
	ErrCodeNotCallable RuntimeErrorCode = "NOT_CALLABLE"

	// ErrCodeNotMaterializable indicates a closure passed to Materialize.
	ErrCodeNotMaterializable RuntimeErrorCode = "NOT_MATERIALIZABLE"

	// ErrCodeTypeMismatch indicates an argument of the wrong value type.
	ErrCodeTypeMismatch RuntimeErrorCode = "TYPE_MISMATCH"

	// ErrCodeUnboundReference indicates a name with no enclosing binding.
	ErrCodeUnboundReference RuntimeErrorCode = "UNBOUND_REFERENCE"

	// ErrCodeSelection indicates a selection that matches no element.
	ErrCodeSelection RuntimeErrorCode = "SELECTION_FAILED"

	// ErrCodeUnknownModel indicates a model URI with no backend.
	ErrCodeUnknownModel RuntimeErrorCode = "UNKNOWN_MODEL"

	// ErrCodeUnknownFunction indicates a custom function URI with no binding.
	ErrCodeUnknownFunction RuntimeErrorCode = "UNKNOWN_FUNCTION"

	// ErrCodeInferenceFailed indicates a model backend error.
	ErrCodeInferenceFailed RuntimeErrorCode = "INFERENCE_FAILED"

	// ErrCodeFunctionFailed indicates a custom function error.
	ErrCodeFunctionFailed RuntimeErrorCode = "FUNCTION_FAILED"

	// ErrCodeQuotaExceeded indicates a call exceeded its loop iteration budget.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeAllCandidatesFailed indicates every fallback candidate failed.
	ErrCodeAllCandidatesFailed RuntimeErrorCode = "ALL_CANDIDATES_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Kind != "" {
		msg = fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func newError(code RuntimeErrorCode, kind ir.Kind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the outermost RuntimeError in err's chain.
func CodeOf(err error) (RuntimeErrorCode, bool) {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}

func hasCode(err error, code RuntimeErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsInvalidHandle reports whether err is an INVALID_HANDLE error.
func IsInvalidHandle(err error) bool { return hasCode(err, ErrCodeInvalidHandle) }

// IsNotCallable reports whether err is a NOT_CALLABLE error.
func IsNotCallable(err error) bool { return hasCode(err, ErrCodeNotCallable) }

// IsNotMaterializable reports whether err is a NOT_MATERIALIZABLE error.
func IsNotMaterializable(err error) bool { return hasCode(err, ErrCodeNotMaterializable) }

// IsTypeMismatch reports whether err is a TYPE_MISMATCH error.
func IsTypeMismatch(err error) bool { return hasCode(err, ErrCodeTypeMismatch) }

// IsQuotaError reports whether err is a QUOTA_EXCEEDED error.
func IsQuotaError(err error) bool { return hasCode(err, ErrCodeQuotaExceeded) }

// IsAllCandidatesFailed reports whether err is an ALL_CANDIDATES_FAILED error.
func IsAllCandidatesFailed(err error) bool { return hasCode(err, ErrCodeAllCandidatesFailed) }
