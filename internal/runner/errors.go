package runner

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for client-side failures.
const (
	// UnsupportedArgumentType indicates a host value that cannot be encoded.
	UnsupportedArgumentType = "UNSUPPORTED_ARGUMENT_TYPE"

	// UnsupportedResultType indicates a result variant that cannot be decoded.
	UnsupportedResultType = "UNSUPPORTED_RESULT_TYPE"

	// UnsupportedKeywordArguments indicates an invocation with keyword arguments.
	UnsupportedKeywordArguments = "UNSUPPORTED_KEYWORD_ARGUMENTS"
)

// MarshalingError reports a value that falls outside the supported
// argument or result subset.
type MarshalingError struct {
	Code string
	// Type names the offending Go type or value variant.
	Type string
}

func (e *MarshalingError) Error() string {
	switch e.Code {
	case UnsupportedResultType:
		return fmt.Sprintf("[%s] unsupported result variant %q", e.Code, e.Type)
	default:
		return fmt.Sprintf("[%s] unsupported argument type %s", e.Code, e.Type)
	}
}

// InvocationError reports an invocation rejected before reaching the
// executor.
type InvocationError struct {
	Code string
	Keys []string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("[%s] keyword arguments are not supported: %s", e.Code, strings.Join(e.Keys, ", "))
}

// IsMarshalingError reports whether err is or wraps a MarshalingError.
func IsMarshalingError(err error) bool {
	var me *MarshalingError
	return errors.As(err, &me)
}

// IsUnsupportedArgumentType reports whether err rejects an argument type.
func IsUnsupportedArgumentType(err error) bool {
	var me *MarshalingError
	return errors.As(err, &me) && me.Code == UnsupportedArgumentType
}

// IsUnsupportedResultType reports whether err rejects a result variant.
func IsUnsupportedResultType(err error) bool {
	var me *MarshalingError
	return errors.As(err, &me) && me.Code == UnsupportedResultType
}

// IsInvocationError reports whether err is or wraps an InvocationError.
func IsInvocationError(err error) bool {
	var ie *InvocationError
	return errors.As(err, &ie)
}
