package authoring

import (
	"errors"
	"fmt"

	"github.com/roach88/genc/internal/ir"
)

// ErrInvalidArgument is matched by every ConstructionError.
var ErrInvalidArgument = errors.New("invalid argument")

// ConstructionError reports a constructor argument that violates the
// structural rules of its node kind.
type ConstructionError struct {
	Kind    ir.Kind
	Field   string
	Message string
}

func (e *ConstructionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("create %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("create %s: %s %s", e.Kind, e.Field, e.Message)
}

// Is reports ErrInvalidArgument as a match.
func (e *ConstructionError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// IsConstructionError reports whether err is or wraps a ConstructionError.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}
