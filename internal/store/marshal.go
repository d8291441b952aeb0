package store

import (
	"fmt"

	"github.com/roach88/genc/internal/ir"
)

// marshalArgs stores positional arguments as one canonical struct value.
func marshalArgs(args []ir.Value) (string, error) {
	data, err := ir.MarshalValue(ir.Positional(args...))
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

func unmarshalArgs(data string) ([]ir.Value, error) {
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	sv, ok := v.(ir.StructValue)
	if !ok {
		return nil, fmt.Errorf("unmarshal args: expected struct, got %q", v.Variant())
	}
	args := make([]ir.Value, len(sv.Elements))
	for i, el := range sv.Elements {
		args[i] = el.Value
	}
	return args, nil
}
