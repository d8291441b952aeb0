package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/genc/internal/ir"
)

// value is an engine-side value: nil for the empty value, ir.Str, ir.Bool,
// ir.Int, tuple, or *closure.
type value any

type field struct {
	name string
	v    value
}

// tuple is an ordered struct value whose elements may be closures.
type tuple []field

// closure is a callable value.
type closure struct {
	kind ir.Kind
	call func(ctx context.Context, r *run, arg value) (value, error)
}

// load converts a value message into an engine value. Graphs become
// closures.
func (e *Engine) load(v ir.Value) (value, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case ir.Graph:
		if err := ir.Validate(x.Node); err != nil {
			return nil, &RuntimeError{Code: ErrCodeInvalidGraph, Message: "graph failed validation", Err: err}
		}
		return graphClosure(x.Node), nil
	case ir.Str, ir.Bool, ir.Int:
		return x, nil
	case ir.StructValue:
		t := make(tuple, len(x.Elements))
		for i, el := range x.Elements {
			ev, err := e.load(el.Value)
			if err != nil {
				return nil, err
			}
			t[i] = field{name: el.Name, v: ev}
		}
		return t, nil
	default:
		return nil, newError(ErrCodeTypeMismatch, "", "unsupported value variant %q", v.Variant())
	}
}

// export converts an engine value into a value message. Closures cannot be
// exported.
func export(v value) (ir.Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case ir.Str, ir.Bool, ir.Int:
		return x.(ir.Value), nil
	case tuple:
		out := ir.StructValue{Elements: make([]ir.NamedValue, len(x))}
		for i, f := range x {
			ev, err := export(f.v)
			if err != nil {
				return nil, err
			}
			out.Elements[i] = ir.NamedValue{Name: f.name, Value: ev}
		}
		return out, nil
	case *closure:
		return nil, newError(ErrCodeNotMaterializable, x.kind, "cannot materialize a function")
	default:
		return nil, fmt.Errorf("unexpected engine value %T", v)
	}
}

// render formats v for logs and prompt placeholders.
func render(v value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case ir.Str:
		return string(x)
	case ir.Bool:
		return strconv.FormatBool(bool(x))
	case ir.Int:
		return strconv.Itoa(int(x))
	case *closure:
		return "<" + string(x.kind) + ">"
	case tuple:
		if iv, err := export(x); err == nil {
			if data, err := ir.MarshalValue(iv); err == nil {
				return string(data)
			}
		}
		return fmt.Sprintf("<struct of %d>", len(x))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func describe(v value) string {
	switch v.(type) {
	case nil:
		return "empty"
	case ir.Str:
		return "str"
	case ir.Bool:
		return "bool"
	case ir.Int:
		return "int_32"
	case tuple:
		return "struct"
	case *closure:
		return "function"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func asString(kind ir.Kind, v value) (string, error) {
	s, ok := v.(ir.Str)
	if !ok {
		return "", newError(ErrCodeTypeMismatch, kind, "expected str argument, got %s", describe(v))
	}
	return string(s), nil
}

func asBool(kind ir.Kind, v value) (bool, error) {
	b, ok := v.(ir.Bool)
	if !ok {
		return false, newError(ErrCodeTypeMismatch, kind, "expected bool, got %s", describe(v))
	}
	return bool(b), nil
}
