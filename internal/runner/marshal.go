package runner

import (
	"fmt"

	"github.com/roach88/genc/internal/ir"
)

// Arg is a host argument the client knows how to encode.
// The implementations are GraphArg and StringArg.
type Arg interface {
	arg() // sealed
}

// GraphArg passes a computation graph.
type GraphArg struct {
	Node ir.Node
}

// StringArg passes a string verbatim.
type StringArg string

func (GraphArg) arg()  {}
func (StringArg) arg() {}

// Graph wraps n as an argument.
func Graph(n ir.Node) Arg { return GraphArg{Node: n} }

// String wraps s as an argument.
func String(s string) Arg { return StringArg(s) }

// ToValue encodes a as a value message.
func ToValue(a Arg) (ir.Value, error) {
	switch v := a.(type) {
	case GraphArg:
		if v.Node == nil {
			return nil, &MarshalingError{Code: UnsupportedArgumentType, Type: "nil graph"}
		}
		return ir.Graph{Node: v.Node}, nil
	case StringArg:
		return ir.Str(v), nil
	default:
		return nil, &MarshalingError{Code: UnsupportedArgumentType, Type: fmt.Sprintf("%T", a)}
	}
}

// ArgOf converts a dynamically typed host value into an Arg. Only graphs
// and strings are accepted; nothing is coerced.
func ArgOf(v any) (Arg, error) {
	switch x := v.(type) {
	case Arg:
		return x, nil
	case ir.Node:
		return GraphArg{Node: x}, nil
	case string:
		return StringArg(x), nil
	default:
		return nil, &MarshalingError{Code: UnsupportedArgumentType, Type: fmt.Sprintf("%T", v)}
	}
}

// Result is a decoded invocation result. Present is false when the
// executor returned the empty message.
type Result struct {
	Present bool
	Str     string
}

// String returns the result text, or "<none>" when absent.
func (r Result) String() string {
	if !r.Present {
		return "<none>"
	}
	return r.Str
}

// FromValue decodes a value message into a Result. Only the empty message
// and strings are supported.
func FromValue(v ir.Value) (Result, error) {
	switch x := v.(type) {
	case nil:
		return Result{}, nil
	case ir.Str:
		return Result{Present: true, Str: string(x)}, nil
	default:
		return Result{}, &MarshalingError{Code: UnsupportedResultType, Type: v.Variant()}
	}
}
