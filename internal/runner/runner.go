// Package runner is the execution client: it binds one graph to an
// executor and turns host arguments into a materialized result.
package runner

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/genc/internal/executor"
	"github.com/roach88/genc/internal/ir"
)

// Invocation holds the arguments of one call.
type Invocation struct {
	Positional []Arg
	Keyword    map[string]Arg
}

// Runner runs one uploaded graph against one executor.
//
// A Runner holds no per-invocation state. It is safe for concurrent use
// when its executor is.
type Runner struct {
	exec  executor.Executor
	graph executor.OwnedValueID
}

// New uploads graph to exec once and returns a Runner bound to it.
func New(ctx context.Context, graph ir.Node, exec executor.Executor) (*Runner, error) {
	if exec == nil {
		return nil, fmt.Errorf("runner: executor is nil")
	}
	v, err := ToValue(GraphArg{Node: graph})
	if err != nil {
		return nil, err
	}
	h, err := exec.CreateValue(ctx, v)
	if err != nil {
		return nil, err
	}
	return &Runner{exec: exec, graph: h}, nil
}

// Close releases the graph handle. The Runner must not be used afterwards.
func (r *Runner) Close() {
	r.graph.Release()
}

// GraphRef returns the executor handle of the uploaded graph.
func (r *Runner) GraphRef() executor.ValueID {
	return r.graph.Ref()
}

// Call invokes the graph with positional arguments only.
func (r *Runner) Call(ctx context.Context, args ...Arg) (Result, error) {
	return r.Invoke(ctx, Invocation{Positional: args})
}

// Invoke runs the graph synchronously. Executor errors are returned
// unmodified. Every handle created here is released before Invoke returns.
func (r *Runner) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	if len(inv.Keyword) > 0 {
		keys := make([]string, 0, len(inv.Keyword))
		for k := range inv.Keyword {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return Result{}, &InvocationError{Code: UnsupportedKeywordArguments, Keys: keys}
	}

	// Encode everything up front so an unsupported argument fails before
	// the executor sees any of the call.
	values := make([]ir.Value, len(inv.Positional))
	for i, a := range inv.Positional {
		v, err := ToValue(a)
		if err != nil {
			return Result{}, fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = v
	}

	var owned []executor.OwnedValueID
	defer func() {
		for i := len(owned) - 1; i >= 0; i-- {
			owned[i].Release()
		}
	}()

	var argRef *executor.ValueID
	switch len(values) {
	case 0:
	case 1:
		h, err := r.exec.CreateValue(ctx, values[0])
		if err != nil {
			return Result{}, err
		}
		owned = append(owned, h)
		ref := h.Ref()
		argRef = &ref
	default:
		refs := make([]executor.ValueID, 0, len(values))
		for _, v := range values {
			h, err := r.exec.CreateValue(ctx, v)
			if err != nil {
				return Result{}, err
			}
			owned = append(owned, h)
			refs = append(refs, h.Ref())
		}
		h, err := r.exec.CreateStruct(ctx, refs)
		if err != nil {
			return Result{}, err
		}
		owned = append(owned, h)
		ref := h.Ref()
		argRef = &ref
	}

	result, err := r.exec.CreateCall(ctx, r.graph.Ref(), argRef)
	if err != nil {
		return Result{}, err
	}
	owned = append(owned, result)

	v, err := r.exec.Materialize(ctx, result.Ref())
	if err != nil {
		return Result{}, err
	}
	return FromValue(v)
}
