package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/genc/internal/executor"
	"github.com/roach88/genc/internal/ir"
)

// Op is one recorded executor operation.
type Op struct {
	Name   string // create_value, create_struct, create_call, materialize, release
	Result executor.ValueID
	Value  ir.Value           // create_value input
	Refs   []executor.ValueID // create_struct elements; create_call fn and arg
	HasArg bool               // create_call only
}

// RecordingExecutor is a fake executor that records every operation.
//
// Calls are answered by CallFunc, which receives the materialized argument
// (nil when the call has none). Values created with CreateStruct are
// stored as ir.StructValue so CallFunc can inspect element order.
//
// Thread-safety: all methods are safe for concurrent use.
type RecordingExecutor struct {
	// CallFunc computes the result of CreateCall. The default returns the
	// argument unchanged.
	CallFunc func(graph ir.Value, arg ir.Value, hasArg bool) (ir.Value, error)

	// FailOn makes the named operation fail with the given error.
	FailOn map[string]error

	mu     sync.Mutex
	clock  *DeterministicClock
	values map[executor.ValueID]ir.Value
	ops    []Op
}

var _ executor.Executor = (*RecordingExecutor)(nil)

// NewRecordingExecutor creates an empty recording executor.
func NewRecordingExecutor() *RecordingExecutor {
	return &RecordingExecutor{
		clock:  NewDeterministicClock(),
		values: make(map[executor.ValueID]ir.Value),
		FailOn: make(map[string]error),
	}
}

func (r *RecordingExecutor) CreateValue(_ context.Context, v ir.Value) (executor.OwnedValueID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailOn["create_value"]; err != nil {
		r.ops = append(r.ops, Op{Name: "create_value", Value: v})
		return executor.OwnedValueID{}, err
	}
	id := r.putLocked(v)
	r.ops = append(r.ops, Op{Name: "create_value", Result: id, Value: v})
	return r.owned(id), nil
}

func (r *RecordingExecutor) CreateStruct(_ context.Context, elements []executor.ValueID) (executor.OwnedValueID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs := append([]executor.ValueID(nil), elements...)
	if err := r.FailOn["create_struct"]; err != nil {
		r.ops = append(r.ops, Op{Name: "create_struct", Refs: refs})
		return executor.OwnedValueID{}, err
	}
	sv := ir.StructValue{Elements: make([]ir.NamedValue, len(elements))}
	for i, id := range elements {
		v, ok := r.values[id]
		if !ok {
			return executor.OwnedValueID{}, fmt.Errorf("unknown handle %s", id)
		}
		sv.Elements[i] = ir.NamedValue{Value: v}
	}
	id := r.putLocked(sv)
	r.ops = append(r.ops, Op{Name: "create_struct", Result: id, Refs: refs})
	return r.owned(id), nil
}

func (r *RecordingExecutor) CreateCall(_ context.Context, fn executor.ValueID, arg *executor.ValueID) (executor.OwnedValueID, error) {
	r.mu.Lock()
	op := Op{Name: "create_call", Refs: []executor.ValueID{fn}, HasArg: arg != nil}
	if arg != nil {
		op.Refs = append(op.Refs, *arg)
	}
	if err := r.FailOn["create_call"]; err != nil {
		r.ops = append(r.ops, op)
		r.mu.Unlock()
		return executor.OwnedValueID{}, err
	}
	graph, ok := r.values[fn]
	if !ok {
		r.mu.Unlock()
		return executor.OwnedValueID{}, fmt.Errorf("unknown handle %s", fn)
	}
	var argVal ir.Value
	if arg != nil {
		if argVal, ok = r.values[*arg]; !ok {
			r.mu.Unlock()
			return executor.OwnedValueID{}, fmt.Errorf("unknown handle %s", *arg)
		}
	}
	callFn := r.CallFunc
	r.mu.Unlock()

	var out ir.Value = argVal
	if callFn != nil {
		var err error
		if out, err = callFn(graph, argVal, arg != nil); err != nil {
			r.mu.Lock()
			r.ops = append(r.ops, op)
			r.mu.Unlock()
			return executor.OwnedValueID{}, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.putLocked(out)
	op.Result = id
	r.ops = append(r.ops, op)
	return r.owned(id), nil
}

func (r *RecordingExecutor) Materialize(_ context.Context, id executor.ValueID) (ir.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, Op{Name: "materialize", Refs: []executor.ValueID{id}})
	if err := r.FailOn["materialize"]; err != nil {
		return nil, err
	}
	v, ok := r.values[id]
	if !ok {
		return nil, fmt.Errorf("unknown handle %s", id)
	}
	return v, nil
}

// Ops returns a copy of the recorded operations.
func (r *RecordingExecutor) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// OpNames returns the names of the recorded operations in order.
func (r *RecordingExecutor) OpNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.ops))
	for i, op := range r.ops {
		names[i] = op.Name
	}
	return names
}

// Live lists handles that have not been released.
func (r *RecordingExecutor) Live() []executor.ValueID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]executor.ValueID, 0, len(r.values))
	for id := range r.values {
		out = append(out, id)
	}
	return out
}

// Reset clears recorded operations and values and rewinds the clock.
func (r *RecordingExecutor) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
	r.values = make(map[executor.ValueID]ir.Value)
	r.clock.Reset()
}

func (r *RecordingExecutor) putLocked(v ir.Value) executor.ValueID {
	id := executor.ValueID(r.clock.Stamp("h"))
	r.values[id] = v
	return id
}

func (r *RecordingExecutor) owned(id executor.ValueID) executor.OwnedValueID {
	return executor.NewOwnedValueID(id, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.values, id)
		r.ops = append(r.ops, Op{Name: "release", Refs: []executor.ValueID{id}})
	})
}
