package harness

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/genc/internal/engine"
	"github.com/roach88/genc/internal/executor"
	"github.com/roach88/genc/internal/ir"
	"github.com/roach88/genc/internal/runner"
	"github.com/roach88/genc/internal/testutil"
)

// tracer wraps an executor and appends every operation to a Result.
type tracer struct {
	inner  executor.Executor
	clock  *testutil.DeterministicClock
	result *Result

	mu       sync.Mutex
	caseName string
}

var _ executor.Executor = (*tracer)(nil)

func newTracer(inner executor.Executor, result *Result) *tracer {
	return &tracer{inner: inner, clock: testutil.NewDeterministicClock(), result: result}
}

func (t *tracer) setCase(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.caseName = name
}

func (t *tracer) record(e TraceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e.Case = t.caseName
	e.Seq = t.clock.Next()
	t.result.Trace = append(t.result.Trace, e)
}

func (t *tracer) CreateValue(ctx context.Context, v ir.Value) (executor.OwnedValueID, error) {
	ev := TraceEvent{Type: OpCreateValue, Value: describeValue(v)}
	h, err := t.inner.CreateValue(ctx, v)
	return t.finish(ev, h, err)
}

func (t *tracer) CreateStruct(ctx context.Context, elements []executor.ValueID) (executor.OwnedValueID, error) {
	ev := TraceEvent{Type: OpCreateStruct, Refs: refs(elements...)}
	h, err := t.inner.CreateStruct(ctx, elements)
	return t.finish(ev, h, err)
}

func (t *tracer) CreateCall(ctx context.Context, fn executor.ValueID, arg *executor.ValueID) (executor.OwnedValueID, error) {
	ev := TraceEvent{Type: OpCreateCall, Refs: refs(fn)}
	if arg != nil {
		ev.Refs = append(ev.Refs, string(*arg))
	}
	h, err := t.inner.CreateCall(ctx, fn, arg)
	return t.finish(ev, h, err)
}

func (t *tracer) Materialize(ctx context.Context, id executor.ValueID) (ir.Value, error) {
	ev := TraceEvent{Type: OpMaterialize, Refs: refs(id)}
	v, err := t.inner.Materialize(ctx, id)
	if err != nil {
		ev.Error = ErrorCode(err)
	} else {
		ev.Value = describeValue(v)
	}
	t.record(ev)
	return v, err
}

func (t *tracer) finish(ev TraceEvent, h executor.OwnedValueID, err error) (executor.OwnedValueID, error) {
	if err != nil {
		ev.Error = ErrorCode(err)
		t.record(ev)
		return executor.OwnedValueID{}, err
	}
	id := h.Ref()
	ev.Handle = string(id)
	t.record(ev)
	return executor.NewOwnedValueID(id, func() {
		h.Release()
		t.record(TraceEvent{Type: OpRelease, Handle: string(id)})
	}), nil
}

func refs(ids ...executor.ValueID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func describeValue(v ir.Value) string {
	if _, ok := v.(ir.Graph); ok {
		return "graph"
	}
	data, err := ir.MarshalValue(v)
	if err != nil {
		return "<unencodable>"
	}
	return string(data)
}

// ErrorCode returns the stable code of an engine or runner error, or the
// error text when it has none.
func ErrorCode(err error) string {
	if code, ok := engine.CodeOf(err); ok {
		return string(code)
	}
	var me *runner.MarshalingError
	if errors.As(err, &me) {
		return me.Code
	}
	var ie *runner.InvocationError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return err.Error()
}
