package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genc/internal/authoring"
	"github.com/roach88/genc/internal/engine"
	"github.com/roach88/genc/internal/executor"
	"github.com/roach88/genc/internal/ir"
	"github.com/roach88/genc/internal/models"
	"github.com/roach88/genc/internal/runner"
	"github.com/roach88/genc/internal/testutil"
)

func newRecorded(t *testing.T) (*runner.Runner, *testutil.RecordingExecutor) {
	t.Helper()
	rec := testutil.NewRecordingExecutor()
	r, err := runner.New(context.Background(), ir.Logger{}, rec)
	require.NoError(t, err)
	return r, rec
}

func TestNewUploadsGraphOnce(t *testing.T) {
	r, rec := newRecorded(t)
	assert.Equal(t, []string{"create_value"}, rec.OpNames())
	assert.Equal(t, ir.Graph{Node: ir.Logger{}}, rec.Ops()[0].Value)
	assert.Equal(t, executor.ValueID("h1"), r.GraphRef())

	for range 3 {
		_, err := r.Call(context.Background(), runner.String("x"))
		require.NoError(t, err)
	}
	graphUploads := 0
	for _, op := range rec.Ops() {
		if op.Name == "create_value" {
			if _, ok := op.Value.(ir.Graph); ok {
				graphUploads++
			}
		}
	}
	assert.Equal(t, 1, graphUploads)

	r.Close()
	assert.Empty(t, rec.Live())
}

func TestNewRejectsNilExecutorAndGraph(t *testing.T) {
	_, err := runner.New(context.Background(), ir.Logger{}, nil)
	assert.Error(t, err)

	_, err = runner.New(context.Background(), nil, testutil.NewRecordingExecutor())
	assert.True(t, runner.IsUnsupportedArgumentType(err))
}

func TestInvokeNoArgs(t *testing.T) {
	r, rec := newRecorded(t)
	rec.CallFunc = func(_, arg ir.Value, hasArg bool) (ir.Value, error) {
		assert.False(t, hasArg)
		assert.Nil(t, arg)
		return ir.Str("done"), nil
	}

	res, err := r.Call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runner.Result{Present: true, Str: "done"}, res)
	assert.Equal(t, []string{"create_value", "create_call", "materialize", "release"}, rec.OpNames())
	assert.Equal(t, []executor.ValueID{"h1"}, rec.Live())
}

func TestInvokeOneArg(t *testing.T) {
	r, rec := newRecorded(t)
	res, err := r.Call(context.Background(), runner.String("Boo!"))
	require.NoError(t, err)
	assert.Equal(t, "Boo!", res.String())

	ops := rec.Ops()
	require.Len(t, ops, 6)
	assert.Equal(t, ir.Str("Boo!"), ops[1].Value)
	call := ops[2]
	assert.Equal(t, "create_call", call.Name)
	assert.True(t, call.HasArg)
	assert.Equal(t, []executor.ValueID{"h1", "h2"}, call.Refs)

	// Released in reverse order of creation.
	assert.Equal(t, "release", ops[4].Name)
	assert.Equal(t, []executor.ValueID{"h3"}, ops[4].Refs)
	assert.Equal(t, []executor.ValueID{"h2"}, ops[5].Refs)
	assert.Equal(t, []executor.ValueID{"h1"}, rec.Live())
}

func TestInvokeManyArgsBuildsStructInOrder(t *testing.T) {
	r, rec := newRecorded(t)
	var seen ir.Value
	rec.CallFunc = func(_, arg ir.Value, _ bool) (ir.Value, error) {
		seen = arg
		return ir.Str("ok"), nil
	}

	_, err := r.Call(context.Background(), runner.String("a"), runner.Graph(ir.LogicalNot{}), runner.String("c"))
	require.NoError(t, err)
	assert.Equal(t, ir.Positional(ir.Str("a"), ir.Graph{Node: ir.LogicalNot{}}, ir.Str("c")), seen)
	assert.Equal(t, []string{
		"create_value",
		"create_value", "create_value", "create_value",
		"create_struct", "create_call", "materialize",
		"release", "release", "release", "release", "release",
	}, rec.OpNames())
	assert.Equal(t, []executor.ValueID{"h1"}, rec.Live())
}

func TestInvokeRejectsKeywordArguments(t *testing.T) {
	r, rec := newRecorded(t)
	_, err := r.Invoke(context.Background(), runner.Invocation{
		Positional: []runner.Arg{runner.String("x")},
		Keyword:    map[string]runner.Arg{"zeta": runner.String("z"), "alpha": runner.String("a")},
	})
	require.Error(t, err)
	var ie *runner.InvocationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, runner.UnsupportedKeywordArguments, ie.Code)
	assert.Equal(t, []string{"alpha", "zeta"}, ie.Keys)
	assert.Equal(t, []string{"create_value"}, rec.OpNames())
}

type badArg struct{ runner.StringArg }

func TestInvokeRejectsUnsupportedArgumentBeforeExecutor(t *testing.T) {
	r, rec := newRecorded(t)
	_, err := r.Call(context.Background(), runner.String("fine"), runner.Graph(nil))
	require.Error(t, err)
	assert.True(t, runner.IsUnsupportedArgumentType(err))
	assert.Contains(t, err.Error(), "argument 1")
	assert.Equal(t, []string{"create_value"}, rec.OpNames())

	_, err = r.Call(context.Background(), badArg{})
	assert.True(t, runner.IsUnsupportedArgumentType(err))
}

func TestInvokeRejectsUnsupportedResult(t *testing.T) {
	r, rec := newRecorded(t)
	rec.CallFunc = func(_, _ ir.Value, _ bool) (ir.Value, error) { return ir.Int(3), nil }
	_, err := r.Call(context.Background())
	require.Error(t, err)
	assert.True(t, runner.IsUnsupportedResultType(err))
	assert.Contains(t, err.Error(), `"int_32"`)
	assert.Equal(t, []executor.ValueID{"h1"}, rec.Live())
}

func TestInvokeEmptyResult(t *testing.T) {
	r, rec := newRecorded(t)
	rec.CallFunc = func(_, _ ir.Value, _ bool) (ir.Value, error) { return nil, nil }
	res, err := r.Call(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Present)
	assert.Equal(t, "<none>", res.String())
}

func TestExecutorErrorsPassThroughAndHandlesAreReleased(t *testing.T) {
	sentinel := errors.New("executor exploded")
	for _, op := range []string{"create_value", "create_struct", "create_call", "materialize"} {
		t.Run(op, func(t *testing.T) {
			r, rec := newRecorded(t)
			rec.FailOn[op] = sentinel
			_, err := r.Call(context.Background(), runner.String("a"), runner.String("b"))
			assert.Same(t, sentinel, err)
			assert.Equal(t, []executor.ValueID{"h1"}, rec.Live())
		})
	}
}

func TestArgOf(t *testing.T) {
	a, err := runner.ArgOf("text")
	require.NoError(t, err)
	assert.Equal(t, runner.StringArg("text"), a)

	a, err = runner.ArgOf(ir.Logger{})
	require.NoError(t, err)
	assert.Equal(t, runner.GraphArg{Node: ir.Logger{}}, a)

	a, err = runner.ArgOf(runner.String("same"))
	require.NoError(t, err)
	assert.Equal(t, runner.StringArg("same"), a)

	for _, v := range []any{42, true, 1.5, []string{"x"}, nil} {
		_, err := runner.ArgOf(v)
		assert.True(t, runner.IsUnsupportedArgumentType(err), "%v", v)
	}
}

func TestFromValue(t *testing.T) {
	res, err := runner.FromValue(ir.Str("x"))
	require.NoError(t, err)
	assert.Equal(t, runner.Result{Present: true, Str: "x"}, res)

	res, err = runner.FromValue(nil)
	require.NoError(t, err)
	assert.False(t, res.Present)

	for _, v := range []ir.Value{ir.Bool(true), ir.Int(1), ir.Positional(), ir.Graph{Node: ir.Logger{}}} {
		_, err := runner.FromValue(v)
		assert.True(t, runner.IsUnsupportedResultType(err), "%v", v)
	}
}

func TestRunnerWithEngine(t *testing.T) {
	ctx := context.Background()
	logger, _ := testutil.NewCaptureLogger()
	e := engine.New(engine.WithLogger(logger))

	r, err := runner.New(ctx, authoring.Must(authoring.CreateModel(models.TestModelURI)), e)
	require.NoError(t, err)
	res, err := r.Call(ctx, runner.String("Boo!"))
	require.NoError(t, err)
	assert.Equal(t, `This is an output from a test model in response to "Boo!".`, res.Str)
	r.Close()

	tpl := authoring.Must(authoring.CreatePromptTemplate("{subject} meets {object}"))
	r, err = runner.New(ctx, tpl, e)
	require.NoError(t, err)
	defer r.Close()
	res, err = r.Call(ctx, runner.String("cat"), runner.String("dog"))
	require.NoError(t, err)
	assert.Equal(t, "cat meets dog", res.Str)

	_, err = r.Call(ctx, runner.String("only"), runner.String("two"), runner.String("three"))
	require.NoError(t, err)

	assert.Equal(t, 1, e.Live())
}

func TestRunnerWithEngineErrorIsUnmodified(t *testing.T) {
	ctx := context.Background()
	logger, _ := testutil.NewCaptureLogger()
	e := engine.New(engine.WithLogger(logger))

	r, err := runner.New(ctx, ir.Model{URI: "unregistered"}, e)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Call(ctx, runner.String("hello"))
	var re *engine.RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, engine.ErrCodeUnknownModel, re.Code)
	assert.Equal(t, 1, e.Live())
}

func TestRunnerGraphUploadFailure(t *testing.T) {
	logger, _ := testutil.NewCaptureLogger()
	e := engine.New(engine.WithLogger(logger))
	_, err := runner.New(context.Background(), ir.Reference{Name: "x"}, e)
	code, ok := engine.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, engine.ErrCodeInvalidGraph, code)
	assert.Equal(t, 0, e.Live())
}
