package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/genc/internal/compiler"
	"github.com/roach88/genc/internal/engine"
	"github.com/roach88/genc/internal/ir"
	"github.com/roach88/genc/internal/models"
	"github.com/roach88/genc/internal/runner"
	"github.com/roach88/genc/internal/scripts"
	"github.com/roach88/genc/internal/store"
	"github.com/roach88/genc/internal/testutil"
)

// Harness holds what assertions inspect once the cases have run.
type Harness struct {
	store     *store.Store
	engine    *engine.Engine
	logs      *testutil.LogBuffer
	graphHash string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh engine and in-memory database for
// isolation. An error is returned only when the scenario cannot be set
// up; failed expectations are reported in the Result.
//
// Execution flow:
//  1. Load the graph and record it in the store
//  2. Build the engine with stub models and scripts
//  3. Upload the graph once and invoke every case through a Runner
//  4. Record each case as a run, then evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	graph, err := compiler.Load(scenario.Graph)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}

	ids := make([]string, len(scenario.Cases))
	for i, c := range scenario.Cases {
		ids[i] = "run-" + c.Name
	}
	st, err := store.Open(":memory:", store.WithIDGenerator(store.NewFixedGenerator(ids...)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	hash, err := st.WriteGraph(ctx, graph)
	if err != nil {
		return nil, err
	}

	eng, logs, err := newEngine(scenario)
	if err != nil {
		return nil, err
	}

	h := &Harness{store: st, engine: eng, logs: logs, graphHash: hash}
	result := NewResult()
	tr := newTracer(eng, result)

	tr.setCase("setup")
	r, err := runner.New(ctx, graph, tr)
	if err != nil {
		return nil, fmt.Errorf("upload graph: %w", err)
	}
	for _, c := range scenario.Cases {
		tr.setCase(c.Name)
		cr, err := h.runCase(ctx, r, c)
		if err != nil {
			r.Close()
			return nil, err
		}
		result.Cases = append(result.Cases, cr)
		checkExpect(c, cr, result)
	}
	tr.setCase("teardown")
	r.Close()

	for _, a := range scenario.Assertions {
		if err := h.checkAssertion(ctx, a, result); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

func newEngine(s *Scenario) (*engine.Engine, *testutil.LogBuffer, error) {
	logger, logs := testutil.NewCaptureLogger()

	reg := models.NewRegistry()
	for uri, reply := range s.Models {
		reg.Register(uri, stubModel(reply))
	}

	fns := engine.NewFunctions()
	if _, err := scripts.Register(fns, s.Scripts); err != nil {
		return nil, nil, err
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithModels(reg),
		engine.WithFunctions(fns),
	}
	if s.MaxIterations > 0 {
		opts = append(opts, engine.WithMaxIterations(s.MaxIterations))
	}
	return engine.New(opts...), logs, nil
}

func stubModel(reply string) models.InferenceFunc {
	return func(_ context.Context, prompt string) (string, error) {
		return strings.ReplaceAll(reply, "{prompt}", prompt), nil
	}
}

// runCase invokes one case and records it as a run.
func (h *Harness) runCase(ctx context.Context, r *runner.Runner, c Case) (CaseResult, error) {
	inv := runner.Invocation{}
	args := make([]ir.Value, 0, len(c.Args))
	for _, a := range c.Args {
		arg, err := runner.ArgOf(a)
		if err != nil {
			return CaseResult{}, fmt.Errorf("case %s: %w", c.Name, err)
		}
		inv.Positional = append(inv.Positional, arg)
		args = append(args, ir.Str(a))
	}
	if len(c.Keywords) > 0 {
		inv.Keyword = make(map[string]runner.Arg, len(c.Keywords))
		for k, v := range c.Keywords {
			arg, err := runner.ArgOf(v)
			if err != nil {
				return CaseResult{}, fmt.Errorf("case %s: keyword %s: %w", c.Name, k, err)
			}
			inv.Keyword[k] = arg
		}
	}

	cr := CaseResult{Name: c.Name}
	run := store.Run{GraphHash: h.graphHash, Args: args}
	res, err := r.Invoke(ctx, inv)
	switch {
	case err != nil:
		cr.Error = ErrorCode(err)
		run.Error = err.Error()
	case res.Present:
		out := res.Str
		cr.Output = &out
		run.Result = &out
	}

	run, err = h.store.WriteRun(ctx, run)
	if err != nil {
		return CaseResult{}, fmt.Errorf("case %s: %w", c.Name, err)
	}
	cr.RunID = run.ID
	return cr, nil
}
