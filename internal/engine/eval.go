package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/genc/internal/ir"
)

// run carries the state of one top-level call.
type run struct {
	e     *Engine
	quota *quota
}

// scope is a lexical environment of lambda bindings.
type scope struct {
	name   string
	v      value
	parent *scope
}

func (s *scope) bind(name string, v value) *scope {
	return &scope{name: name, v: v, parent: s}
}

func (s *scope) lookup(name string) (value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.v, true
		}
	}
	return nil, false
}

// graphClosure makes an uploaded graph callable. A root that evaluates to
// a function is applied to the argument; any other root is returned as-is
// when called without an argument.
func graphClosure(root ir.Node) *closure {
	return &closure{kind: root.Kind(), call: func(ctx context.Context, r *run, arg value) (value, error) {
		v, err := r.eval(ctx, root, nil)
		if err != nil {
			return nil, err
		}
		if c, ok := v.(*closure); ok {
			return c.call(ctx, r, arg)
		}
		if arg != nil {
			return nil, newError(ErrCodeNotCallable, root.Kind(), "graph evaluates to %s and takes no argument", describe(v))
		}
		return v, nil
	}}
}

// eval evaluates n in sc. Function nodes yield closures.
func (r *run) eval(ctx context.Context, n ir.Node, sc *scope) (value, error) {
	switch x := n.(type) {
	case ir.Struct:
		t := make(tuple, len(x.Elements))
		for i, el := range x.Elements {
			v, err := r.eval(ctx, el.Value, sc)
			if err != nil {
				return nil, err
			}
			t[i] = field{name: el.Name, v: v}
		}
		return t, nil
	case ir.Call:
		var arg value
		if x.Arg != nil {
			v, err := r.eval(ctx, x.Arg, sc)
			if err != nil {
				return nil, err
			}
			arg = v
		}
		return r.invoke(ctx, x.Fn, sc, arg)
	case ir.Reference:
		v, ok := sc.lookup(x.Name)
		if !ok {
			return nil, newError(ErrCodeUnboundReference, ir.KindReference, "%q is not bound", x.Name)
		}
		return v, nil
	case ir.Selection:
		return r.selection(ctx, x, sc)
	default:
		return &closure{kind: n.Kind(), call: func(ctx context.Context, r *run, arg value) (value, error) {
			return r.apply(ctx, n, sc, arg)
		}}, nil
	}
}

// invoke evaluates fn in sc and applies the resulting closure to arg.
func (r *run) invoke(ctx context.Context, fn ir.Node, sc *scope, arg value) (value, error) {
	if fn.Kind().IsFunction() {
		return r.apply(ctx, fn, sc, arg)
	}
	v, err := r.eval(ctx, fn, sc)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*closure)
	if !ok {
		return nil, newError(ErrCodeNotCallable, fn.Kind(), "evaluates to %s, not a function", describe(v))
	}
	return c.call(ctx, r, arg)
}

// predicate applies fn to arg and requires a bool result.
func (r *run) predicate(ctx context.Context, kind ir.Kind, fn ir.Node, sc *scope, arg value) (bool, error) {
	v, err := r.invoke(ctx, fn, sc, arg)
	if err != nil {
		return false, err
	}
	return asBool(kind, v)
}

// apply runs the function node n on arg.
func (r *run) apply(ctx context.Context, n ir.Node, sc *scope, arg value) (value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch x := n.(type) {
	case ir.Chain:
		return r.steps(ctx, x.Steps, sc, arg)
	case ir.BreakableChain:
		out, _, err := r.breakable(ctx, ir.KindBreakableChain, x.Steps, x.BreakIf, sc, arg)
		return out, err
	case ir.Conditional:
		ok, err := r.predicate(ctx, ir.KindConditional, x.Condition, sc, arg)
		if err != nil {
			return nil, err
		}
		if ok {
			return r.invoke(ctx, x.Then, sc, arg)
		}
		return r.invoke(ctx, x.Else, sc, arg)
	case ir.LoopChainCombo:
		state := arg
		for range x.NumSteps {
			if err := r.quota.tick(ir.KindLoopChainCombo); err != nil {
				return nil, err
			}
			out, stopped, err := r.breakable(ctx, ir.KindLoopChainCombo, x.Steps, x.BreakIf, sc, state)
			if err != nil {
				return nil, err
			}
			state = out
			if stopped {
				break
			}
		}
		return state, nil
	case ir.While:
		state := arg
		for {
			ok, err := r.predicate(ctx, ir.KindWhile, x.Condition, sc, state)
			if err != nil {
				return nil, err
			}
			if !ok {
				return state, nil
			}
			if err := r.quota.tick(ir.KindWhile); err != nil {
				return nil, err
			}
			if state, err = r.invoke(ctx, x.Body, sc, state); err != nil {
				return nil, err
			}
		}
	case ir.Repeat:
		state := arg
		for range x.NumSteps {
			var err error
			if state, err = r.invoke(ctx, x.Body, sc, state); err != nil {
				return nil, err
			}
		}
		return state, nil
	case ir.ParallelMap:
		return r.parallelMap(ctx, x, sc, arg)
	case ir.Fallback:
		return r.fallback(ctx, x, sc, arg)
	case ir.Lambda:
		return r.eval(ctx, x.Body, sc.bind(x.Param, arg))
	case ir.CustomFunction:
		return r.customFunction(ctx, x, arg)
	case ir.Model:
		return r.model(ctx, x, arg)
	case ir.PromptTemplate:
		return r.promptTemplate(ctx, x, arg)
	case ir.Logger:
		r.e.logger.InfoContext(ctx, "logger", "value", render(arg))
		return arg, nil
	case ir.RegexPartialMatch:
		s, err := asString(ir.KindRegexPartialMatch, arg)
		if err != nil {
			return nil, err
		}
		re, err := r.e.compiledRegexp(x.Pattern)
		if err != nil {
			return nil, &RuntimeError{Code: ErrCodeTypeMismatch, Kind: ir.KindRegexPartialMatch, Message: "invalid pattern", Err: err}
		}
		return ir.Bool(re.MatchString(s)), nil
	case ir.LogicalNot:
		b, err := asBool(ir.KindLogicalNot, arg)
		if err != nil {
			return nil, err
		}
		return ir.Bool(!b), nil
	default:
		return r.invoke(ctx, n, sc, arg)
	}
}

// steps applies fns in order, feeding each result forward.
func (r *run) steps(ctx context.Context, fns []ir.Node, sc *scope, arg value) (value, error) {
	x := arg
	for _, fn := range fns {
		var err error
		if x, err = r.invoke(ctx, fn, sc, x); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// breakable applies fns in order and stops after the first step whose
// output satisfies breakIf. A nil breakIf never stops.
func (r *run) breakable(ctx context.Context, kind ir.Kind, fns []ir.Node, breakIf ir.Node, sc *scope, arg value) (value, bool, error) {
	x := arg
	for _, fn := range fns {
		var err error
		if x, err = r.invoke(ctx, fn, sc, x); err != nil {
			return nil, false, err
		}
		if breakIf == nil {
			continue
		}
		stop, err := r.predicate(ctx, kind, breakIf, sc, x)
		if err != nil {
			return nil, false, err
		}
		if stop {
			return x, true, nil
		}
	}
	return x, false, nil
}

func (r *run) selection(ctx context.Context, s ir.Selection, sc *scope) (value, error) {
	src, err := r.eval(ctx, s.Source, sc)
	if err != nil {
		return nil, err
	}
	t, ok := src.(tuple)
	if !ok {
		return nil, newError(ErrCodeTypeMismatch, ir.KindSelection, "source is %s, not a struct", describe(src))
	}
	if s.ByName() {
		for _, f := range t {
			if f.name == s.Name {
				return f.v, nil
			}
		}
		return nil, newError(ErrCodeSelection, ir.KindSelection, "no element named %q", s.Name)
	}
	if s.Index < 0 || s.Index >= len(t) {
		return nil, newError(ErrCodeSelection, ir.KindSelection, "index %d out of range for struct of %d", s.Index, len(t))
	}
	return t[s.Index].v, nil
}

// parallelMap applies Fn to every element concurrently. The first failure
// cancels the remaining branches and fails the whole map.
func (r *run) parallelMap(ctx context.Context, pm ir.ParallelMap, sc *scope, arg value) (value, error) {
	in, ok := arg.(tuple)
	if !ok {
		return nil, newError(ErrCodeTypeMismatch, ir.KindParallelMap, "expected struct argument, got %s", describe(arg))
	}
	fv, err := r.eval(ctx, pm.Fn, sc)
	if err != nil {
		return nil, err
	}
	fn, ok := fv.(*closure)
	if !ok {
		return nil, newError(ErrCodeNotCallable, ir.KindParallelMap, "fn evaluates to %s", describe(fv))
	}

	out := make(tuple, len(in))
	g, gctx := errgroup.WithContext(ctx)
	if r.e.maxParallelism > 0 {
		g.SetLimit(r.e.maxParallelism)
	}
	for i, f := range in {
		g.Go(func() error {
			v, err := fn.call(gctx, r, f.v)
			if err != nil {
				return fmt.Errorf("parallel_map element %d: %w", i, err)
			}
			out[i] = field{name: f.name, v: v}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// fallback returns the result of the first candidate that succeeds.
func (r *run) fallback(ctx context.Context, fb ir.Fallback, sc *scope, arg value) (value, error) {
	errs := make([]error, 0, len(fb.Candidates))
	for i, c := range fb.Candidates {
		v, err := r.invoke(ctx, c, sc, arg)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.e.logger.DebugContext(ctx, "fallback candidate failed", "index", i, "kind", c.Kind(), "error", err)
		errs = append(errs, fmt.Errorf("candidate %d: %w", i, err))
	}
	return nil, &RuntimeError{
		Code:    ErrCodeAllCandidatesFailed,
		Kind:    ir.KindFallback,
		Message: fmt.Sprintf("all %d candidates failed", len(fb.Candidates)),
		Err:     errors.Join(errs...),
	}
}
