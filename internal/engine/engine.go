package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/roach88/genc/internal/executor"
	"github.com/roach88/genc/internal/ir"
	"github.com/roach88/genc/internal/models"
)

// DefaultMaxParallelism bounds the concurrent branches of one parallel_map.
const DefaultMaxParallelism = 8

// Engine is the inline executor.
type Engine struct {
	clock  *Clock
	mu     sync.Mutex
	values map[executor.ValueID]value

	models  *models.Registry
	funcs   *Functions
	logger  *slog.Logger
	regexps sync.Map // pattern -> *regexp.Regexp

	maxParallelism int
	maxIterations  int
}

var _ executor.Executor = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithModels sets the model registry. The default holds only the test model.
func WithModels(r *models.Registry) Option {
	return func(e *Engine) {
		e.models = r
	}
}

// WithFunctions sets the custom function registry.
func WithFunctions(f *Functions) Option {
	return func(e *Engine) {
		e.funcs = f
	}
}

// WithLogger sets the logger used by logger nodes and engine diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMaxParallelism bounds concurrent parallel_map branches. n <= 0
// removes the bound.
func WithMaxParallelism(n int) Option {
	return func(e *Engine) {
		e.maxParallelism = n
	}
}

// WithMaxIterations sets the loop iteration budget of each call.
//
// Default: 1000 (DefaultMaxIterations). n <= 0 removes the bound.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		e.maxIterations = n
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:          NewClock(),
		values:         make(map[executor.ValueID]value),
		models:         models.NewRegistry(),
		funcs:          NewFunctions(),
		logger:         slog.Default(),
		maxParallelism: DefaultMaxParallelism,
		maxIterations:  DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateValue stores v. Graphs are validated and stored as closures.
func (e *Engine) CreateValue(ctx context.Context, v ir.Value) (executor.OwnedValueID, error) {
	if err := ctx.Err(); err != nil {
		return executor.OwnedValueID{}, err
	}
	ev, err := e.load(v)
	if err != nil {
		return executor.OwnedValueID{}, err
	}
	return e.put(ev), nil
}

// CreateStruct stores the tuple of the values behind elements.
func (e *Engine) CreateStruct(ctx context.Context, elements []executor.ValueID) (executor.OwnedValueID, error) {
	if err := ctx.Err(); err != nil {
		return executor.OwnedValueID{}, err
	}
	t := make(tuple, len(elements))
	for i, id := range elements {
		v, err := e.get(id)
		if err != nil {
			return executor.OwnedValueID{}, err
		}
		t[i] = field{v: v}
	}
	return e.put(t), nil
}

// CreateCall applies the function behind fn and stores the result.
// Evaluation is eager: the call has completed when CreateCall returns.
func (e *Engine) CreateCall(ctx context.Context, fn executor.ValueID, arg *executor.ValueID) (executor.OwnedValueID, error) {
	fv, err := e.get(fn)
	if err != nil {
		return executor.OwnedValueID{}, err
	}
	c, ok := fv.(*closure)
	if !ok {
		return executor.OwnedValueID{}, newError(ErrCodeNotCallable, "", "handle %s holds %s, not a function", fn, describe(fv))
	}
	var av value
	if arg != nil {
		if av, err = e.get(*arg); err != nil {
			return executor.OwnedValueID{}, err
		}
	}

	r := &run{e: e, quota: newQuota(e.maxIterations)}
	out, err := c.call(ctx, r, av)
	if err != nil {
		e.logger.DebugContext(ctx, "call failed", "fn", fn, "kind", c.kind, "error", err)
		return executor.OwnedValueID{}, err
	}
	h := e.put(out)
	e.logger.DebugContext(ctx, "call completed", "fn", fn, "kind", c.kind, "result", h.Ref())
	return h, nil
}

// Materialize returns the value behind id as a value message.
func (e *Engine) Materialize(ctx context.Context, id executor.ValueID) (ir.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := e.get(id)
	if err != nil {
		return nil, err
	}
	return export(v)
}

// Live returns the number of handles not yet released.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.values)
}

func (e *Engine) put(v value) executor.OwnedValueID {
	id := executor.ValueID(fmt.Sprintf("v%d", e.clock.Next()))
	e.mu.Lock()
	e.values[id] = v
	e.mu.Unlock()
	return executor.NewOwnedValueID(id, func() { e.release(id) })
}

func (e *Engine) get(id executor.ValueID) (value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.values[id]
	if !ok {
		return nil, newError(ErrCodeInvalidHandle, "", "unknown or released handle %q", id)
	}
	return v, nil
}

func (e *Engine) release(id executor.ValueID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.values, id)
}

func (e *Engine) compiledRegexp(pattern string) (*regexp.Regexp, error) {
	if re, ok := e.regexps.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.regexps.Store(pattern, re)
	return re, nil
}
