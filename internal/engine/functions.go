package engine

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/genc/internal/ir"
)

// Func is a custom function callable from a custom_function node.
type Func func(ctx context.Context, arg ir.Value) (ir.Value, error)

// Resolver builds the Func for a URI that starts with a registered prefix.
type Resolver func(uri string) (Func, error)

// Functions maps custom function URIs to implementations. Exact
// registrations win over prefix resolvers. Safe for concurrent use.
type Functions struct {
	mu       sync.RWMutex
	funcs    map[string]Func
	prefixes map[string]Resolver
}

// NewFunctions returns an empty registry.
func NewFunctions() *Functions {
	return &Functions{
		funcs:    make(map[string]Func),
		prefixes: make(map[string]Resolver),
	}
}

// Register binds uri to fn.
func (f *Functions) Register(uri string, fn Func) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funcs[uri] = fn
}

// RegisterPrefix resolves every URI starting with prefix through r.
func (f *Functions) RegisterPrefix(prefix string, r Resolver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes[prefix] = r
}

// Resolve returns the function bound to uri. The longest matching prefix
// is used when no exact binding exists.
func (f *Functions) Resolve(uri string) (Func, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if fn, ok := f.funcs[uri]; ok {
		return fn, nil
	}
	best := ""
	for p := range f.prefixes {
		if strings.HasPrefix(uri, p) && len(p) > len(best) {
			best = p
		}
	}
	if best == "" {
		return nil, newError(ErrCodeUnknownFunction, ir.KindCustomFunction, "no function registered for %q", uri)
	}
	fn, err := f.prefixes[best](uri)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeUnknownFunction, Kind: ir.KindCustomFunction, Message: "resolve " + uri, Err: err}
	}
	return fn, nil
}

// URIs lists exact registrations in sorted order.
func (f *Functions) URIs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.funcs))
	for uri := range f.funcs {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}
