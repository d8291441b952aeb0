// Package models resolves model URIs to inference backends.
//
// A Backend turns a prompt into a completion. The Registry maps the URI
// carried by a model node to its Backend; the built-in test model is
// always registered.
package models

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// TestModelURI names the deterministic model available in every registry.
const TestModelURI = "test_model"

// Backend runs inference for one model.
type Backend interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

// InferenceFunc adapts a plain function to Backend.
type InferenceFunc func(ctx context.Context, prompt string) (string, error)

// Infer calls f.
func (f InferenceFunc) Infer(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// TestModel echoes its prompt inside a fixed sentence.
type TestModel struct{}

// Infer never fails.
func (TestModel) Infer(_ context.Context, prompt string) (string, error) {
	return fmt.Sprintf(`This is an output from a test model in response to "%s".`, prompt), nil
}

// Registry maps model URIs to backends. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry returns a registry holding only the test model.
func NewRegistry() *Registry {
	return &Registry{backends: map[string]Backend{TestModelURI: TestModel{}}}
}

// Register binds uri to b, replacing any earlier binding.
func (r *Registry) Register(uri string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[uri] = b
}

// Lookup returns the backend bound to uri.
func (r *Registry) Lookup(uri string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[uri]
	return b, ok
}

// URIs lists the registered model URIs in sorted order.
func (r *Registry) URIs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.backends))
	for uri := range r.backends {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}
