// Package scripts provides custom functions backed by Lua scripts and
// JSONPath expressions.
//
// Both kinds expose the same signature, func(ctx, ir.Value) (ir.Value,
// error), so they can be registered with the engine's function registry.
package scripts
