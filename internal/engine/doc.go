// Package engine implements the inline executor: an in-process
// interpreter for IR graphs behind the executor.Executor interface.
//
// Values live in a handle table keyed by ValueIDs drawn from a monotonic
// logical clock. Uploading a graph stores a closure; calling it evaluates
// the graph eagerly. Handles are removed from the table when the owner
// releases them.
//
// Evaluation model:
//   - function nodes (chain, model, lambda, ...) evaluate to closures that
//     capture the lexical scope they were created in
//   - expression nodes (struct, call, reference, selection) evaluate to
//     values, which may themselves be closures
//   - loops draw from a per-call iteration quota so every call terminates
//
// The engine is safe for concurrent use. parallel_map fans out across
// goroutines bounded by WithMaxParallelism.
package engine
