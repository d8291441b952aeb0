// Package ir defines the orchestration intermediate representation: the
// closed set of graph node kinds, the value message that crosses the
// executor boundary, and their tagged-envelope wire encoding.
//
// ir imports only internal/wire. Every other internal package imports ir.
//
// Key constraints:
//   - Node and Value are sealed; a type switch over them is exhaustive
//   - nodes are immutable once built and reference children by value, so a
//     graph is always a DAG
//   - all wire keys use snake_case
package ir
