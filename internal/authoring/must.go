package authoring

import "github.com/roach88/genc/internal/ir"

// Must panics if err is non-nil. It is meant for graphs built from
// literals in tests and examples.
func Must(n ir.Node, err error) ir.Node {
	if err != nil {
		panic(err)
	}
	return n
}
