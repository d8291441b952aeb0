// Package executor defines the boundary between the execution client and
// an executor backend: four operations over executor-owned value handles.
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/genc/internal/ir"
)

// ValueID is an opaque handle to a value inside an executor session.
// It is meaningful only to the executor that issued it.
type ValueID string

// Executor runs IR graphs on behalf of a client.
//
// Every handle an Executor returns is owned by the caller, who must release
// it once it is no longer needed.
type Executor interface {
	// CreateValue uploads a value message and returns a handle to it.
	CreateValue(ctx context.Context, v ir.Value) (OwnedValueID, error)

	// CreateStruct combines handles, in order, into a tuple handle.
	CreateStruct(ctx context.Context, elements []ValueID) (OwnedValueID, error)

	// CreateCall applies the function behind fn to the value behind arg.
	// A nil arg means a no-argument call.
	CreateCall(ctx context.Context, fn ValueID, arg *ValueID) (OwnedValueID, error)

	// Materialize returns the value message behind id.
	Materialize(ctx context.Context, id ValueID) (ir.Value, error)
}

// OwnedValueID is a handle together with the means to release it.
// Release is idempotent and safe to call on the zero value.
type OwnedValueID struct {
	id    ValueID
	state *releaseState
}

type releaseState struct {
	once    sync.Once
	release func()
}

// NewOwnedValueID wraps id with a release function supplied by the
// executor. release may be nil.
func NewOwnedValueID(id ValueID, release func()) OwnedValueID {
	return OwnedValueID{id: id, state: &releaseState{release: release}}
}

// Ref returns the underlying handle.
func (o OwnedValueID) Ref() ValueID {
	return o.id
}

// Release gives the handle back to the executor.
func (o OwnedValueID) Release() {
	if o.state == nil {
		return
	}
	o.state.once.Do(func() {
		if o.state.release != nil {
			o.state.release()
		}
	})
}

func (o OwnedValueID) String() string {
	return fmt.Sprintf("ValueID(%s)", string(o.id))
}
