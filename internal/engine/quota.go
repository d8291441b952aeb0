package engine

import (
	"sync/atomic"

	"github.com/roach88/genc/internal/ir"
)

// DefaultMaxIterations bounds the loop iterations of a single call.
const DefaultMaxIterations = 1000

// quota counts loop iterations across one top-level call, including its
// parallel branches.
//
// It catches runaway while loops and oversized loop_chain_combo rounds.
// repeat is bounded by construction and does not draw from it.
type quota struct {
	limit   int64
	current atomic.Int64
}

func newQuota(limit int) *quota {
	return &quota{limit: int64(limit)}
}

// tick records one iteration and fails once the limit is passed.
func (q *quota) tick(kind ir.Kind) error {
	n := q.current.Add(1)
	if q.limit > 0 && n > q.limit {
		return newError(ErrCodeQuotaExceeded, kind, "call exceeded max iterations (%d > %d)", n, q.limit)
	}
	return nil
}
