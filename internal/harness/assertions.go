package harness

import (
	"context"
	"fmt"
	"strings"
)

// checkExpect compares one case outcome with its expect clause.
func checkExpect(c Case, cr CaseResult, result *Result) {
	e := c.Expect
	switch {
	case e.Error != "":
		if cr.Error == "" {
			result.AddError(fmt.Sprintf("case %s: expected error %q, got success", c.Name, e.Error))
		} else if !strings.Contains(cr.Error, e.Error) {
			result.AddError(fmt.Sprintf("case %s: expected error %q, got %q", c.Name, e.Error, cr.Error))
		}
		return
	case cr.Error != "":
		result.AddError(fmt.Sprintf("case %s: unexpected error %s", c.Name, cr.Error))
		return
	}

	switch {
	case e.Absent:
		if cr.Output != nil {
			result.AddError(fmt.Sprintf("case %s: expected no result, got %q", c.Name, *cr.Output))
		}
	case cr.Output == nil:
		result.AddError(fmt.Sprintf("case %s: expected a result, got none", c.Name))
	case e.Result != nil:
		if *cr.Output != *e.Result {
			result.AddError(fmt.Sprintf("case %s: result mismatch:\n  want %q\n  got  %q", c.Name, *e.Result, *cr.Output))
		}
	case e.Contains != "":
		if !strings.Contains(*cr.Output, e.Contains) {
			result.AddError(fmt.Sprintf("case %s: result %q does not contain %q", c.Name, *cr.Output, e.Contains))
		}
	}
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Set for trace assertions
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s %v\n", ev.Seq, ev.Case, ev.Type, ev.Handle, ev.Refs)
		}
	}
	return buf.String()
}

// checkAssertion evaluates one scenario-level assertion.
func (h *Harness) checkAssertion(ctx context.Context, a Assertion, result *Result) error {
	switch a.Type {
	case AssertLogContains:
		if len(h.logs.Lines(a.Text)) == 0 {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("a log line containing %q", a.Text), Actual: "none"}
		}
	case AssertLogCount:
		if n := len(h.logs.Lines(a.Text)); n != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d log lines containing %q", a.Count, a.Text),
				Actual:   fmt.Sprintf("%d lines", n),
			}
		}
	case AssertTraceCount:
		if n := result.CountOps(a.Op); n != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d %s operations", a.Count, a.Op),
				Actual:   fmt.Sprintf("%d operations", n),
				Trace:    result.Trace,
			}
		}
	case AssertHandlesReleased:
		if n := h.engine.Live(); n != 0 {
			return &AssertionError{Type: a.Type, Expected: "0 live handles", Actual: fmt.Sprintf("%d live handles", n)}
		}
	case AssertRunCount:
		runs, err := h.store.ListRuns(ctx, h.graphHash)
		if err != nil {
			return fmt.Errorf("run_count: %w", err)
		}
		if len(runs) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d recorded runs", a.Count),
				Actual:   fmt.Sprintf("%d runs", len(runs)),
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
