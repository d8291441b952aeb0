package harness

// Executor operation names recorded in the trace.
const (
	OpCreateValue  = "create_value"
	OpCreateStruct = "create_struct"
	OpCreateCall   = "create_call"
	OpMaterialize  = "materialize"
	OpRelease      = "release"
)

// TraceEvent is one executor operation observed during a scenario.
type TraceEvent struct {
	Type   string   `json:"type"`
	Case   string   `json:"case"`
	Handle string   `json:"handle,omitempty"`
	Refs   []string `json:"refs,omitempty"`

	// Value is the canonical JSON of an uploaded or materialized value.
	// Uploaded graphs are recorded as "graph".
	Value string `json:"value,omitempty"`

	// Error is the executor error code, when the operation failed.
	Error string `json:"error,omitempty"`
	Seq   int64  `json:"seq"`
}

// CaseResult is the outcome of one scenario case.
type CaseResult struct {
	Name   string  `json:"name"`
	RunID  string  `json:"run_id"`
	Output *string `json:"output,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every executor operation in order.
	Trace []TraceEvent `json:"trace"`

	// Cases holds one entry per scenario case, in order.
	Cases []CaseResult `json:"cases"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Cases:  []CaseResult{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// CountOps returns how many trace events have the given type.
func (r *Result) CountOps(op string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Type == op {
			n++
		}
	}
	return n
}
