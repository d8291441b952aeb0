// Package harness runs conformance scenarios against the inline engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: trip_packing
//	description: "What this scenario validates"
//	graph: ../graphs/trip.cue      # .cue, .json, or a CUE package dir
//	models:                        # optional stub backends, {prompt} is replaced
//	  echo: "echo: {prompt}"
//	scripts: ../scripts            # optional Lua custom functions
//	max_iterations: 100            # optional per-call loop budget
//	cases:
//	  - name: grocery
//	    args: ["a grocery store"]
//	    expect:
//	      result: "..."
//	  - name: keywords
//	    keywords: {style: terse}
//	    expect:
//	      error: UNSUPPORTED_KEYWORD_ARGUMENTS
//	assertions:
//	  - type: log_count
//	    text: msg=logger
//	    count: 1
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - log_contains: some log line contains text
//   - log_count: exactly count log lines contain text
//   - trace_count: the executor saw exactly count operations of type op
//   - handles_released: no executor handle is live after the scenario
//   - run_count: the run store holds exactly count runs for the graph
//
// # Deterministic Testing
//
// Every scenario gets a fresh engine, a fresh in-memory store, fixed run
// IDs and a deterministic clock for trace sequence numbers, so the same
// scenario always produces the same trace for golden comparison.
package harness
