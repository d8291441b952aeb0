package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/genc/internal/wire"
)

// Snapshot renders a result as canonical JSON for golden comparison.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	cases := make([]any, len(result.Cases))
	for i, c := range result.Cases {
		m := map[string]any{"name": c.Name, "run_id": c.RunID}
		if c.Output != nil {
			m["output"] = *c.Output
		}
		if c.Error != "" {
			m["error"] = c.Error
		}
		cases[i] = m
	}

	trace := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		m := map[string]any{"type": e.Type, "case": e.Case, "seq": e.Seq}
		if e.Handle != "" {
			m["handle"] = e.Handle
		}
		if len(e.Refs) > 0 {
			refs := make([]any, len(e.Refs))
			for j, r := range e.Refs {
				refs[j] = r
			}
			m["refs"] = refs
		}
		if e.Value != "" {
			m["value"] = e.Value
		}
		if e.Error != "" {
			m["error"] = e.Error
		}
		trace[i] = m
	}

	d, err := wire.FromAny(map[string]any{
		"scenario_name": scenarioName,
		"cases":         cases,
		"trace":         trace,
	})
	if err != nil {
		return nil, err
	}
	return wire.MarshalCanonical(d)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
