package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: one graph run against a
// list of cases, followed by assertions over the trace, logs and store.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Graph is the path of the graph source.
	Graph string `yaml:"graph"`

	// Models maps model URIs to stub replies. "{prompt}" in a reply is
	// replaced by the prompt. test_model is always registered.
	Models map[string]string `yaml:"models,omitempty"`

	// Scripts is a directory of Lua custom functions.
	Scripts string `yaml:"scripts,omitempty"`

	// MaxIterations overrides the engine's per-call loop budget.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// Cases are invoked in order against one uploaded graph.
	Cases []Case `yaml:"cases"`

	// Assertions validate the final trace, logs and store.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Case is one invocation of the scenario graph.
type Case struct {
	Name string `yaml:"name"`

	// Args are positional string arguments.
	Args []string `yaml:"args,omitempty"`

	// Keywords are keyword arguments. The runner rejects them; cases use
	// them to pin that behavior.
	Keywords map[string]string `yaml:"keywords,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect specifies the expected outcome of a case. Exactly one of Result,
// Contains, Absent and Error must be set.
type Expect struct {
	// Result is the exact expected output.
	Result *string `yaml:"result,omitempty"`

	// Contains is a substring of the expected output.
	Contains string `yaml:"contains,omitempty"`

	// Absent expects an empty result.
	Absent bool `yaml:"absent,omitempty"`

	// Error is a substring of the expected error, usually its code.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the scenario as a whole.
type Assertion struct {
	Type  string `yaml:"type"`
	Text  string `yaml:"text,omitempty"`
	Op    string `yaml:"op,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertLogContains     = "log_contains"
	AssertLogCount        = "log_count"
	AssertTraceCount      = "trace_count"
	AssertHandlesReleased = "handles_released"
	AssertRunCount        = "run_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Graph and Scripts are resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Graph = resolve(base, scenario.Graph)
	scenario.Scripts = resolve(base, scenario.Scripts)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Graph == "" {
		return fmt.Errorf("graph is required")
	}
	if _, err := os.Stat(s.Graph); err != nil {
		return fmt.Errorf("graph not found: %s", s.Graph)
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}
	if s.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be non-negative")
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = true
		if err := validateExpect(c.Expect); err != nil {
			return fmt.Errorf("cases[%d].expect: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateExpect(e Expect) error {
	set := 0
	for _, b := range []bool{e.Result != nil, e.Contains != "", e.Absent, e.Error != ""} {
		if b {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of result, contains, absent or error is required")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLogContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for log_contains", index)
		}
	case AssertLogCount:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for log_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for log_count", index)
		}
	case AssertTraceCount:
		switch a.Op {
		case OpCreateValue, OpCreateStruct, OpCreateCall, OpMaterialize, OpRelease:
		default:
			return fmt.Errorf("assertions[%d]: unknown op %q for trace_count", index, a.Op)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertHandlesReleased:
	case AssertRunCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for run_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
