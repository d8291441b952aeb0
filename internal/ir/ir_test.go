package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genc/internal/wire"
)

func sampleNodes() map[string]Node {
	model := Model{URI: "test_model"}
	isDone := RegexPartialMatch{Pattern: "DONE"}
	return map[string]Node{
		"chain":           Chain{Steps: []Node{PromptTemplate{Template: "Q: {q}"}, model}},
		"breakable_chain": BreakableChain{Steps: []Node{model, Logger{}}, BreakIf: isDone},
		"conditional":     Conditional{Condition: isDone, Then: Logger{}, Else: model},
		"loop_chain_combo": LoopChainCombo{
			Steps:    []Node{model},
			BreakIf:  isDone,
			NumSteps: 3,
		},
		"loop_no_break": LoopChainCombo{Steps: []Node{model}, NumSteps: 1},
		"while":         While{Condition: Chain{Steps: []Node{isDone, LogicalNot{}}}, Body: model},
		"repeat":        Repeat{NumSteps: 0, Body: Logger{}},
		"parallel_map":  ParallelMap{Fn: model},
		"fallback":      Fallback{Candidates: []Node{CustomFunction{URI: "lua/flaky"}, model}},
		"struct": Struct{Elements: []Element{
			{Name: "a", Value: Reference{Name: "x"}},
			{Value: PromptTemplate{Template: "t"}},
		}},
		"empty_struct": Struct{Elements: []Element{}},
		"call":         Call{Fn: model, Arg: Struct{Elements: []Element{{Value: Reference{Name: "x"}}}}},
		"call_no_arg":  Call{Fn: Reference{Name: "f"}},
		"lambda":       Lambda{Param: "x", Body: Call{Fn: model, Arg: Reference{Name: "x"}}},
		"selection":    Selection{Source: Reference{Name: "s"}, Index: 1},
		"named_sel":    Selection{Source: Reference{Name: "s"}, Name: "answer"},
	}
}

func TestNodeRoundTrip(t *testing.T) {
	for name, n := range sampleNodes() {
		t.Run(name, func(t *testing.T) {
			data, err := MarshalNode(n)
			require.NoError(t, err)

			got, err := UnmarshalNode(data)
			require.NoError(t, err)
			assert.Equal(t, n, got)

			again, err := MarshalNode(got)
			require.NoError(t, err)
			assert.Equal(t, string(data), string(again))
		})
	}
}

func TestMarshalNodeShapes(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"logger", Logger{}, `{"logger":{}}`},
		{"model", Model{URI: "test_model"}, `{"model":"test_model"}`},
		{"repeat", Repeat{NumSteps: 2, Body: Logger{}}, `{"repeat":{"body":{"logger":{}},"num_steps":2}}`},
		{"selection index zero", Selection{Source: Reference{Name: "s"}}, `{"selection":{"index":0,"source":{"reference":"s"}}}`},
		{"struct", Struct{Elements: []Element{{Name: "a", Value: Reference{Name: "x"}}, {Value: Logger{}}}},
			`{"struct":[{"name":"a","value":{"reference":"x"}},{"value":{"logger":{}}}]}`},
		{"call without arg", Call{Fn: Model{URI: "m"}}, `{"call":{"fn":{"model":"m"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalNode(tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestUnmarshalNodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantPath string
	}{
		{"not an object", `[]`, "$"},
		{"two keys", `{"logger":{},"logical_not":{}}`, "$"},
		{"unknown kind", `{"teleport":{}}`, "$.teleport"},
		{"empty chain", `{"chain":[]}`, "$.chain"},
		{"wrong payload", `{"model":3}`, "$.model"},
		{"nested error path", `{"chain":[{"logger":{}},{"repeat":{"num_steps":-1,"body":{"logger":{}}}}]}`, "$.chain[1].repeat"},
		{"missing field", `{"while":{"body":{"logger":{}}}}`, "$.while"},
		{"unknown field", `{"lambda":{"param":"x","body":{"logger":{}},"extra":1}}`, "$.lambda"},
		{"struct in function position", `{"chain":[{"struct":[]}]}`, "$.chain"},
		{"bad regex", `{"regex_partial_match":"("}`, "$.regex_partial_match"},
		{"selection with both", `{"selection":{"source":{"reference":"s"},"index":0,"name":"a"}}`, "$.selection"},
		{"selection from function", `{"selection":{"source":{"logger":{}},"index":0}}`, "$.selection"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalNode([]byte(tt.input))
			require.Error(t, err)
			var de *DecodeError
			require.True(t, errors.As(err, &de), "want DecodeError, got %T", err)
			assert.Equal(t, tt.wantPath, de.Path)
		})
	}
}

func TestCheckWellFormed(t *testing.T) {
	tests := []struct {
		name      string
		node      Node
		wantField string
	}{
		{"chain empty", Chain{}, "steps"},
		{"chain nil step", Chain{Steps: []Node{nil}}, "steps[0]"},
		{"conditional missing else", Conditional{Condition: Logger{}, Then: Logger{}}, "else"},
		{"loop zero steps", LoopChainCombo{Steps: []Node{Logger{}}}, "num_steps"},
		{"repeat negative", Repeat{NumSteps: -1, Body: Logger{}}, "num_steps"},
		{"parallel_map struct fn", ParallelMap{Fn: Struct{}}, "fn"},
		{"fallback empty", Fallback{}, "candidates"},
		{"struct duplicate", Struct{Elements: []Element{{Name: "a", Value: Logger{}}, {Name: "a", Value: Logger{}}}}, "elements[1]"},
		{"lambda empty param", Lambda{Body: Logger{}}, "param"},
		{"reference empty", Reference{}, "name"},
		{"model empty", Model{}, "uri"},
		{"selection negative", Selection{Source: Reference{Name: "s"}, Index: -1}, "index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckWellFormed(tt.node)
			var se *ShapeError
			require.True(t, errors.As(err, &se), "want ShapeError, got %v", err)
			assert.Equal(t, tt.node.Kind(), se.Kind)
			assert.Equal(t, tt.wantField, se.Field)
		})
	}

	for name, n := range sampleNodes() {
		assert.NoError(t, CheckWellFormed(n), name)
	}
}

func TestValidateReferences(t *testing.T) {
	bound := Lambda{Param: "x", Body: Chain{Steps: []Node{
		Lambda{Param: "y", Body: Struct{Elements: []Element{
			{Value: Reference{Name: "x"}},
			{Value: Reference{Name: "y"}},
		}}},
	}}}
	require.NoError(t, Validate(bound))

	free := Chain{Steps: []Node{Model{URI: "m"}, Lambda{Param: "x", Body: Reference{Name: "y"}}}}
	err := Validate(free)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "$.chain[1].lambda.body", ve.Path)
	assert.Contains(t, err.Error(), `unbound reference "y"`)
}

func TestGraphHash(t *testing.T) {
	a := Chain{Steps: []Node{PromptTemplate{Template: "Hi {x}"}, Model{URI: "test_model"}}}
	b := Chain{Steps: []Node{PromptTemplate{Template: "Hi {x}"}, Model{URI: "test_model"}}}
	c := Chain{Steps: []Node{Model{URI: "test_model"}, PromptTemplate{Template: "Hi {x}"}}}

	ha, err := GraphHash(a)
	require.NoError(t, err)
	hb, err := GraphHash(b)
	require.NoError(t, err)
	hc, err := GraphHash(c)
	require.NoError(t, err)

	assert.Len(t, ha, 64)
	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)

	data, err := MarshalNode(a)
	require.NoError(t, err)
	assert.Equal(t, wire.HashWithDomain(GraphHashDomain, data), ha)
}

func TestValueRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"empty", nil, `{}`},
		{"str", Str("hello"), `{"str":"hello"}`},
		{"bool", Bool(true), `{"bool":true}`},
		{"int", Int(-7), `{"int_32":-7}`},
		{"graph", Graph{Node: Logger{}}, `{"graph":{"logger":{}}}`},
		{"struct", StructValue{Elements: []NamedValue{{Name: "a", Value: Str("x")}, {Value: Int(1)}}},
			`{"struct":[{"name":"a","value":{"str":"x"}},{"value":{"int_32":1}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalValue(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))

			got, err := UnmarshalValue(data)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestDecomposedStringsSurviveRoundTrip(t *testing.T) {
	// "e" followed by a combining acute accent must not be composed on the wire.
	tmpl := PromptTemplate{Template: "cafe\u0301 {x}"}
	require.Len(t, tmpl.Template, 10)
	n := Chain{Steps: []Node{tmpl, Model{URI: "mode\u0301le"}}}

	data, err := MarshalNode(n)
	require.NoError(t, err)
	got, err := UnmarshalNode(data)
	require.NoError(t, err)
	assert.Equal(t, n, got)
	assert.Len(t, got.(Chain).Steps[0].(PromptTemplate).Template, 10)

	v := StructValue{Elements: []NamedValue{{Name: "x", Value: Str("e\u0301")}}}
	vdata, err := MarshalValue(v)
	require.NoError(t, err)
	gotV, err := UnmarshalValue(vdata)
	require.NoError(t, err)
	assert.Equal(t, v, gotV)
	assert.Len(t, string(gotV.(StructValue).Elements[0].Value.(Str)), 3)

	composed, err := GraphHash(PromptTemplate{Template: "caf\u00e9 {x}"})
	require.NoError(t, err)
	decomposed, err := GraphHash(tmpl)
	require.NoError(t, err)
	assert.NotEqual(t, composed, decomposed)
}

func TestUnmarshalValueErrors(t *testing.T) {
	for _, in := range []string{
		`{"str":"a","bool":true}`,
		`{"int_32":4294967296}`,
		`{"str":1}`,
		`{"float":1}`,
		`"bare"`,
	} {
		_, err := UnmarshalValue([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestKindClassification(t *testing.T) {
	assert.Len(t, Kinds, 19)
	for _, k := range []Kind{KindStruct, KindCall, KindReference, KindSelection} {
		assert.True(t, k.IsExpression(), k)
	}
	for _, k := range []Kind{KindChain, KindModel, KindLambda, KindLogger} {
		assert.True(t, k.IsFunction(), k)
	}
}

func TestPositionalAndLookup(t *testing.T) {
	sv := Positional(Str("a"), Str("b"))
	require.Len(t, sv.Elements, 2)
	assert.Equal(t, Str("b"), sv.Elements[1].Value)

	named := StructValue{Elements: []NamedValue{{Name: "k", Value: Bool(true)}}}
	v, ok := named.Lookup("k")
	assert.True(t, ok)
	assert.Equal(t, Bool(true), v)
	_, ok = named.Lookup("missing")
	assert.False(t, ok)
}
