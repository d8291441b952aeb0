package authoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genc/internal/ir"
)

func TestConstructorsBuildNodes(t *testing.T) {
	model := Must(CreateModel("test_model"))
	logger := Must(CreateLogger())
	isDone := Must(CreateRegexPartialMatch("DONE"))
	x := Must(CreateReference("x"))

	tests := []struct {
		name string
		got  func() (ir.Node, error)
		want ir.Node
	}{
		{"chain", func() (ir.Node, error) { return CreateChain(model, logger) },
			ir.Chain{Steps: []ir.Node{model, logger}}},
		{"breakable_chain", func() (ir.Node, error) { return CreateBreakableChain([]ir.Node{model}, isDone) },
			ir.BreakableChain{Steps: []ir.Node{model}, BreakIf: isDone}},
		{"conditional", func() (ir.Node, error) { return CreateConditional(isDone, logger, model) },
			ir.Conditional{Condition: isDone, Then: logger, Else: model}},
		{"loop_chain_combo", func() (ir.Node, error) { return CreateLoopChainCombo([]ir.Node{model}, nil, 2) },
			ir.LoopChainCombo{Steps: []ir.Node{model}, NumSteps: 2}},
		{"while", func() (ir.Node, error) { return CreateWhile(isDone, model) },
			ir.While{Condition: isDone, Body: model}},
		{"repeat", func() (ir.Node, error) { return CreateRepeat(3, logger) },
			ir.Repeat{NumSteps: 3, Body: logger}},
		{"parallel_map", func() (ir.Node, error) { return CreateParallelMap(model) },
			ir.ParallelMap{Fn: model}},
		{"fallback", func() (ir.Node, error) { return CreateFallback(model, logger) },
			ir.Fallback{Candidates: []ir.Node{model, logger}}},
		{"struct", func() (ir.Node, error) { return CreateStruct(x, model) },
			ir.Struct{Elements: []ir.Element{{Value: x}, {Value: model}}}},
		{"named struct", func() (ir.Node, error) { return CreateNamedStruct(ir.Element{Name: "q", Value: x}) },
			ir.Struct{Elements: []ir.Element{{Name: "q", Value: x}}}},
		{"call", func() (ir.Node, error) { return CreateCall(model, x) },
			ir.Call{Fn: model, Arg: x}},
		{"call without arg", func() (ir.Node, error) { return CreateCall(model, nil) },
			ir.Call{Fn: model}},
		{"lambda", func() (ir.Node, error) { return CreateLambda("x", x) },
			ir.Lambda{Param: "x", Body: x}},
		{"custom_function", func() (ir.Node, error) { return CreateCustomFunction("lua/upper") },
			ir.CustomFunction{URI: "lua/upper"}},
		{"prompt_template", func() (ir.Node, error) { return CreatePromptTemplate("Hi {name}") },
			ir.PromptTemplate{Template: "Hi {name}"}},
		{"logical_not", CreateLogicalNot, ir.LogicalNot{}},
		{"selection", func() (ir.Node, error) { return CreateSelection(x, 1) },
			ir.Selection{Source: x, Index: 1}},
		{"named selection", func() (ir.Node, error) { return CreateNamedSelection(x, "k") },
			ir.Selection{Source: x, Name: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.got()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConstructorsRejectInvalidArguments(t *testing.T) {
	model := Must(CreateModel("m"))
	tuple := Must(CreateStruct(model))

	tests := []struct {
		name      string
		build     func() (ir.Node, error)
		wantKind  ir.Kind
		wantField string
	}{
		{"empty chain", func() (ir.Node, error) { return CreateChain() }, ir.KindChain, "steps"},
		{"nil chain step", func() (ir.Node, error) { return CreateChain(model, nil) }, ir.KindChain, "steps[1]"},
		{"struct as chain step", func() (ir.Node, error) { return CreateChain(tuple) }, ir.KindChain, "steps[0]"},
		{"missing break_if", func() (ir.Node, error) { return CreateBreakableChain([]ir.Node{model}, nil) }, ir.KindBreakableChain, "break_if"},
		{"missing branch", func() (ir.Node, error) { return CreateConditional(model, model, nil) }, ir.KindConditional, "else"},
		{"loop zero rounds", func() (ir.Node, error) { return CreateLoopChainCombo([]ir.Node{model}, nil, 0) }, ir.KindLoopChainCombo, "num_steps"},
		{"while missing body", func() (ir.Node, error) { return CreateWhile(model, nil) }, ir.KindWhile, "body"},
		{"negative repeat", func() (ir.Node, error) { return CreateRepeat(-1, model) }, ir.KindRepeat, "num_steps"},
		{"parallel_map over struct", func() (ir.Node, error) { return CreateParallelMap(tuple) }, ir.KindParallelMap, "fn"},
		{"empty fallback", func() (ir.Node, error) { return CreateFallback() }, ir.KindFallback, "candidates"},
		{"duplicate names", func() (ir.Node, error) {
			return CreateNamedStruct(ir.Element{Name: "a", Value: model}, ir.Element{Name: "a", Value: model})
		}, ir.KindStruct, "elements[1]"},
		{"call missing fn", func() (ir.Node, error) { return CreateCall(nil, model) }, ir.KindCall, "fn"},
		{"lambda without param", func() (ir.Node, error) { return CreateLambda("", model) }, ir.KindLambda, "param"},
		{"empty reference", func() (ir.Node, error) { return CreateReference("") }, ir.KindReference, "name"},
		{"empty model uri", func() (ir.Node, error) { return CreateModel("") }, ir.KindModel, "uri"},
		{"empty function uri", func() (ir.Node, error) { return CreateCustomFunction("") }, ir.KindCustomFunction, "uri"},
		{"bad regex", func() (ir.Node, error) { return CreateRegexPartialMatch("[a-") }, ir.KindRegexPartialMatch, "pattern"},
		{"selection from function", func() (ir.Node, error) { return CreateSelection(model, 0) }, ir.KindSelection, "source"},
		{"negative selection", func() (ir.Node, error) { return CreateSelection(tuple, -1) }, ir.KindSelection, "index"},
		{"empty selection name", func() (ir.Node, error) { return CreateNamedSelection(tuple, "") }, ir.KindSelection, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := tt.build()
			require.Error(t, err)
			assert.Nil(t, n)
			assert.True(t, errors.Is(err, ErrInvalidArgument))
			assert.True(t, IsConstructionError(err))

			var ce *ConstructionError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.wantKind, ce.Kind)
			assert.Equal(t, tt.wantField, ce.Field)
		})
	}
}

func TestCreateBasicChainMatchesCreateChain(t *testing.T) {
	model := Must(CreateModel("test_model"))
	logger := Must(CreateLogger())

	basic, err := CreateBasicChain(model, logger)
	require.NoError(t, err)
	assert.Equal(t, Must(CreateChain(model, logger)), basic)

	_, err = CreateBasicChain()
	var ce *ConstructionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ir.KindChain, ce.Kind)
}

func TestConstructorsDoNotAliasInputs(t *testing.T) {
	a := Must(CreateModel("a"))
	b := Must(CreateModel("b"))
	steps := []ir.Node{a, b}

	chain, err := CreateChain(steps...)
	require.NoError(t, err)
	steps[0] = b

	assert.Equal(t, a, chain.(ir.Chain).Steps[0])
}

func TestConstructedGraphsEncodeLikeDecodedGraphs(t *testing.T) {
	g := Must(CreateChain(
		Must(CreatePromptTemplate("Tell me about {topic}")),
		Must(CreateModel("test_model")),
		Must(CreateConditional(
			Must(CreateRegexPartialMatch("test model")),
			Must(CreateLogger()),
			Must(CreateRepeat(2, Must(CreateLogger()))),
		)),
	))
	data, err := ir.MarshalNode(g)
	require.NoError(t, err)

	decoded, err := ir.UnmarshalNode(data)
	require.NoError(t, err)
	assert.Equal(t, g, decoded)
}

func TestMustPanics(t *testing.T) {
	assert.Panics(t, func() { Must(CreateChain()) })
}
