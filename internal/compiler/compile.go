package compiler

import (
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/genc/internal/authoring"
	"github.com/roach88/genc/internal/ir"
)

// ComputationField is the top-level field holding the graph.
const ComputationField = "computation"

// CompileFile compiles the CUE file at path.
func CompileFile(path string) (ir.Node, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return CompileString(path, string(src))
}

// CompileString compiles CUE source. filename is used in error positions.
func CompileString(filename, src string) (ir.Node, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return CompileValue(v)
}

// CompileValue compiles the computation field of v into a graph.
//
// The computation has the same shape as the JSON wire form, e.g.:
//
//	computation: chain: [
//		{prompt_template: "Tell me about {topic}"},
//		{model: "test_model"},
//	]
//
// Every node goes through the authoring constructors, so compiled graphs
// obey the same structural rules as hand-built ones.
func CompileValue(v cue.Value) (ir.Node, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	comp := v.LookupPath(cue.ParsePath(ComputationField))
	if !comp.Exists() {
		return nil, &CompileError{
			Field:   ComputationField,
			Message: "computation is required",
			Pos:     v.Pos(),
		}
	}
	if err := comp.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	return compileNode(comp, ComputationField)
}

func compileNode(v cue.Value, field string) (ir.Node, error) {
	tag, payload, err := envelope(v, field)
	if err != nil {
		return nil, err
	}
	field = field + "." + tag

	var n ir.Node
	switch ir.Kind(tag) {
	case ir.KindChain:
		steps, err := nodeList(payload, field)
		if err != nil {
			return nil, err
		}
		n, err = authoring.CreateChain(steps...)
		return built(n, err, payload, field)

	case ir.KindBreakableChain:
		m, err := members(payload, field, []string{"steps", "break_if"}, nil)
		if err != nil {
			return nil, err
		}
		steps, err := nodeList(m["steps"], field+".steps")
		if err != nil {
			return nil, err
		}
		breakIf, err := compileNode(m["break_if"], field+".break_if")
		if err != nil {
			return nil, err
		}
		n, err = authoring.CreateBreakableChain(steps, breakIf)
		return built(n, err, payload, field)

	case ir.KindConditional:
		m, err := members(payload, field, []string{"condition", "then", "else"}, nil)
		if err != nil {
			return nil, err
		}
		parts, err := compileMembers(m, field, "condition", "then", "else")
		if err != nil {
			return nil, err
		}
		n, err = authoring.CreateConditional(parts[0], parts[1], parts[2])
		return built(n, err, payload, field)

	case ir.KindLoopChainCombo:
		m, err := members(payload, field, []string{"steps", "num_steps"}, []string{"break_if"})
		if err != nil {
			return nil, err
		}
		steps, err := nodeList(m["steps"], field+".steps")
		if err != nil {
			return nil, err
		}
		var breakIf ir.Node
		if bv, ok := m["break_if"]; ok {
			if breakIf, err = compileNode(bv, field+".break_if"); err != nil {
				return nil, err
			}
		}
		count, err := integer(m["num_steps"], field+".num_steps")
		if err != nil {
			return nil, err
		}
		n, err = authoring.CreateLoopChainCombo(steps, breakIf, count)
		return built(n, err, payload, field)

	case ir.KindWhile:
		m, err := members(payload, field, []string{"condition", "body"}, nil)
		if err != nil {
			return nil, err
		}
		parts, err := compileMembers(m, field, "condition", "body")
		if err != nil {
			return nil, err
		}
		n, err = authoring.CreateWhile(parts[0], parts[1])
		return built(n, err, payload, field)

	case ir.KindRepeat:
		m, err := members(payload, field, []string{"num_steps", "body"}, nil)
		if err != nil {
			return nil, err
		}
		count, err := integer(m["num_steps"], field+".num_steps")
		if err != nil {
			return nil, err
		}
		body, err := compileNode(m["body"], field+".body")
		if err != nil {
			return nil, err
		}
		n, err = authoring.CreateRepeat(count, body)
		return built(n, err, payload, field)

	case ir.KindParallelMap:
		fn, err := compileNode(payload, field)
		if err != nil {
			return nil, err
		}
		n, err = authoring.CreateParallelMap(fn)
		return built(n, err, payload, field)

	case ir.KindFallback:
		candidates, err := nodeList(payload, field)
		if err != nil {
			return nil, err
		}
		n, err = authoring.CreateFallback(candidates...)
		return built(n, err, payload, field)

	case ir.KindStruct:
		elements, err := structElements(payload, field)
		if err != nil {
			return nil, err
		}
		n, err = authoring.CreateNamedStruct(elements...)
		return built(n, err, payload, field)

	case ir.KindCall:
		m, err := members(payload, field, []string{"fn"}, []string{"arg"})
		if err != nil {
			return nil, err
		}
		fn, err := compileNode(m["fn"], field+".fn")
		if err != nil {
			return nil, err
		}
		var arg ir.Node
		if av, ok := m["arg"]; ok {
			if arg, err = compileNode(av, field+".arg"); err != nil {
				return nil, err
			}
		}
		n, err = authoring.CreateCall(fn, arg)
		return built(n, err, payload, field)

	case ir.KindLambda:
		m, err := members(payload, field, []string{"param", "body"}, nil)
		if err != nil {
			return nil, err
		}
		param, err := str(m["param"], field+".param")
		if err != nil {
			return nil, err
		}
		body, err := compileNode(m["body"], field+".body")
		if err != nil {
			return nil, err
		}
		n, err = authoring.CreateLambda(param, body)
		return built(n, err, payload, field)

	case ir.KindReference, ir.KindCustomFunction, ir.KindModel, ir.KindPromptTemplate, ir.KindRegexPartialMatch:
		s, err := str(payload, field)
		if err != nil {
			return nil, err
		}
		n, err = stringLeaf(ir.Kind(tag), s)
		return built(n, err, payload, field)

	case ir.KindLogger, ir.KindLogicalNot:
		if _, err := members(payload, field, nil, nil); err != nil {
			return nil, err
		}
		if ir.Kind(tag) == ir.KindLogger {
			n, err = authoring.CreateLogger()
		} else {
			n, err = authoring.CreateLogicalNot()
		}
		return built(n, err, payload, field)

	case ir.KindSelection:
		m, err := members(payload, field, []string{"source"}, []string{"index", "name"})
		if err != nil {
			return nil, err
		}
		src, err := compileNode(m["source"], field+".source")
		if err != nil {
			return nil, err
		}
		iv, hasIndex := m["index"]
		nv, hasName := m["name"]
		switch {
		case hasIndex == hasName:
			return nil, &CompileError{Field: field, Message: "exactly one of index or name is required", Pos: payload.Pos()}
		case hasName:
			name, err := str(nv, field+".name")
			if err != nil {
				return nil, err
			}
			n, err = authoring.CreateNamedSelection(src, name)
			return built(n, err, payload, field)
		default:
			idx, err := integer(iv, field+".index")
			if err != nil {
				return nil, err
			}
			n, err = authoring.CreateSelection(src, idx)
			return built(n, err, payload, field)
		}
	}

	return nil, &CompileError{
		Field:   field,
		Message: fmt.Sprintf("unknown node kind %q", tag),
		Pos:     v.Pos(),
	}
}

func stringLeaf(k ir.Kind, s string) (ir.Node, error) {
	switch k {
	case ir.KindReference:
		return authoring.CreateReference(s)
	case ir.KindCustomFunction:
		return authoring.CreateCustomFunction(s)
	case ir.KindModel:
		return authoring.CreateModel(s)
	case ir.KindPromptTemplate:
		return authoring.CreatePromptTemplate(s)
	default:
		return authoring.CreateRegexPartialMatch(s)
	}
}

// built turns a constructor failure into a positioned CompileError.
func built(n ir.Node, err error, v cue.Value, field string) (ir.Node, error) {
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos(), Err: err}
	}
	return n, nil
}

// envelope returns the single kind tag of a node struct and its payload.
func envelope(v cue.Value, field string) (string, cue.Value, error) {
	if v.IncompleteKind() != cue.StructKind {
		return "", cue.Value{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("expected a node, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	iter, err := v.Fields()
	if err != nil {
		return "", cue.Value{}, formatCUEError(err)
	}
	var tags []string
	var payload cue.Value
	for iter.Next() {
		tags = append(tags, iter.Label())
		payload = iter.Value()
	}
	if len(tags) != 1 {
		return "", cue.Value{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("a node has exactly one kind field, got %d %v", len(tags), tags),
			Pos:     v.Pos(),
		}
	}
	return tags[0], payload, nil
}

// members returns the fields of a payload struct, rejecting missing
// required fields and unknown ones.
func members(v cue.Value, field string, required, optional []string) (map[string]cue.Value, error) {
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: field, Message: "expected a struct", Pos: v.Pos()}
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := make(map[string]cue.Value)
	for iter.Next() {
		label := iter.Label()
		if !slices.Contains(required, label) && !slices.Contains(optional, label) {
			return nil, &CompileError{
				Field:   field + "." + label,
				Message: "unknown field",
				Pos:     iter.Value().Pos(),
			}
		}
		out[label] = iter.Value()
	}
	for _, name := range required {
		if _, ok := out[name]; !ok {
			return nil, &CompileError{
				Field:   field + "." + name,
				Message: name + " is required",
				Pos:     v.Pos(),
			}
		}
	}
	return out, nil
}

func compileMembers(m map[string]cue.Value, field string, names ...string) ([]ir.Node, error) {
	out := make([]ir.Node, len(names))
	for i, name := range names {
		n, err := compileNode(m[name], field+"."+name)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func nodeList(v cue.Value, field string) ([]ir.Node, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "expected a list of nodes", Pos: v.Pos()}
	}
	var out []ir.Node
	for i := 0; iter.Next(); i++ {
		n, err := compileNode(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func structElements(v cue.Value, field string) ([]ir.Element, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "expected a list of elements", Pos: v.Pos()}
	}
	var out []ir.Element
	for i := 0; iter.Next(); i++ {
		elField := fmt.Sprintf("%s[%d]", field, i)
		m, err := members(iter.Value(), elField, []string{"value"}, []string{"name"})
		if err != nil {
			return nil, err
		}
		var el ir.Element
		if nv, ok := m["name"]; ok {
			if el.Name, err = str(nv, elField+".name"); err != nil {
				return nil, err
			}
		}
		if el.Value, err = compileNode(m["value"], elField+".value"); err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

func str(v cue.Value, field string) (string, error) {
	s, err := v.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "expected a string", Pos: v.Pos()}
	}
	return s, nil
}

// integer reads an int. Floats are rejected rather than truncated.
func integer(v cue.Value, field string) (int, error) {
	switch v.IncompleteKind() {
	case cue.IntKind:
	case cue.FloatKind, cue.NumberKind:
		return 0, &CompileError{Field: field, Message: "float values are not supported, use an int", Pos: v.Pos()}
	default:
		return 0, &CompileError{Field: field, Message: "expected an int", Pos: v.Pos()}
	}
	i, err := v.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	if i < -1<<31 || i > 1<<31-1 {
		return 0, &CompileError{Field: field, Message: "value out of int32 range", Pos: v.Pos()}
	}
	return int(i), nil
}
