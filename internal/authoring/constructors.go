// Package authoring builds IR nodes. Every constructor validates its
// arguments against the structural rules of the node kind and copies the
// slices it receives, so the returned node shares no mutable state with
// the caller.
package authoring

import (
	"errors"
	"slices"

	"github.com/roach88/genc/internal/ir"
)

// build checks n and converts shape violations into ConstructionErrors.
func build(n ir.Node) (ir.Node, error) {
	if err := ir.CheckWellFormed(n); err != nil {
		var se *ir.ShapeError
		if errors.As(err, &se) {
			return nil, &ConstructionError{Kind: se.Kind, Field: se.Field, Message: se.Message}
		}
		return nil, &ConstructionError{Kind: n.Kind(), Message: err.Error()}
	}
	return n, nil
}

// CreateChain composes fns left to right.
func CreateChain(fns ...ir.Node) (ir.Node, error) {
	return build(ir.Chain{Steps: slices.Clone(fns)})
}

// CreateBasicChain is CreateChain under the name older callers use.
func CreateBasicChain(fns ...ir.Node) (ir.Node, error) {
	return CreateChain(fns...)
}

// CreateBreakableChain composes fns and stops at the first intermediate
// result for which breakIf holds.
func CreateBreakableChain(fns []ir.Node, breakIf ir.Node) (ir.Node, error) {
	return build(ir.BreakableChain{Steps: slices.Clone(fns), BreakIf: breakIf})
}

// CreateConditional applies then or els to the argument depending on
// condition.
func CreateConditional(condition, then, els ir.Node) (ir.Node, error) {
	return build(ir.Conditional{Condition: condition, Then: then, Else: els})
}

// CreateLoopChainCombo runs fns as a chain up to numSteps times. breakIf
// may be nil.
func CreateLoopChainCombo(fns []ir.Node, breakIf ir.Node, numSteps int) (ir.Node, error) {
	return build(ir.LoopChainCombo{Steps: slices.Clone(fns), BreakIf: breakIf, NumSteps: numSteps})
}

func CreateWhile(condition, body ir.Node) (ir.Node, error) {
	return build(ir.While{Condition: condition, Body: body})
}

func CreateRepeat(numSteps int, body ir.Node) (ir.Node, error) {
	return build(ir.Repeat{NumSteps: numSteps, Body: body})
}

func CreateParallelMap(fn ir.Node) (ir.Node, error) {
	return build(ir.ParallelMap{Fn: fn})
}

// CreateFallback tries candidates in order until one succeeds.
func CreateFallback(candidates ...ir.Node) (ir.Node, error) {
	return build(ir.Fallback{Candidates: slices.Clone(candidates)})
}

// CreateStruct builds a tuple of unnamed elements.
func CreateStruct(elements ...ir.Node) (ir.Node, error) {
	elems := make([]ir.Element, len(elements))
	for i, e := range elements {
		elems[i] = ir.Element{Value: e}
	}
	return build(ir.Struct{Elements: elems})
}

// CreateNamedStruct builds a tuple whose elements may carry names.
func CreateNamedStruct(elements ...ir.Element) (ir.Node, error) {
	return build(ir.Struct{Elements: slices.Clone(elements)})
}

// CreateCall applies fn to arg. A nil arg makes a no-argument call.
func CreateCall(fn, arg ir.Node) (ir.Node, error) {
	return build(ir.Call{Fn: fn, Arg: arg})
}

func CreateLambda(param string, body ir.Node) (ir.Node, error) {
	return build(ir.Lambda{Param: param, Body: body})
}

func CreateReference(name string) (ir.Node, error) {
	return build(ir.Reference{Name: name})
}

func CreateCustomFunction(uri string) (ir.Node, error) {
	return build(ir.CustomFunction{URI: uri})
}

func CreateModel(uri string) (ir.Node, error) {
	return build(ir.Model{URI: uri})
}

func CreatePromptTemplate(template string) (ir.Node, error) {
	return build(ir.PromptTemplate{Template: template})
}

func CreateLogger() (ir.Node, error) {
	return build(ir.Logger{})
}

// CreateRegexPartialMatch fails when pattern does not compile.
func CreateRegexPartialMatch(pattern string) (ir.Node, error) {
	return build(ir.RegexPartialMatch{Pattern: pattern})
}

func CreateLogicalNot() (ir.Node, error) {
	return build(ir.LogicalNot{})
}

// CreateSelection selects the index-th element of source.
func CreateSelection(source ir.Node, index int) (ir.Node, error) {
	return build(ir.Selection{Source: source, Index: index})
}

// CreateNamedSelection selects the element of source called name.
func CreateNamedSelection(source ir.Node, name string) (ir.Node, error) {
	if name == "" {
		return nil, &ConstructionError{Kind: ir.KindSelection, Field: "name", Message: "must not be empty"}
	}
	return build(ir.Selection{Source: source, Name: name})
}
