package ir

import (
	"errors"
	"fmt"
	"regexp"
)

// ShapeError reports a node whose immediate payload breaks a structural rule.
type ShapeError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *ShapeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Kind, e.Field, e.Message)
}

func shapeErr(k Kind, field, format string, args ...any) *ShapeError {
	return &ShapeError{Kind: k, Field: field, Message: fmt.Sprintf(format, args...)}
}

// CheckWellFormed verifies the structural rules of n's own payload.
// Children are checked for presence and kind only; use Validate for a
// whole graph.
func CheckWellFormed(n Node) error {
	if n == nil {
		return errors.New("node is nil")
	}
	switch v := n.(type) {
	case Chain:
		return checkSteps(KindChain, "steps", v.Steps)
	case BreakableChain:
		if err := checkSteps(KindBreakableChain, "steps", v.Steps); err != nil {
			return err
		}
		return checkFunction(KindBreakableChain, "break_if", v.BreakIf)
	case Conditional:
		if err := checkFunction(KindConditional, "condition", v.Condition); err != nil {
			return err
		}
		if err := checkFunction(KindConditional, "then", v.Then); err != nil {
			return err
		}
		return checkFunction(KindConditional, "else", v.Else)
	case LoopChainCombo:
		if err := checkSteps(KindLoopChainCombo, "steps", v.Steps); err != nil {
			return err
		}
		if v.BreakIf != nil {
			if err := checkFunction(KindLoopChainCombo, "break_if", v.BreakIf); err != nil {
				return err
			}
		}
		if v.NumSteps < 1 {
			return shapeErr(KindLoopChainCombo, "num_steps", "must be at least 1, got %d", v.NumSteps)
		}
		return nil
	case While:
		if err := checkFunction(KindWhile, "condition", v.Condition); err != nil {
			return err
		}
		return checkFunction(KindWhile, "body", v.Body)
	case Repeat:
		if v.NumSteps < 0 {
			return shapeErr(KindRepeat, "num_steps", "must not be negative, got %d", v.NumSteps)
		}
		return checkFunction(KindRepeat, "body", v.Body)
	case ParallelMap:
		return checkFunction(KindParallelMap, "fn", v.Fn)
	case Fallback:
		return checkSteps(KindFallback, "candidates", v.Candidates)
	case Struct:
		seen := make(map[string]bool, len(v.Elements))
		for i, e := range v.Elements {
			if e.Value == nil {
				return shapeErr(KindStruct, fmt.Sprintf("elements[%d]", i), "value is required")
			}
			if e.Name == "" {
				continue
			}
			if seen[e.Name] {
				return shapeErr(KindStruct, fmt.Sprintf("elements[%d]", i), "duplicate name %q", e.Name)
			}
			seen[e.Name] = true
		}
		return nil
	case Call:
		return checkFunction(KindCall, "fn", v.Fn)
	case Lambda:
		if v.Param == "" {
			return shapeErr(KindLambda, "param", "must not be empty")
		}
		if v.Body == nil {
			return shapeErr(KindLambda, "body", "is required")
		}
		return nil
	case Reference:
		if v.Name == "" {
			return shapeErr(KindReference, "name", "must not be empty")
		}
		return nil
	case CustomFunction:
		if v.URI == "" {
			return shapeErr(KindCustomFunction, "uri", "must not be empty")
		}
		return nil
	case Model:
		if v.URI == "" {
			return shapeErr(KindModel, "uri", "must not be empty")
		}
		return nil
	case PromptTemplate:
		return nil
	case Logger, LogicalNot:
		return nil
	case RegexPartialMatch:
		if _, err := regexp.Compile(v.Pattern); err != nil {
			return shapeErr(KindRegexPartialMatch, "pattern", "%v", err)
		}
		return nil
	case Selection:
		if v.Source == nil {
			return shapeErr(KindSelection, "source", "is required")
		}
		if !v.Source.Kind().canBeStruct() {
			return shapeErr(KindSelection, "source", "%s cannot produce a struct", v.Source.Kind())
		}
		if v.Name == "" && v.Index < 0 {
			return shapeErr(KindSelection, "index", "must not be negative, got %d", v.Index)
		}
		return nil
	default:
		return fmt.Errorf("unknown node type %T", n)
	}
}

func checkSteps(k Kind, field string, steps []Node) error {
	if len(steps) == 0 {
		return shapeErr(k, field, "must not be empty")
	}
	for i, s := range steps {
		if err := checkFunction(k, fmt.Sprintf("%s[%d]", field, i), s); err != nil {
			return err
		}
	}
	return nil
}

func checkFunction(k Kind, field string, n Node) error {
	if n == nil {
		return shapeErr(k, field, "is required")
	}
	if !n.Kind().canBeFunction() {
		return shapeErr(k, field, "%s is not callable", n.Kind())
	}
	return nil
}
