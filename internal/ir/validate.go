package ir

import "fmt"

// ValidationError locates a structural problem inside a graph.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks every node of the graph rooted at n and verifies that
// each reference is bound by an enclosing lambda.
func Validate(n Node) error {
	return validate(n, "$", nil)
}

func validate(n Node, path string, scope []string) error {
	if err := CheckWellFormed(n); err != nil {
		return &ValidationError{Path: path, Err: err}
	}
	if ref, ok := n.(Reference); ok {
		for i := len(scope) - 1; i >= 0; i-- {
			if scope[i] == ref.Name {
				return nil
			}
		}
		return &ValidationError{Path: path, Err: fmt.Errorf("unbound reference %q", ref.Name)}
	}
	if lam, ok := n.(Lambda); ok {
		inner := append(scope[:len(scope):len(scope)], lam.Param)
		return validate(lam.Body, path+".lambda.body", inner)
	}
	for _, c := range Children(n) {
		if err := validate(c.Node, path+"."+string(n.Kind())+c.Field, scope); err != nil {
			return err
		}
	}
	return nil
}

// Child is a direct descendant of a node together with its field path.
type Child struct {
	Field string
	Node  Node
}

// Children lists the direct child nodes of n in wire order.
func Children(n Node) []Child {
	var out []Child
	steps := func(field string, ns []Node) {
		for i, s := range ns {
			out = append(out, Child{Field: fmt.Sprintf("%s[%d]", field, i), Node: s})
		}
	}
	add := func(field string, c Node) {
		if c != nil {
			out = append(out, Child{Field: field, Node: c})
		}
	}
	switch v := n.(type) {
	case Chain:
		steps("", v.Steps)
	case BreakableChain:
		steps(".steps", v.Steps)
		add(".break_if", v.BreakIf)
	case Conditional:
		add(".condition", v.Condition)
		add(".then", v.Then)
		add(".else", v.Else)
	case LoopChainCombo:
		steps(".steps", v.Steps)
		add(".break_if", v.BreakIf)
	case While:
		add(".condition", v.Condition)
		add(".body", v.Body)
	case Repeat:
		add(".body", v.Body)
	case ParallelMap:
		add("", v.Fn)
	case Fallback:
		steps("", v.Candidates)
	case Struct:
		for i, e := range v.Elements {
			out = append(out, Child{Field: fmt.Sprintf("[%d].value", i), Node: e.Value})
		}
	case Call:
		add(".fn", v.Fn)
		add(".arg", v.Arg)
	case Lambda:
		add(".body", v.Body)
	case Selection:
		add(".source", v.Source)
	}
	return out
}
