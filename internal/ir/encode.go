package ir

import (
	"fmt"

	"github.com/roach88/genc/internal/wire"
)

// GraphHashDomain separates graph hashes from other hashed content.
const GraphHashDomain = "genc/graph/v1"

// NodeToDoc converts n into its tagged wire envelope.
func NodeToDoc(n Node) (wire.Doc, error) {
	if n == nil {
		return nil, fmt.Errorf("cannot encode nil node")
	}
	payload, err := nodePayload(n)
	if err != nil {
		return nil, err
	}
	return wire.Map{string(n.Kind()): payload}, nil
}

func nodePayload(n Node) (wire.Doc, error) {
	switch v := n.(type) {
	case Chain:
		return nodeList(v.Steps)
	case BreakableChain:
		steps, err := nodeList(v.Steps)
		if err != nil {
			return nil, err
		}
		br, err := NodeToDoc(v.BreakIf)
		if err != nil {
			return nil, err
		}
		return wire.Map{"steps": steps, "break_if": br}, nil
	case Conditional:
		return nodeFields(map[string]Node{"condition": v.Condition, "then": v.Then, "else": v.Else})
	case LoopChainCombo:
		steps, err := nodeList(v.Steps)
		if err != nil {
			return nil, err
		}
		m := wire.Map{"steps": steps, "num_steps": wire.Int(v.NumSteps)}
		if v.BreakIf != nil {
			br, err := NodeToDoc(v.BreakIf)
			if err != nil {
				return nil, err
			}
			m["break_if"] = br
		}
		return m, nil
	case While:
		return nodeFields(map[string]Node{"condition": v.Condition, "body": v.Body})
	case Repeat:
		body, err := NodeToDoc(v.Body)
		if err != nil {
			return nil, err
		}
		return wire.Map{"num_steps": wire.Int(v.NumSteps), "body": body}, nil
	case ParallelMap:
		return NodeToDoc(v.Fn)
	case Fallback:
		return nodeList(v.Candidates)
	case Struct:
		out := make(wire.List, 0, len(v.Elements))
		for _, e := range v.Elements {
			d, err := NodeToDoc(e.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, element(e.Name, d))
		}
		return out, nil
	case Call:
		fn, err := NodeToDoc(v.Fn)
		if err != nil {
			return nil, err
		}
		m := wire.Map{"fn": fn}
		if v.Arg != nil {
			arg, err := NodeToDoc(v.Arg)
			if err != nil {
				return nil, err
			}
			m["arg"] = arg
		}
		return m, nil
	case Lambda:
		body, err := NodeToDoc(v.Body)
		if err != nil {
			return nil, err
		}
		return wire.Map{"param": wire.String(v.Param), "body": body}, nil
	case Reference:
		return wire.String(v.Name), nil
	case CustomFunction:
		return wire.String(v.URI), nil
	case Model:
		return wire.String(v.URI), nil
	case PromptTemplate:
		return wire.String(v.Template), nil
	case Logger, LogicalNot:
		return wire.Map{}, nil
	case RegexPartialMatch:
		return wire.String(v.Pattern), nil
	case Selection:
		src, err := NodeToDoc(v.Source)
		if err != nil {
			return nil, err
		}
		if v.ByName() {
			return wire.Map{"source": src, "name": wire.String(v.Name)}, nil
		}
		return wire.Map{"source": src, "index": wire.Int(v.Index)}, nil
	default:
		return nil, fmt.Errorf("cannot encode node type %T", n)
	}
}

func nodeList(ns []Node) (wire.List, error) {
	out := make(wire.List, 0, len(ns))
	for _, n := range ns {
		d, err := NodeToDoc(n)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func nodeFields(fields map[string]Node) (wire.Map, error) {
	m := make(wire.Map, len(fields))
	for k, n := range fields {
		d, err := NodeToDoc(n)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		m[k] = d
	}
	return m, nil
}

func element(name string, d wire.Doc) wire.Map {
	m := wire.Map{"value": d}
	if name != "" {
		m["name"] = wire.String(name)
	}
	return m
}

// ValueToDoc converts v into its tagged wire envelope. A nil value encodes
// as the empty object.
func ValueToDoc(v Value) (wire.Doc, error) {
	switch x := v.(type) {
	case nil:
		return wire.Map{}, nil
	case Graph:
		d, err := NodeToDoc(x.Node)
		if err != nil {
			return nil, err
		}
		return wire.Map{VariantGraph: d}, nil
	case Str:
		return wire.Map{VariantStr: wire.String(x)}, nil
	case Bool:
		return wire.Map{VariantBool: wire.Bool(x)}, nil
	case Int:
		return wire.Map{VariantInt: wire.Int(x)}, nil
	case StructValue:
		out := make(wire.List, 0, len(x.Elements))
		for _, e := range x.Elements {
			d, err := ValueToDoc(e.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, element(e.Name, d))
		}
		return wire.Map{VariantStruct: out}, nil
	default:
		return nil, fmt.Errorf("cannot encode value type %T", v)
	}
}

// MarshalNode returns the canonical JSON encoding of n.
func MarshalNode(n Node) ([]byte, error) {
	d, err := NodeToDoc(n)
	if err != nil {
		return nil, err
	}
	return wire.MarshalCanonical(d)
}

// MarshalValue returns the canonical JSON encoding of v.
func MarshalValue(v Value) ([]byte, error) {
	d, err := ValueToDoc(v)
	if err != nil {
		return nil, err
	}
	return wire.MarshalCanonical(d)
}

// GraphHash returns the content address of the graph rooted at n.
// Structurally equal graphs hash identically.
func GraphHash(n Node) (string, error) {
	d, err := NodeToDoc(n)
	if err != nil {
		return "", fmt.Errorf("marshal graph: %w", err)
	}
	return wire.HashDoc(GraphHashDomain, d)
}
