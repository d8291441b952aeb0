package ir

import (
	"fmt"
	"math"

	"github.com/roach88/genc/internal/wire"
)

// DecodeError locates a malformed wire document.
type DecodeError struct {
	Path    string
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Path, e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(path, format string, args ...any) *DecodeError {
	return &DecodeError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// UnmarshalNode parses JSON bytes into a node.
func UnmarshalNode(data []byte) (Node, error) {
	d, err := wire.Unmarshal(data)
	if err != nil {
		return nil, &DecodeError{Path: "$", Message: err.Error(), Err: err}
	}
	return DecodeNode(d)
}

// UnmarshalValue parses JSON bytes into a value.
func UnmarshalValue(data []byte) (Value, error) {
	d, err := wire.Unmarshal(data)
	if err != nil {
		return nil, &DecodeError{Path: "$", Message: err.Error(), Err: err}
	}
	return DecodeValue(d)
}

// DecodeNode converts a tagged envelope into a node. Every decoded node
// passes CheckWellFormed.
func DecodeNode(d wire.Doc) (Node, error) {
	return decodeNode(d, "$")
}

func decodeNode(d wire.Doc, path string) (Node, error) {
	m, ok := d.(wire.Map)
	if !ok {
		return nil, decodeErr(path, "node must be an object")
	}
	tag, payload, ok := m.Single()
	if !ok {
		return nil, decodeErr(path, "node must have exactly one key, got %d", len(m))
	}
	path = path + "." + tag
	n, err := decodePayload(Kind(tag), payload, path)
	if err != nil {
		return nil, err
	}
	if err := CheckWellFormed(n); err != nil {
		return nil, &DecodeError{Path: path, Message: err.Error(), Err: err}
	}
	return n, nil
}

func decodePayload(k Kind, d wire.Doc, path string) (Node, error) {
	switch k {
	case KindChain:
		steps, err := decodeList(d, path)
		if err != nil {
			return nil, err
		}
		return Chain{Steps: steps}, nil
	case KindBreakableChain:
		m, err := fields(d, path, []string{"steps", "break_if"}, nil)
		if err != nil {
			return nil, err
		}
		steps, err := decodeList(m["steps"], path+".steps")
		if err != nil {
			return nil, err
		}
		br, err := decodeNode(m["break_if"], path+".break_if")
		if err != nil {
			return nil, err
		}
		return BreakableChain{Steps: steps, BreakIf: br}, nil
	case KindConditional:
		m, err := fields(d, path, []string{"condition", "then", "else"}, nil)
		if err != nil {
			return nil, err
		}
		var c Conditional
		if c.Condition, err = decodeNode(m["condition"], path+".condition"); err != nil {
			return nil, err
		}
		if c.Then, err = decodeNode(m["then"], path+".then"); err != nil {
			return nil, err
		}
		if c.Else, err = decodeNode(m["else"], path+".else"); err != nil {
			return nil, err
		}
		return c, nil
	case KindLoopChainCombo:
		m, err := fields(d, path, []string{"steps", "num_steps"}, []string{"break_if"})
		if err != nil {
			return nil, err
		}
		var l LoopChainCombo
		if l.Steps, err = decodeList(m["steps"], path+".steps"); err != nil {
			return nil, err
		}
		if l.NumSteps, err = decodeInt(m["num_steps"], path+".num_steps"); err != nil {
			return nil, err
		}
		if br, ok := m["break_if"]; ok {
			if l.BreakIf, err = decodeNode(br, path+".break_if"); err != nil {
				return nil, err
			}
		}
		return l, nil
	case KindWhile:
		m, err := fields(d, path, []string{"condition", "body"}, nil)
		if err != nil {
			return nil, err
		}
		var w While
		if w.Condition, err = decodeNode(m["condition"], path+".condition"); err != nil {
			return nil, err
		}
		if w.Body, err = decodeNode(m["body"], path+".body"); err != nil {
			return nil, err
		}
		return w, nil
	case KindRepeat:
		m, err := fields(d, path, []string{"num_steps", "body"}, nil)
		if err != nil {
			return nil, err
		}
		var r Repeat
		if r.NumSteps, err = decodeInt(m["num_steps"], path+".num_steps"); err != nil {
			return nil, err
		}
		if r.Body, err = decodeNode(m["body"], path+".body"); err != nil {
			return nil, err
		}
		return r, nil
	case KindParallelMap:
		fn, err := decodeNode(d, path)
		if err != nil {
			return nil, err
		}
		return ParallelMap{Fn: fn}, nil
	case KindFallback:
		cands, err := decodeList(d, path)
		if err != nil {
			return nil, err
		}
		return Fallback{Candidates: cands}, nil
	case KindStruct:
		l, ok := d.(wire.List)
		if !ok {
			return nil, decodeErr(path, "expected list of elements")
		}
		s := Struct{Elements: make([]Element, 0, len(l))}
		for i, item := range l {
			p := fmt.Sprintf("%s[%d]", path, i)
			name, value, err := decodeElement(item, p)
			if err != nil {
				return nil, err
			}
			n, err := decodeNode(value, p+".value")
			if err != nil {
				return nil, err
			}
			s.Elements = append(s.Elements, Element{Name: name, Value: n})
		}
		return s, nil
	case KindCall:
		m, err := fields(d, path, []string{"fn"}, []string{"arg"})
		if err != nil {
			return nil, err
		}
		var c Call
		if c.Fn, err = decodeNode(m["fn"], path+".fn"); err != nil {
			return nil, err
		}
		if arg, ok := m["arg"]; ok {
			if c.Arg, err = decodeNode(arg, path+".arg"); err != nil {
				return nil, err
			}
		}
		return c, nil
	case KindLambda:
		m, err := fields(d, path, []string{"param", "body"}, nil)
		if err != nil {
			return nil, err
		}
		var l Lambda
		if l.Param, err = decodeString(m["param"], path+".param"); err != nil {
			return nil, err
		}
		if l.Body, err = decodeNode(m["body"], path+".body"); err != nil {
			return nil, err
		}
		return l, nil
	case KindReference:
		s, err := decodeString(d, path)
		return Reference{Name: s}, err
	case KindCustomFunction:
		s, err := decodeString(d, path)
		return CustomFunction{URI: s}, err
	case KindModel:
		s, err := decodeString(d, path)
		return Model{URI: s}, err
	case KindPromptTemplate:
		s, err := decodeString(d, path)
		return PromptTemplate{Template: s}, err
	case KindRegexPartialMatch:
		s, err := decodeString(d, path)
		return RegexPartialMatch{Pattern: s}, err
	case KindLogger:
		if _, err := fields(d, path, nil, nil); err != nil {
			return nil, err
		}
		return Logger{}, nil
	case KindLogicalNot:
		if _, err := fields(d, path, nil, nil); err != nil {
			return nil, err
		}
		return LogicalNot{}, nil
	case KindSelection:
		m, err := fields(d, path, []string{"source"}, []string{"index", "name"})
		if err != nil {
			return nil, err
		}
		_, hasIndex := m["index"]
		_, hasName := m["name"]
		if hasIndex == hasName {
			return nil, decodeErr(path, "exactly one of index or name is required")
		}
		var s Selection
		if s.Source, err = decodeNode(m["source"], path+".source"); err != nil {
			return nil, err
		}
		if hasIndex {
			s.Index, err = decodeInt(m["index"], path+".index")
		} else {
			s.Name, err = decodeString(m["name"], path+".name")
			if err == nil && s.Name == "" {
				err = decodeErr(path+".name", "must not be empty")
			}
		}
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, decodeErr(path, "unknown node kind %q", string(k))
	}
}

// DecodeValue converts a tagged envelope into a value. The empty object
// decodes to nil.
func DecodeValue(d wire.Doc) (Value, error) {
	return decodeValue(d, "$")
}

func decodeValue(d wire.Doc, path string) (Value, error) {
	m, ok := d.(wire.Map)
	if !ok {
		return nil, decodeErr(path, "value must be an object")
	}
	if len(m) == 0 {
		return nil, nil
	}
	tag, payload, ok := m.Single()
	if !ok {
		return nil, decodeErr(path, "value must have at most one key, got %d", len(m))
	}
	path = path + "." + tag
	switch tag {
	case VariantGraph:
		n, err := decodeNode(payload, path)
		if err != nil {
			return nil, err
		}
		return Graph{Node: n}, nil
	case VariantStr:
		s, err := decodeString(payload, path)
		if err != nil {
			return nil, err
		}
		return Str(s), nil
	case VariantBool:
		b, ok := payload.(wire.Bool)
		if !ok {
			return nil, decodeErr(path, "expected boolean")
		}
		return Bool(b), nil
	case VariantInt:
		i, ok := payload.(wire.Int)
		if !ok || i < math.MinInt32 || i > math.MaxInt32 {
			return nil, decodeErr(path, "expected 32-bit integer")
		}
		return Int(i), nil
	case VariantStruct:
		l, ok := payload.(wire.List)
		if !ok {
			return nil, decodeErr(path, "expected list of elements")
		}
		sv := StructValue{Elements: make([]NamedValue, 0, len(l))}
		for i, item := range l {
			p := fmt.Sprintf("%s[%d]", path, i)
			name, raw, err := decodeElement(item, p)
			if err != nil {
				return nil, err
			}
			v, err := decodeValue(raw, p+".value")
			if err != nil {
				return nil, err
			}
			sv.Elements = append(sv.Elements, NamedValue{Name: name, Value: v})
		}
		return sv, nil
	default:
		return nil, decodeErr(path, "unknown value variant %q", tag)
	}
}

// fields checks that d is an object holding every required key, no keys
// outside required and optional, and returns it.
func fields(d wire.Doc, path string, required, optional []string) (wire.Map, error) {
	m, ok := d.(wire.Map)
	if !ok {
		return nil, decodeErr(path, "expected object")
	}
	allowed := make(map[string]bool, len(required)+len(optional))
	for _, k := range required {
		if _, ok := m[k]; !ok {
			return nil, decodeErr(path, "missing field %q", k)
		}
		allowed[k] = true
	}
	for _, k := range optional {
		allowed[k] = true
	}
	for _, k := range m.SortedKeys() {
		if !allowed[k] {
			return nil, decodeErr(path, "unknown field %q", k)
		}
	}
	return m, nil
}

func decodeElement(d wire.Doc, path string) (string, wire.Doc, error) {
	m, err := fields(d, path, []string{"value"}, []string{"name"})
	if err != nil {
		return "", nil, err
	}
	var name string
	if raw, ok := m["name"]; ok {
		if name, err = decodeString(raw, path+".name"); err != nil {
			return "", nil, err
		}
	}
	return name, m["value"], nil
}

func decodeList(d wire.Doc, path string) ([]Node, error) {
	l, ok := d.(wire.List)
	if !ok {
		return nil, decodeErr(path, "expected list of nodes")
	}
	out := make([]Node, 0, len(l))
	for i, item := range l {
		n, err := decodeNode(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func decodeString(d wire.Doc, path string) (string, error) {
	s, ok := d.(wire.String)
	if !ok {
		return "", decodeErr(path, "expected string")
	}
	return string(s), nil
}

func decodeInt(d wire.Doc, path string) (int, error) {
	i, ok := d.(wire.Int)
	if !ok {
		return 0, decodeErr(path, "expected integer")
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, decodeErr(path, "integer %d out of range", int64(i))
	}
	return int(i), nil
}
