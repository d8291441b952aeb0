package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Doc is a sealed interface over the JSON subset used on the wire.
// Only Null, String, Int, Bool, List and Map implement it.
type Doc interface {
	doc()
}

// Null is an explicit JSON null.
type Null struct{}

func (Null) doc() {}

// String is a JSON string.
type String string

func (String) doc() {}

// Int is a JSON integer. Floats are never representable.
type Int int64

func (Int) doc() {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) doc() {}

// List is a JSON array.
type List []Doc

func (List) doc() {}

// Map is a JSON object. Use SortedKeys for deterministic iteration.
type Map map[string]Doc

func (Map) doc() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Single returns the only key of a one-entry map. Tagged envelopes are
// one-entry maps, so this is how decoders find the tag.
func (m Map) Single() (string, Doc, bool) {
	if len(m) != 1 {
		return "", nil, false
	}
	for k, v := range m {
		return k, v, true
	}
	return "", nil, false
}

// compareKeysRFC8785 orders strings by UTF-16 code units.
// Go string comparison is by UTF-8 bytes, which differs above the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// Unmarshal decodes JSON into a Doc. Floats are rejected.
func Unmarshal(data []byte) (Doc, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return FromAny(raw)
}

// FromAny converts a decoded JSON or YAML tree into a Doc.
// Accepts the shapes produced by encoding/json (with UseNumber) and by
// gopkg.in/yaml.v3 (int, map[string]any).
func FromAny(v any) (Doc, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Doc:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return Int(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not allowed on the wire: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are not allowed on the wire: %v", val)
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			d, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = d
		}
		return list, nil
	case map[string]any:
		m := make(Map, len(val))
		for k, elem := range val {
			d, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = d
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToAny converts a Doc back into plain Go values (string, int64, bool,
// []any, map[string]any, nil).
func ToAny(d Doc) any {
	switch val := d.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Map:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}
