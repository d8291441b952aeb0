package ir

// Value is the sealed value message exchanged with an executor.
// A nil Value is the empty message.
//
// Graph and Str are the variants the client marshals. Bool, Int and
// StructValue are produced inside executors and are opaque to the client.
type Value interface {
	// Variant returns the wire tag of the populated field.
	Variant() string
	value() // sealed
}

// Graph carries a computation graph.
type Graph struct {
	Node Node
}

// Str carries a string verbatim.
type Str string

// Bool carries a boolean.
type Bool bool

// Int carries a 32-bit integer.
type Int int32

// NamedValue is one element of a StructValue. Name is empty for
// positional elements.
type NamedValue struct {
	Name  string
	Value Value
}

// StructValue is an ordered tuple of values.
type StructValue struct {
	Elements []NamedValue
}

// Wire tags of the value variants.
const (
	VariantGraph  = "graph"
	VariantStr    = "str"
	VariantBool   = "bool"
	VariantInt    = "int_32"
	VariantStruct = "struct"
)

func (Graph) Variant() string       { return VariantGraph }
func (Str) Variant() string         { return VariantStr }
func (Bool) Variant() string        { return VariantBool }
func (Int) Variant() string         { return VariantInt }
func (StructValue) Variant() string { return VariantStruct }

func (Graph) value()       {}
func (Str) value()         {}
func (Bool) value()        {}
func (Int) value()         {}
func (StructValue) value() {}

// Positional builds a StructValue of unnamed elements in the given order.
func Positional(vals ...Value) StructValue {
	elems := make([]NamedValue, len(vals))
	for i, v := range vals {
		elems[i] = NamedValue{Value: v}
	}
	return StructValue{Elements: elems}
}

// Lookup returns the first element named name.
func (s StructValue) Lookup(name string) (Value, bool) {
	for _, e := range s.Elements {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}
