package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	m := Map{
		"zebra": String("z"),
		"apple": Int(1),
		"mango": List{Bool(true), String("x")},
	}

	data, err := MarshalCanonical(m)
	require.NoError(t, err)
	assert.Equal(t, `{"apple":1,"mango":[true,"x"],"zebra":"z"}`, string(data))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	data, err := MarshalCanonical(String("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(data))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	data, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(data))

	// A literal backslash followed by "u2028" text stays escaped.
	data, err = MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(data))
}

func TestMarshalCanonicalKeepsDecomposedStrings(t *testing.T) {
	// "e" + combining acute accent and the precomposed form stay distinct.
	decomposed, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	composed, err := MarshalCanonical(String("\u00e9"))
	require.NoError(t, err)
	assert.NotEqual(t, composed, decomposed)
	assert.Equal(t, "\"e\u0301\"", string(decomposed))

	d, err := Unmarshal(decomposed)
	require.NoError(t, err)
	assert.Equal(t, String("e\u0301"), d)
}

func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(Map{"a": Null{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null is forbidden")

	_, err = MarshalCanonical(nil)
	require.Error(t, err)
}

func TestSortedKeysUTF16Order(t *testing.T) {
	m := Map{"a": Int(1), "A": Int(2), "aa": Int(3), "Aa": Int(4)}
	assert.Equal(t, []string{"A", "Aa", "a", "aa"}, m.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b string
		sign int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"aa", "a", 1},
		{"", "a", -1},
		// U+FF61 sorts before U+1F600 in UTF-8 but after it in UTF-16.
		{"\uFF61", "\U0001F600", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got := compareKeysRFC8785(tt.a, tt.b)
			switch {
			case tt.sign < 0:
				assert.Less(t, got, 0)
			case tt.sign > 0:
				assert.Greater(t, got, 0)
			default:
				assert.Equal(t, 0, got)
			}
		})
	}
}

func TestUnmarshalRejectsFloats(t *testing.T) {
	for _, input := range []string{`3.14`, `1e10`, `{"a":[1,2.5]}`} {
		t.Run(input, func(t *testing.T) {
			_, err := Unmarshal([]byte(input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "floats are not allowed")
		})
	}
}

func TestUnmarshalRoundTrip(t *testing.T) {
	input := `{"chain":[{"model":"test_model"},{"repeat":{"body":{"logger":{}},"num_steps":2}}]}`

	d, err := Unmarshal([]byte(input))
	require.NoError(t, err)

	out, err := MarshalCanonical(d)
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestUnmarshalTrailingData(t *testing.T) {
	_, err := Unmarshal([]byte(`{"a":1} {"b":2}`))
	require.Error(t, err)
}

func TestFromAnyYAMLShapes(t *testing.T) {
	d, err := FromAny(map[string]any{
		"n":    7,
		"s":    "x",
		"list": []any{true, nil},
	})
	require.NoError(t, err)
	assert.Equal(t, Map{
		"n":    Int(7),
		"s":    String("x"),
		"list": List{Bool(true), Null{}},
	}, d)

	_, err = FromAny(map[string]any{"f": 1.5})
	require.Error(t, err)

	_, err = FromAny(struct{}{})
	require.Error(t, err)
}

func TestSingle(t *testing.T) {
	k, v, ok := Map{"model": String("m")}.Single()
	require.True(t, ok)
	assert.Equal(t, "model", k)
	assert.Equal(t, String("m"), v)

	_, _, ok = Map{"a": Int(1), "b": Int(2)}.Single()
	assert.False(t, ok)
}

func TestHashWithDomain(t *testing.T) {
	h1 := HashWithDomain("genc/graph/v1", []byte(`{"a":1}`))
	h2 := HashWithDomain("genc/graph/v1", []byte(`{"a":1}`))
	h3 := HashWithDomain("genc/other/v1", []byte(`{"a":1}`))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestHashDoc(t *testing.T) {
	h, err := HashDoc("genc/graph/v1", Map{"b": Int(2), "a": Int(1)})
	require.NoError(t, err)
	assert.Equal(t, HashWithDomain("genc/graph/v1", []byte(`{"a":1,"b":2}`)), h)

	decomposed, err := HashDoc("genc/graph/v1", String("e\u0301"))
	require.NoError(t, err)
	composed, err := HashDoc("genc/graph/v1", String("\u00e9"))
	require.NoError(t, err)
	assert.NotEqual(t, composed, decomposed)
}
