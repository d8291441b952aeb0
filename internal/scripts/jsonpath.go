package scripts

import (
	"context"
	"fmt"
	"strings"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/roach88/genc/internal/ir"
)

// JSONPathPrefix marks a function URI whose remainder is a JSONPath
// expression.
const JSONPathPrefix = "jsonpath:"

// JSONPathFunction extracts the first match of an expression from a JSON
// document passed as a string.
type JSONPathFunction struct {
	expr jp.Expr
	src  string
}

// NewJSONPathFunction parses expr.
func NewJSONPathFunction(expr string) (*JSONPathFunction, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath expression %q: %w", expr, err)
	}
	return &JSONPathFunction{expr: x, src: expr}, nil
}

// ParseJSONPathURI builds the function named by a jsonpath: URI.
func ParseJSONPathURI(uri string) (*JSONPathFunction, error) {
	expr, ok := strings.CutPrefix(uri, JSONPathPrefix)
	if !ok {
		return nil, fmt.Errorf("not a jsonpath uri: %q", uri)
	}
	return NewJSONPathFunction(expr)
}

// URI returns the function URI for this expression.
func (f *JSONPathFunction) URI() string {
	return JSONPathPrefix + f.src
}

// Call returns the first match as a string. String matches are returned
// as-is; other matches are returned as compact JSON. No match yields the
// empty value.
func (f *JSONPathFunction) Call(_ context.Context, arg ir.Value) (ir.Value, error) {
	s, ok := arg.(ir.Str)
	if !ok {
		return nil, fmt.Errorf("jsonpath %s: argument must be a string", f.src)
	}
	doc, err := oj.ParseString(string(s))
	if err != nil {
		return nil, fmt.Errorf("jsonpath %s: parse input: %w", f.src, err)
	}
	results := f.expr.Get(doc)
	if len(results) == 0 {
		return nil, nil
	}
	if str, ok := results[0].(string); ok {
		return ir.Str(str), nil
	}
	return ir.Str(oj.JSON(results[0], &ojg.Options{Sort: true})), nil
}
