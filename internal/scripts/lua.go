package scripts

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/roach88/genc/internal/ir"
)

// LuaPrefix is prepended to script names to form function URIs.
const LuaPrefix = "lua/"

// LuaFunction runs a Lua script that defines exec(input).
type LuaFunction struct {
	Name   string
	Path   string
	source string
}

// NewLuaFunction checks that source loads and defines exec.
func NewLuaFunction(name, source string) (*LuaFunction, error) {
	l := lua.NewState()
	setupSandbox(l)
	if err := lua.DoString(l, source); err != nil {
		return nil, fmt.Errorf("lua %s: %w", name, err)
	}
	l.Global("exec")
	defer l.Pop(1)
	if l.TypeOf(-1) != lua.TypeFunction {
		return nil, fmt.Errorf("lua %s: required function 'exec' not found", name)
	}
	return &LuaFunction{Name: name, source: source}, nil
}

// URI returns the function URI the script is registered under.
func (f *LuaFunction) URI() string {
	return LuaPrefix + f.Name
}

// Call runs exec in a fresh sandboxed state. Each call is isolated.
func (f *LuaFunction) Call(ctx context.Context, arg ir.Value) (ir.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := lua.NewState()
	setupSandbox(l)
	if err := lua.DoString(l, f.source); err != nil {
		return nil, fmt.Errorf("lua %s: %w", f.Name, err)
	}
	l.Global("exec")
	if err := pushValue(l, arg); err != nil {
		return nil, fmt.Errorf("lua %s: %w", f.Name, err)
	}
	if err := l.ProtectedCall(1, 1, 0); err != nil {
		return nil, fmt.Errorf("lua %s: exec: %w", f.Name, err)
	}
	defer l.Pop(1)
	out, err := pullValue(l, -1)
	if err != nil {
		return nil, fmt.Errorf("lua %s: result: %w", f.Name, err)
	}
	return out, nil
}

// LoadDir loads every *.lua file under dir. Scripts are named by their
// path relative to dir without the extension, using forward slashes.
func LoadDir(dir string) ([]*LuaFunction, error) {
	var out []*LuaFunction
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".lua") {
			return nil
		}
		content, err := os.ReadFile(path) //nolint:gosec // path comes from walking the configured scripts dir
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(strings.TrimSuffix(rel, ".lua"))
		fn, err := NewLuaFunction(name, string(content))
		if err != nil {
			return err
		}
		fn.Path = path
		out = append(out, fn)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load scripts from %s: %w", dir, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// setupSandbox opens the safe standard libraries and removes the loaders
// and os functions that reach outside the process.
func setupSandbox(l *lua.State) {
	lua.Require(l, "_G", lua.BaseOpen, true)
	l.Pop(1)
	lua.Require(l, "string", lua.StringOpen, true)
	l.Pop(1)
	lua.Require(l, "table", lua.TableOpen, true)
	l.Pop(1)
	lua.Require(l, "math", lua.MathOpen, true)
	l.Pop(1)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "print"} {
		l.PushNil()
		l.SetGlobal(name)
	}

	l.Register("str_trim", func(l *lua.State) int {
		l.PushString(strings.TrimSpace(lua.CheckString(l, 1)))
		return 1
	})
	l.Register("str_split", func(l *lua.State) int {
		parts := strings.Fields(lua.CheckString(l, 1))
		if l.Top() >= 2 {
			parts = strings.Split(lua.CheckString(l, 1), lua.CheckString(l, 2))
		}
		l.NewTable()
		for i, part := range parts {
			l.PushInteger(i + 1)
			l.PushString(part)
			l.SetTable(-3)
		}
		return 1
	})
	l.Register("str_contains", func(l *lua.State) int {
		l.PushBoolean(strings.Contains(lua.CheckString(l, 1), lua.CheckString(l, 2)))
		return 1
	})
}

// pushValue converts an IR value to Lua. Structs become tables: named
// elements are keyed by name, positional elements by 1-based index.
func pushValue(l *lua.State, v ir.Value) error {
	switch x := v.(type) {
	case nil:
		l.PushNil()
	case ir.Str:
		l.PushString(string(x))
	case ir.Bool:
		l.PushBoolean(bool(x))
	case ir.Int:
		l.PushInteger(int(x))
	case ir.StructValue:
		l.NewTable()
		for i, e := range x.Elements {
			if e.Name != "" {
				l.PushString(e.Name)
			} else {
				l.PushInteger(i + 1)
			}
			if err := pushValue(l, e.Value); err != nil {
				return err
			}
			l.SetTable(-3)
		}
	default:
		return fmt.Errorf("cannot pass %s value to lua", v.Variant())
	}
	return nil
}

// pullValue converts a Lua value to IR. Integral numbers become Int;
// tables with only integer keys 1..n become positional structs, other
// tables become structs named by key in sorted order.
func pullValue(l *lua.State, idx int) (ir.Value, error) {
	switch l.TypeOf(idx) {
	case lua.TypeNil:
		return nil, nil
	case lua.TypeBoolean:
		return ir.Bool(l.ToBoolean(idx)), nil
	case lua.TypeNumber:
		n, _ := l.ToNumber(idx)
		if n != float64(int32(n)) {
			return nil, fmt.Errorf("number %v is not a 32-bit integer", n)
		}
		return ir.Int(int32(n)), nil
	case lua.TypeString:
		s, _ := l.ToString(idx)
		return ir.Str(s), nil
	case lua.TypeTable:
		return pullTable(l, idx)
	default:
		return nil, fmt.Errorf("unsupported lua type %s", lua.TypeNameOf(l, idx))
	}
}

func pullTable(l *lua.State, idx int) (ir.Value, error) {
	l.PushValue(idx)
	defer l.Pop(1)

	isArray := true
	count := 0
	maxIndex := 0
	var keys []string
	l.PushNil()
	for l.Next(-2) {
		count++
		if l.TypeOf(-2) == lua.TypeNumber {
			n, _ := l.ToNumber(-2)
			if int(n) > maxIndex {
				maxIndex = int(n)
			}
		} else {
			isArray = false
		}
		if l.TypeOf(-2) == lua.TypeString {
			k, _ := l.ToString(-2)
			keys = append(keys, k)
		}
		l.Pop(1)
	}

	if isArray && maxIndex == count {
		out := ir.StructValue{Elements: make([]ir.NamedValue, 0, count)}
		for i := 1; i <= count; i++ {
			l.PushInteger(i)
			l.Table(-2)
			v, err := pullValue(l, -1)
			l.Pop(1)
			if err != nil {
				return nil, err
			}
			out.Elements = append(out.Elements, ir.NamedValue{Value: v})
		}
		return out, nil
	}
	if len(keys) != count {
		return nil, fmt.Errorf("table mixes positional and named keys")
	}

	sort.Strings(keys)
	out := ir.StructValue{Elements: make([]ir.NamedValue, 0, len(keys))}
	for _, k := range keys {
		l.Field(-1, k)
		v, err := pullValue(l, -1)
		l.Pop(1)
		if err != nil {
			return nil, err
		}
		out.Elements = append(out.Elements, ir.NamedValue{Name: k, Value: v})
	}
	return out, nil
}
