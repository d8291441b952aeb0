package scripts

import (
	"github.com/roach88/genc/internal/engine"
)

// Register binds the jsonpath: prefix into fns and, when dir is not empty,
// every Lua script under dir as lua/<name>. It returns the registered Lua
// URIs in sorted order.
func Register(fns *engine.Functions, dir string) ([]string, error) {
	fns.RegisterPrefix(JSONPathPrefix, func(uri string) (engine.Func, error) {
		f, err := ParseJSONPathURI(uri)
		if err != nil {
			return nil, err
		}
		return f.Call, nil
	})
	if dir == "" {
		return nil, nil
	}
	luaFns, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	uris := make([]string, 0, len(luaFns))
	for _, f := range luaFns {
		fns.Register(f.URI(), f.Call)
		uris = append(uris, f.URI())
	}
	return uris, nil
}

