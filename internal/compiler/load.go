package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/genc/internal/ir"
)

// Load reads a graph from path. A directory is loaded as one CUE package,
// a .cue file is compiled on its own, and a .json file is decoded from
// the wire form.
func Load(path string) (ir.Node, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("graph source: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	switch filepath.Ext(path) {
	case ".cue":
		return CompileFile(path)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		n, err := ir.UnmarshalNode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%s: unsupported graph file, want .cue or .json", path)
	}
}

// LoadDir builds the CUE package in dir and compiles its computation.
func LoadDir(dir string) (ir.Node, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("error scanning directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	return CompileValue(cuecontext.New().BuildInstance(inst))
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
