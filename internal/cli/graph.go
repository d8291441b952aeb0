package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/genc/internal/compiler"
	"github.com/roach88/genc/internal/engine"
	"github.com/roach88/genc/internal/ir"
	"github.com/roach88/genc/internal/runner"
)

// newFormatter builds the formatter for a command from the root flags.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadGraph loads a graph source, reporting failures through f.
func loadGraph(f *OutputFormatter, path string) (ir.Node, error) {
	f.VerboseLog("Loading graph from %s", path)
	g, err := compiler.Load(path)
	if err != nil {
		_ = f.Error(ErrCodeLoad, err.Error(), compileDetails(err))
		return nil, WrapExitError(ExitCommandError, "failed to load graph", err)
	}
	return g, nil
}

// compileDetails returns the field and position of a compile error.
func compileDetails(err error) map[string]any {
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		return nil
	}
	d := map[string]any{"field": ce.Field}
	if ce.Pos.IsValid() {
		d["file"] = ce.Pos.Filename()
		d["line"] = ce.Pos.Line()
		d["column"] = ce.Pos.Column()
	}
	return d
}

// errorCode maps an invocation error to a response code: the executor or
// runner code when there is one.
func errorCode(err error) string {
	if code, ok := engine.CodeOf(err); ok {
		return string(code)
	}
	var me *runner.MarshalingError
	if errors.As(err, &me) {
		return me.Code
	}
	var ie *runner.InvocationError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ErrCodeExecution
}

// argsFromValues converts recorded arguments back into runner arguments.
func argsFromValues(vals []ir.Value) ([]runner.Arg, error) {
	args := make([]runner.Arg, len(vals))
	for i, v := range vals {
		var host any
		switch x := v.(type) {
		case ir.Str:
			host = string(x)
		case ir.Graph:
			host = x.Node
		default:
			return nil, fmt.Errorf("argument %d: cannot replay %T", i, v)
		}
		a, err := runner.ArgOf(host)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = a
	}
	return args, nil
}
