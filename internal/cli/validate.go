package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/genc/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Hash  string `json:"hash"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <graph>",
		Short: "Check that a graph compiles",
		Long: `Compile a CUE package, CUE file or JSON graph without running it.

Reports the first structural error with its field path and source position.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	graph, err := loadGraph(f, path)
	if err != nil {
		return NewExitError(ExitFailure, "validation failed")
	}

	hash, err := ir.GraphHash(graph)
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	result := ValidationResult{Valid: true, Path: path, Kind: string(graph.Kind()), Hash: hash}
	if opts.Format == "json" {
		return f.Success(result)
	}
	return f.Success(fmt.Sprintf("✓ %s is valid (%s, %s)", path, result.Kind, hash))
}
