package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/genc/internal/ir"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string // output file; empty writes to stdout
}

// ExportOutput is the JSON payload of the export command.
type ExportOutput struct {
	Hash  string          `json:"hash"`
	Graph json.RawMessage `json:"graph"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <graph>",
		Short: "Write a graph as canonical JSON",
		Long: `Compile a graph and write its canonical JSON wire form.

The output is byte-stable: structurally equal graphs export identically,
so it can be committed, diffed and loaded back with "genc run".

Examples:
  genc export ./trip.cue
  genc export ./graphs -o trip.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(opts *ExportOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	graph, err := loadGraph(f, path)
	if err != nil {
		return err
	}
	data, err := ir.MarshalNode(graph)
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to encode graph", err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		f.VerboseLog("Wrote %d bytes to %s", len(data), opts.Output)
		if opts.Format == "json" {
			return f.Success(map[string]string{"output": opts.Output})
		}
		return nil
	}

	if opts.Format == "json" {
		hash, err := ir.GraphHash(graph)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to hash graph", err)
		}
		return f.Success(ExportOutput{Hash: hash, Graph: data})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
