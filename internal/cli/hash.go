package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/genc/internal/ir"
)

// HashEntry pairs a graph source with its content address.
type HashEntry struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <graph>...",
		Short: "Print the content address of graphs",
		Long: `Print the SHA-256 content address of each graph.

Graphs with the same structure hash identically whatever their source
format, so a CUE file and its exported JSON share one hash.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(rootOpts, args, cmd)
		},
	}
}

func runHash(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	entries := make([]HashEntry, 0, len(paths))
	for _, p := range paths {
		graph, err := loadGraph(f, p)
		if err != nil {
			return err
		}
		h, err := ir.GraphHash(graph)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to hash graph", err)
		}
		entries = append(entries, HashEntry{Path: p, Hash: h})
	}

	if opts.Format == "json" {
		return f.Success(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", e.Hash, e.Path)
	}
	return nil
}
