package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/genc/internal/ir"
	"github.com/roach88/genc/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database  string
	GraphHash string // optional - filter to one graph
}

// RunEntry is one recorded run as printed by the runs command.
type RunEntry struct {
	Seq       int64   `json:"seq"`
	ID        string  `json:"id"`
	GraphHash string  `json:"graph_hash"`
	Args      string  `json:"args"`
	Result    *string `json:"result,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List runs recorded by "genc run --db" in recording order.

Examples:
  genc runs --db ./genc.db
  genc runs --db ./genc.db --graph <hash> --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.GraphHash, "graph", "", "only runs of this graph hash")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.GraphHash != "" {
		if _, err := st.ReadGraph(ctx, opts.GraphHash); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				_ = f.Error(ErrCodeGeneric, fmt.Sprintf("graph %s not found", opts.GraphHash), nil)
				return NewExitError(ExitCommandError, "graph not found")
			}
			return WrapExitError(ExitCommandError, "failed to read graph", err)
		}
	}

	runs, err := st.ListRuns(ctx, opts.GraphHash)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	entries := make([]RunEntry, 0, len(runs))
	for _, r := range runs {
		args, err := ir.MarshalValue(ir.Positional(r.Args...))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode arguments", err)
		}
		entries = append(entries, RunEntry{
			Seq:       r.Seq,
			ID:        r.ID,
			GraphHash: r.GraphHash,
			Args:      string(args),
			Result:    r.Result,
			Error:     r.Error,
		})
	}

	if opts.Format == "json" {
		return f.Success(entries)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "[%d] %s graph=%s\n", e.Seq, e.ID, shortHash(e.GraphHash))
		fmt.Fprintf(w, "    args:   %s\n", e.Args)
		switch {
		case e.Error != "":
			fmt.Fprintf(w, "    error:  %s\n", e.Error)
		case e.Result != nil:
			fmt.Fprintf(w, "    result: %s\n", *e.Result)
		default:
			fmt.Fprintln(w, "    result: <none>")
		}
	}
	fmt.Fprintf(w, "\n%d run(s)\n", len(entries))
	return nil
}

// openExistingStore opens a database that must already exist.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
