package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/genc/internal/ir"
	"github.com/roach88/genc/internal/runner"
	"github.com/roach88/genc/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string        // record the run when set
	Timeout  time.Duration // zero means no timeout

	// IDGenerator allows overriding run IDs (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// RunOutput is the payload of a successful run.
type RunOutput struct {
	Present bool   `json:"present"`
	Result  string `json:"result,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <graph> [args...]",
		Short: "Execute a graph with string arguments",
		Long: `Execute a graph on the inline engine.

The graph is uploaded once and called with the positional arguments as
strings. Zero arguments call it with no argument, one argument is passed
directly and several are packed into a positional struct.

Models, Lua scripts, the inference cache and executor limits come from
--config. With --db the graph and the run are recorded in SQLite.

Example:
  genc run ./trip.cue "a grocery store"
  genc run --config genc.yaml --db ./genc.db ./graphs "first" "second"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for run history")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "cancel the run after this duration")

	return cmd
}

func runGraph(opts *RunOptions, graphPath string, rawArgs []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := newLogger(cfg, opts.Verbose, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	graph, err := loadGraph(f, graphPath)
	if err != nil {
		return err
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	sess, err := newSession(ctx, cfg, logger)
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to set up engine", err)
	}
	defer sess.Close()

	r, err := runner.New(ctx, graph, sess.engine)
	if err != nil {
		_ = f.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to upload graph", err)
	}
	defer r.Close()

	args := make([]runner.Arg, len(rawArgs))
	for i, a := range rawArgs {
		if args[i], err = runner.ArgOf(a); err != nil {
			_ = f.Error(errorCode(err), err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid argument", err)
		}
	}

	logger.Info("running graph", "graph", graphPath, "kind", graph.Kind(), "args", len(args))
	start := time.Now()
	res, callErr := r.Call(ctx, args...)
	logger.Info("run finished", "duration", time.Since(start), "error", callErr != nil)

	var runID string
	if opts.Database != "" {
		runID, err = recordRun(ctx, opts, graph, rawArgs, res, callErr)
		if err != nil {
			_ = f.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		f.VerboseLog("Recorded run %s", runID)
	}

	if callErr != nil {
		_ = f.Error(errorCode(callErr), callErr.Error(), nil)
		return WrapExitError(ExitFailure, "graph execution failed", callErr)
	}

	if opts.Format == "json" {
		return f.Success(RunOutput{Present: res.Present, Result: res.Str, RunID: runID})
	}
	return f.Success(res.String())
}

// recordRun stores the graph and the outcome of one call.
func recordRun(ctx context.Context, opts *RunOptions, graph ir.Node, rawArgs []string, res runner.Result, callErr error) (string, error) {
	var storeOpts []store.Option
	if opts.IDGenerator != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDGenerator))
	}
	st, err := store.Open(opts.Database, storeOpts...)
	if err != nil {
		return "", fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// Record even when the caller's context was cancelled.
	ctx = context.WithoutCancel(ctx)

	hash, err := st.WriteGraph(ctx, graph)
	if err != nil {
		return "", err
	}
	run := store.Run{GraphHash: hash}
	for _, a := range rawArgs {
		run.Args = append(run.Args, ir.Str(a))
	}
	if callErr != nil {
		run.Error = callErr.Error()
	} else if res.Present {
		out := res.Str
		run.Result = &out
	}
	run, err = st.WriteRun(ctx, run)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}
