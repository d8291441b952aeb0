package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/genc/internal/runner"
	"github.com/roach88/genc/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayResult compares a recorded run with its re-execution.
type ReplayResult struct {
	RunID         string  `json:"run_id"`
	GraphHash     string  `json:"graph_hash"`
	Recorded      *string `json:"recorded,omitempty"`
	RecordedError string  `json:"recorded_error,omitempty"`
	Replayed      *string `json:"replayed,omitempty"`
	ReplayedError string  `json:"replayed_error,omitempty"`
	Deterministic bool    `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Re-execute a recorded run and compare results",
		Long: `Load a recorded run and its graph from the database, execute it again
with the same arguments and compare the outcome with the recorded one.

Graphs that only use deterministic backends (the test model, Lua and
JSONPath functions, or a warm inference cache) must replay identically.

Exit codes:
  0 - Replay matched the recorded outcome
  1 - Replay differed from the recorded outcome
  2 - Command error (database or run not found, etc.)

Examples:
  genc replay --db ./genc.db 0190a1b2-...
  genc replay --db ./genc.db --config genc.yaml 0190a1b2-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, runID string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := newLogger(cfg, opts.Verbose, cmd.ErrOrStderr())

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = f.Error(ErrCodeGeneric, fmt.Sprintf("run %s not found", runID), nil)
			return NewExitError(ExitCommandError, "run not found")
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	graph, err := st.ReadGraph(ctx, run.GraphHash)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read graph", err)
	}
	args, err := argsFromValues(run.Args)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode arguments", err)
	}

	sess, err := newSession(ctx, cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up engine", err)
	}
	defer sess.Close()

	result := ReplayResult{
		RunID:         run.ID,
		GraphHash:     run.GraphHash,
		Recorded:      run.Result,
		RecordedError: run.Error,
	}

	r, err := runner.New(ctx, graph, sess.engine)
	if err == nil {
		var res runner.Result
		res, err = r.Call(ctx, args...)
		r.Close()
		if err == nil && res.Present {
			out := res.Str
			result.Replayed = &out
		}
	}
	if err != nil {
		result.ReplayedError = err.Error()
	}
	result.Deterministic = sameOutcome(result)
	logger.Debug("replay finished", "run", run.ID, "deterministic", result.Deterministic)

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result)
}

func sameOutcome(r ReplayResult) bool {
	if r.RecordedError != r.ReplayedError {
		return false
	}
	if (r.Recorded == nil) != (r.Replayed == nil) {
		return false
	}
	return r.Recorded == nil || *r.Recorded == *r.Replayed
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result, RunID: result.RunID}
	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{Code: ErrCodeReplay, Message: "replay differs from recorded run"}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}
	if !result.Deterministic {
		return NewExitError(ExitFailure, "replay differs from recorded run")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s (graph %s)\n", result.RunID, shortHash(result.GraphHash))
	fmt.Fprintf(w, "  recorded: %s\n", describeOutcome(result.Recorded, result.RecordedError))
	fmt.Fprintf(w, "  replayed: %s\n", describeOutcome(result.Replayed, result.ReplayedError))

	if !result.Deterministic {
		fmt.Fprintln(w, "✗ Replay differs from recorded run")
		return NewExitError(ExitFailure, "replay differs from recorded run")
	}
	fmt.Fprintln(w, "✓ Replay matches")
	return nil
}

func describeOutcome(out *string, errText string) string {
	switch {
	case errText != "":
		return "error: " + errText
	case out == nil:
		return "<none>"
	default:
		return fmt.Sprintf("%q", *out)
	}
}
