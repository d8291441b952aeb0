package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genc/internal/store"
)

const tripAnswer = `This is an output from a test model in response to "Q: What should I pack for a trip to a grocery store? A: ".`

func TestRun_TextOutput(t *testing.T) {
	path := writeGraph(t, "trip.cue", tripGraph)

	out, err := executeCommand(t, "run", path, "a grocery store")
	require.NoError(t, err)
	assert.Equal(t, tripAnswer+"\n", out)
}

func TestRun_JSONOutput(t *testing.T) {
	path := writeGraph(t, "g.json", `{"prompt_template":"{a} and {b}"}`)

	out, err := executeCommand(t, "--format", "json", "run", path, "salt", "pepper")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Present)
	assert.Equal(t, "salt and pepper", resp.Data.Result)
	assert.Empty(t, resp.Data.RunID)
}

func TestRun_UnknownModel(t *testing.T) {
	path := writeGraph(t, "g.json", `{"model":"gpt-nowhere"}`)

	out, err := executeCommand(t, "run", path, "hi")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [UNKNOWN_MODEL]")
}

func TestRun_MissingGraph(t *testing.T) {
	_, err := executeCommand(t, "run", filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_BadConfig(t *testing.T) {
	path := writeGraph(t, "g.json", `{"model":"test_model"}`)
	cfg := writeGraph(t, "genc.yaml", "log:\n  level: loud\n")

	_, err := executeCommand(t, "--config", cfg, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRun_ScriptsFromConfig(t *testing.T) {
	dir := t.TempDir()
	scripts := filepath.Join(dir, "scripts")
	writeFile(t, filepath.Join(scripts, "shout.lua"), "function exec(input)\n  return string.upper(input) .. \"!\"\nend\n")
	cfg := filepath.Join(dir, "genc.yaml")
	writeFile(t, cfg, "scripts:\n  dir: "+scripts+"\n")
	path := writeGraph(t, "g.json", `{"custom_function":"lua/shout"}`)

	out, err := executeCommand(t, "--config", cfg, "run", path, "hey")
	require.NoError(t, err)
	assert.Equal(t, "HEY!\n", out)
}

// runRecorded runs path through runGraph with fixed run IDs.
func runRecorded(t *testing.T, db, path string, ids []string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    db,
		IDGenerator: store.NewFixedGenerator(ids...),
	}
	err := runGraph(opts, path, args, cmd)
	return out.String(), err
}

func TestRun_RecordsRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "genc.db")
	path := writeGraph(t, "trip.cue", tripGraph)

	_, err := runRecorded(t, db, path, []string{"run-1"}, "a grocery store")
	require.NoError(t, err)
	_, err = runRecorded(t, db, writeGraph(t, "bad.json", `{"model":"missing"}`), []string{"run-2"}, "x")
	require.Error(t, err)

	out, err := executeCommand(t, "--format", "json", "runs", "--db", db)
	require.NoError(t, err)
	var resp struct {
		Data []RunEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)

	assert.Equal(t, "run-1", resp.Data[0].ID)
	assert.Equal(t, `{"struct":[{"value":{"str":"a grocery store"}}]}`, resp.Data[0].Args)
	require.NotNil(t, resp.Data[0].Result)
	assert.Equal(t, tripAnswer, *resp.Data[0].Result)

	assert.Equal(t, "run-2", resp.Data[1].ID)
	assert.Nil(t, resp.Data[1].Result)
	assert.Contains(t, resp.Data[1].Error, "UNKNOWN_MODEL")

	text, err := executeCommand(t, "runs", "--db", db, "--graph", resp.Data[0].GraphHash)
	require.NoError(t, err)
	assert.Contains(t, text, "[1] run-1")
	assert.NotContains(t, text, "run-2")
	assert.Contains(t, text, "1 run(s)")
}

func TestRuns_Errors(t *testing.T) {
	_, err := executeCommand(t, "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	_, err = executeCommand(t, "runs", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplay(t *testing.T) {
	db := filepath.Join(t.TempDir(), "genc.db")
	_, err := runRecorded(t, db, writeGraph(t, "trip.cue", tripGraph), []string{"run-1"}, "a grocery store")
	require.NoError(t, err)

	out, err := executeCommand(t, "replay", "--db", db, "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Replay matches")

	out, err = executeCommand(t, "--format", "json", "replay", "--db", db, "run-1")
	require.NoError(t, err)
	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Deterministic)
	require.NotNil(t, resp.Data.Replayed)
	assert.Equal(t, tripAnswer, *resp.Data.Replayed)

	_, err = executeCommand(t, "replay", "--db", db, "run-404")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplay_DecomposedArgument(t *testing.T) {
	db := filepath.Join(t.TempDir(), "genc.db")
	path := writeGraph(t, "g.json", `{"prompt_template":"{x}"}`)
	out, err := runRecorded(t, db, path, []string{"run-1"}, "cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, "cafe\u0301\n", out)

	out, err = executeCommand(t, "--format", "json", "replay", "--db", db, "run-1")
	require.NoError(t, err)
	var resp struct {
		Data ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Deterministic)
	require.NotNil(t, resp.Data.Replayed)
	assert.Equal(t, "cafe\u0301", *resp.Data.Replayed)
}

func TestSameOutcome(t *testing.T) {
	a, b := "a", "b"
	assert.True(t, sameOutcome(ReplayResult{}))
	assert.True(t, sameOutcome(ReplayResult{Recorded: &a, Replayed: &a}))
	assert.False(t, sameOutcome(ReplayResult{Recorded: &a, Replayed: &b}))
	assert.False(t, sameOutcome(ReplayResult{Recorded: &a}))
	assert.False(t, sameOutcome(ReplayResult{RecordedError: "x"}))
}
