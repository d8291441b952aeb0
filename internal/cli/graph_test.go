package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/genc/internal/engine"
	"github.com/roach88/genc/internal/ir"
	"github.com/roach88/genc/internal/runner"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestValidate_Valid(t *testing.T) {
	path := writeGraph(t, "trip.cue", tripGraph)

	out, err := executeCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid (chain, ")
}

func TestValidate_InvalidJSONDetails(t *testing.T) {
	path := writeGraph(t, "bad.cue", "package genc\n\ncomputation: chain: [{model: 3}]\n")

	out, err := executeCommand(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeLoad, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "computation.chain[0].model", details["field"])
	assert.Equal(t, float64(3), details["line"])
}

func TestExportAndHash(t *testing.T) {
	cue := writeGraph(t, "trip.cue", tripGraph)
	exported := filepath.Join(t.TempDir(), "trip.json")

	_, err := executeCommand(t, "export", cue, "-o", exported)
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t,
		`{"chain":[{"prompt_template":"Q: What should I pack for a trip to {location}? A: "},{"model":"test_model"},{"logger":{}}]}`,
		string(data))

	stdout, err := executeCommand(t, "export", cue)
	require.NoError(t, err)
	assert.Equal(t, string(data)+"\n", stdout)

	out, err := executeCommand(t, "hash", cue, exported)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Fields(lines[0])[0], strings.Fields(lines[1])[0])

	out, err = executeCommand(t, "--format", "json", "hash", cue)
	require.NoError(t, err)
	var resp struct {
		Data []HashEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, strings.Fields(lines[0])[0], resp.Data[0].Hash)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "UNKNOWN_MODEL", errorCode(&engine.RuntimeError{Code: engine.ErrCodeUnknownModel}))
	assert.Equal(t, runner.UnsupportedKeywordArguments,
		errorCode(&runner.InvocationError{Code: runner.UnsupportedKeywordArguments}))
	assert.Equal(t, ErrCodeExecution, errorCode(errors.New("boom")))
}

func TestArgsFromValues(t *testing.T) {
	g := ir.Model{URI: "test_model"}
	args, err := argsFromValues([]ir.Value{ir.Str("a"), ir.Graph{Node: g}})
	require.NoError(t, err)
	assert.Equal(t, []runner.Arg{runner.String("a"), runner.Graph(g)}, args)

	_, err = argsFromValues([]ir.Value{ir.Int(3)})
	require.Error(t, err)

	_, err = argsFromValues([]ir.Value{ir.Str("ok"), ir.Graph{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument 1")
	assert.Equal(t, runner.UnsupportedArgumentType, errorCode(err))
}
