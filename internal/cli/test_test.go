package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func TestTestCommand_HarnessScenarios(t *testing.T) {
	out, err := executeCommand(t, "test", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ trip_packing")
	assert.Contains(t, out, "✓ fallback_scripts")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestTestCommand_Filter(t *testing.T) {
	out, err := executeCommand(t, "--format", "json", "test", harnessScenarios, "--filter", "trip*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "trip_packing", resp.Data.Scenarios[0].Name)
}

func TestTestCommand_UpdateAndMismatch(t *testing.T) {
	golden := t.TempDir()

	out, err := executeCommand(t, "test", harnessScenarios, "--golden-dir", golden, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	want, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "trip_packing.golden"))
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(golden, "trip_packing.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	require.NoError(t, os.WriteFile(filepath.Join(golden, "trip_packing.golden"), []byte("{}"), 0644))
	out, err = executeCommand(t, "test", harnessScenarios, "--golden-dir", golden)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
	assert.Contains(t, out, "1 passed, 1 failed")
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, err := executeCommand(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
