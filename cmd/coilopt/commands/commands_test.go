package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coilopt/coilopt/internal/serialization"
)

const smallRun = `
coils:
  order: 3
  quadpoints: 24
surface:
  nphi: 8
  ntheta: 8
penalties:
  length_weight: 1e-3
`

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd("test")
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smallRun), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "coilopt test")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "version")
	assert.Error(t, err)
}

func TestOptimizeWritesSnapshot(t *testing.T) {
	cfg := writeConfig(t)
	snapPath := filepath.Join(t.TempDir(), "coils.coil")

	out, err := execute(t, "--config", cfg, "--log-level", "error", "optimize", "--maxiter", "3", "-o", snapPath)
	require.NoError(t, err)
	assert.Contains(t, out, "status")
	assert.Contains(t, out, "kA")

	snap, err := serialization.ReadSnapshot(snapPath)
	require.NoError(t, err)
	require.NotNil(t, snap.Objective)
	assert.NotEmpty(t, snap.RunID)
	assert.Equal(t, "lbfgs", snap.Metadata["method"])

	// Restarting from the snapshot with Adam picks up the saved dofs.
	out, err = execute(t, "--config", cfg, "--log-level", "error", "optimize", "--init", snapPath, "--method", "adam", "--maxiter", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "J")
}

func TestOptimizeRejectsBadMethod(t *testing.T) {
	_, err := execute(t, "--config", writeConfig(t), "optimize", "--method", "newton")
	assert.Error(t, err)
}

func TestTaylorSweep(t *testing.T) {
	out, err := execute(t, "--config", writeConfig(t), "--log-level", "error", "taylor", "-n", "2", "-w", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "ORDER")
}

func TestFieldlines(t *testing.T) {
	out, err := execute(t, "--config", writeConfig(t), "--log-level", "error",
		"fieldlines", "--r0", "1.0", "--length", "7", "--step", "0.05", "--phi", "0,90")
	require.NoError(t, err)
	assert.Contains(t, out, "LINE")
}

func TestHistoryEmptyMemoryStore(t *testing.T) {
	out, err := execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded")

	_, err = execute(t, "history", "missing")
	assert.Error(t, err)
}

func TestUnsupportedStore(t *testing.T) {
	_, err := execute(t, "--store", "redis", "history")
	assert.Error(t, err)
}
