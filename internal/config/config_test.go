package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Coils.NCoils)
	assert.Equal(t, 6.5e5, cfg.Currents.Value)
	assert.Equal(t, 16, cfg.Surface.Nphi)
	assert.Equal(t, 32, cfg.Surface.Ntheta)
}

func TestParseOverlaysDefault(t *testing.T) {
	cfg, err := Parse([]byte(`
coils:
  ncoils: 4
  order: 6
penalties:
  length_weight: 1.5
optimizer:
  method: adam
`))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Coils.NCoils)
	assert.Equal(t, 6, cfg.Coils.Order)
	assert.Equal(t, 0.5, cfg.Coils.R1)
	assert.Equal(t, 1.5, cfg.Penalties.LengthWeight)
	assert.Equal(t, "adam", cfg.Optimizer.Method)
	assert.Equal(t, 1e-4, cfg.Optimizer.Scale)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "coils:\n  ncoil: 3\n",
		"bad order":       "coils:\n  order: 0\n",
		"few quadpoints":  "coils:\n  order: 10\n  quadpoints: 20\n",
		"bad range":       "surface:\n  range: quarter\n",
		"bad radii":       "surface:\n  minor_radius: 2\n",
		"bad method":      "optimizer:\n  method: newton\n",
		"negative weight": "penalties:\n  distance_weight: -1\n",
		"sqlite no path":  "output:\n  store: sqlite\n",
		"bad store":       "output:\n  store: redis\n",
		"not yaml":        "coils: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Coils.NCoils = 3
	cfg.Filaments.Enabled = true
	cfg.Output.Store = "sqlite"
	cfg.Output.SQLitePath = "runs.db"
	data, err := cfg.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
