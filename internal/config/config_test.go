package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 200*time.Millisecond, cfg.Latency.Min)
	assert.Equal(t, 1200*time.Millisecond, cfg.Latency.Max)
	assert.Equal(t, 0.07, cfg.Failure.Write)
	assert.Equal(t, 0.05, cfg.Failure.Stage)
	assert.Equal(t, 25, cfg.Seed.Jobs)
	assert.Equal(t, 1000, cfg.Seed.Candidates)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestFromYAMLOverlaysDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("latency:\n  max: 2s\nfailure:\n  write: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Latency.Max)
	assert.Equal(t, 200*time.Millisecond, cfg.Latency.Min)
	assert.Zero(t, cfg.Failure.Write)
	assert.Equal(t, 0.1, cfg.Failure.Reorder)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"rate above one":   "failure:\n  stage: 1.5\n",
		"negative latency": "latency:\n  min: -1s\n",
		"min above max":    "latency:\n  min: 3s\n  max: 1s\n",
		"too few jobs":     "seed:\n  jobs: 2\n",
		"burst missing":    "limits:\n  writes_per_second: 5\n  burst: 0\n",
		"no addr":          "server:\n  addr: \"\"\n",
		"bad duration":     "latency:\n  min: soon\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	ws := t.TempDir()
	_, err := Load(ws)
	assert.ErrorContains(t, err, "not found")

	cfg, err := LoadOptional(ws)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(filepath.Join(ws, "talentflow.yml"), []byte("server:\n  addr: 0.0.0.0:9000\n"), 0o644))
	cfg, err = Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
}
