package app

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentflow/internal/config"
	"talentflow/internal/engine"
)

func TestOpenUsesDefaultsAndNoFaults(t *testing.T) {
	ws := t.TempDir()
	env, err := Open(context.Background(), ws, Options{})
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, config.Default(), env.Config)
	assert.IsType(t, engine.NoFaults{}, env.Engine.Faults)
}

func TestOpenSimulateAndSeed(t *testing.T) {
	ws := t.TempDir()
	yml := `
latency:
  min: 0s
  max: 0s
  stage: 0s
failure:
  write: 0
  stage: 0
  reorder: 0
seed:
  jobs: 5
  candidates: 20
  random_seed: 42
server:
  addr: 127.0.0.1:0
`
	require.NoError(t, os.WriteFile(config.Path(ws), []byte(yml), 0o644))
	ctx := context.Background()
	env, err := Open(ctx, ws, Options{Simulate: true})
	require.NoError(t, err)
	defer env.Close()
	assert.IsType(t, &engine.RandomFaults{}, env.Engine.Faults)

	res, err := env.Seed(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Jobs)
	assert.Equal(t, 20, res.Candidates)

	stats, err := env.Engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)

	res, err = env.Seed(ctx, false)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestOpenRejectsBadConfig(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(ws), []byte("failure:\n  write: 2\n"), 0o644))
	_, err := Open(context.Background(), ws, Options{})
	assert.ErrorContains(t, err, "load config")
}
