package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kernelbp/config"
	"github.com/katalvlaran/kernelbp/gas"
	"github.com/katalvlaran/kernelbp/kernelbp"
	"github.com/katalvlaran/kernelbp/results"
)

// writeChain lays out 1(observed) ← 2(hidden) → 3(observed) with identity
// factors and returns the graph file path.
func writeChain(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"eye.txt":  "1 0\n0 1\n",
		"obs1.txt": "1\n0\n",
		"obs3.txt": "0\n1\n",
		"graph.txt": strings.Join([]string{
			"# chain",
			"observed_node 1 2 obs1.txt",
			"non_observed_node 2",
			"observed_node 3 2 obs3.txt",
			"edge_observed_target 2 1 L_s eye.txt L_t eye.txt",
			"edge_observed_target 2 3 L_s eye.txt L_t eye.txt",
		}, "\n"),
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}

	return filepath.Join(dir, "graph.txt")
}

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestExecute_Chain(t *testing.T) {
	cfg := config.Default()
	cfg.Graph = writeChain(t)
	cfg.Output = filepath.Join(t.TempDir(), "betas.txt")
	cfg.Partitions = 2
	cfg.Codec = true
	cfg.Metrics.Enabled = false
	cfg.Store.InMemory = true
	cfg.Aggregation.EverySupersteps = 1
	require.NoError(t, cfg.Validate())

	rep, err := execute(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	assert.NotEmpty(t, rep.Stats.RunID)
	assert.Empty(t, rep.Evidence.Unreached)
	assert.Equal(t, 1, rep.Evidence.Depth)
	assert.Equal(t, 2, rep.Stats.Supersteps)
	assert.Equal(t, []float64{1, 0}, rep.Betas[kernelbp.EdgeKey{Source: 2, Target: 1}])
	assert.Equal(t, []float64{0, 1}, rep.Betas[kernelbp.EdgeKey{Source: 2, Target: 3}])
	// Aggregations ran after each superstep and once at halt.
	assert.Equal(t, rep.Stats.Supersteps+1, rep.Summary.Syncs)

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, "2 1 1 0\n2 3 0 1\n", string(data))
}

func TestExecute_PersistentStore(t *testing.T) {
	cfg := config.Default()
	cfg.Graph = writeChain(t)
	cfg.Metrics.Enabled = false
	cfg.Store.Path = filepath.Join(t.TempDir(), "store")

	rep, err := execute(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	store, err := results.Open(results.DefaultConfig(cfg.Store.Path))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	betas, err := store.Betas()
	require.NoError(t, err)
	assert.Equal(t, rep.Betas, betas)
	st, err := store.Stats(rep.Stats.RunID)
	require.NoError(t, err)
	assert.Equal(t, rep.Stats.Supersteps, st.Supersteps)
}

func TestExecute_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false

	cfg.Graph = filepath.Join(t.TempDir(), "missing.txt")
	_, err := execute(context.Background(), cfg, quietLogger())
	require.ErrorIs(t, err, os.ErrNotExist)

	cfg.Graph = writeChain(t)
	cfg.Engine = string(gas.ModeAsync)
	_, err = execute(context.Background(), cfg, quietLogger())
	require.ErrorIs(t, err, gas.ErrUnsupportedMode)

	cfg.Engine = string(gas.ModeSync)
	cfg.MaxSupersteps = 1
	_, err = execute(context.Background(), cfg, quietLogger())
	require.ErrorIs(t, err, gas.ErrMaxSupersteps)
}

func TestRunCmd_FlagsOverrideConfig(t *testing.T) {
	graph := writeChain(t)
	cfgPath := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("graph: nowhere.txt\npartitions: 5\nbeta_epsilon: 0.5\n"), 0o600))
	out := filepath.Join(t.TempDir(), "betas.txt")

	var stderr bytes.Buffer
	cmd := newRunCmd()
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{
		"--config", cfgPath,
		"--graph", graph,
		"--output", out,
		"--partitions", "3",
		"--log-level", "warn",
	})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "2 1 1 0\n2 3 0 1\n", string(data))
	// Info-level lines are filtered at warn.
	assert.NotContains(t, stderr.String(), "belief propagation finished")
}

func TestRunCmd_InvalidConfig(t *testing.T) {
	cmd := newRunCmd()
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--partitions", "2"})
	require.ErrorIs(t, cmd.ExecuteContext(context.Background()), config.ErrInvalid)
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "kernelbp dev\n", out.String())
}

type fakeRunner struct {
	wait time.Duration
	err  error
}

func (f fakeRunner) Run(ctx context.Context) (gas.Stats, error) {
	select {
	case <-time.After(f.wait):
		return gas.Stats{Supersteps: 7}, f.err
	case <-ctx.Done():
		return gas.Stats{}, ctx.Err()
	}
}

type countingSyncer struct {
	n   atomic.Int32
	err error
}

func (c *countingSyncer) Sync(context.Context) error {
	c.n.Add(1)
	return c.err
}

func TestRunEngine_Periodic(t *testing.T) {
	sy := &countingSyncer{}
	stats, err := runEngine(context.Background(), fakeRunner{wait: 60 * time.Millisecond}, sy, 5*time.Millisecond, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Supersteps)
	assert.Positive(t, sy.n.Load())

	// Without an interval the syncer is never ticked.
	idle := &countingSyncer{}
	_, err = runEngine(context.Background(), fakeRunner{}, idle, 0, quietLogger())
	require.NoError(t, err)
	assert.Zero(t, idle.n.Load())

	// A failing periodic sync aborts the engine.
	boom := errors.New("boom")
	_, err = runEngine(context.Background(), fakeRunner{wait: time.Minute}, &countingSyncer{err: boom}, time.Millisecond, quietLogger())
	require.ErrorIs(t, err, boom)
}
