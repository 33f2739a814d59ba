package results_test

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kernelbp/gas"
	"github.com/katalvlaran/kernelbp/kernelbp"
	"github.com/katalvlaran/kernelbp/results"
)

func sampleBetas() map[kernelbp.EdgeKey][]float64 {
	return map[kernelbp.EdgeKey][]float64{
		{Source: 2, Target: 3}:  {0, 1},
		{Source: 2, Target: 1}:  {1, 0},
		{Source: -1, Target: 2}: {math.Sqrt(0.5), 1 / math.Sqrt(2)},
		{Source: 3, Target: 2}:  nil,
	}
}

func TestWriteText_SortedAndExact(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, results.WriteText(&buf, sampleBetas()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "-1 2 "))
	assert.Equal(t, "2 1 1 0", lines[1])
	assert.Equal(t, "2 3 0 1", lines[2])
	assert.Equal(t, "3 2", lines[3])

	back, err := results.ReadText(&buf)
	require.NoError(t, err)
	// Bit-exact round trip of irrational values.
	want := sampleBetas()
	want[kernelbp.EdgeKey{Source: 3, Target: 2}] = []float64{}
	assert.Equal(t, want, back)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "betas.txt")
	require.NoError(t, results.WriteFile(path, map[kernelbp.EdgeKey][]float64{{Source: 1, Target: 2}: {0.25}}))

	err := results.WriteFile(filepath.Join(t.TempDir(), "missing", "betas.txt"), nil)
	require.Error(t, err)
}

func TestReadText_Malformed(t *testing.T) {
	for _, in := range []string{"1\n", "a 2 0.5\n", "1 2 x\n"} {
		_, err := results.ReadText(strings.NewReader(in))
		require.ErrorIs(t, err, results.ErrMalformed, in)
	}
}

func TestBadgerStore_Betas(t *testing.T) {
	s, err := results.Open(results.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	betas := sampleBetas()
	require.NoError(t, s.PutBetas(betas))

	got, err := s.Beta(kernelbp.EdgeKey{Source: -1, Target: 2})
	require.NoError(t, err)
	assert.Equal(t, betas[kernelbp.EdgeKey{Source: -1, Target: 2}], got)

	_, err = s.Beta(kernelbp.EdgeKey{Source: 9, Target: 9})
	require.ErrorIs(t, err, results.ErrNotFound)

	all, err := s.Betas()
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []float64{0, 1}, all[kernelbp.EdgeKey{Source: 2, Target: 3}])
	assert.Empty(t, all[kernelbp.EdgeKey{Source: 3, Target: 2}])

	// A second put overwrites.
	require.NoError(t, s.PutBetas(map[kernelbp.EdgeKey][]float64{{Source: 2, Target: 3}: {1, 0}}))
	got, err = s.Beta(kernelbp.EdgeKey{Source: 2, Target: 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, got)
}

func TestBadgerStore_Stats(t *testing.T) {
	s, err := results.Open(results.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	st := gas.Stats{RunID: "run-1", Supersteps: 4, VertexUpdates: 12, Signals: 7, Duration: 3 * time.Millisecond}
	require.NoError(t, s.PutStats(st))
	got, err := s.Stats("run-1")
	require.NoError(t, err)
	assert.Equal(t, st, got)

	_, err = s.Stats("nope")
	require.ErrorIs(t, err, results.ErrNotFound)
	require.ErrorIs(t, s.PutStats(gas.Stats{}), results.ErrMalformed)
}

func TestBadgerStore_Persistent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s, err := results.Open(results.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, s.PutBetas(map[kernelbp.EdgeKey][]float64{{Source: 1, Target: 2}: {0.6, 0.8}}))
	require.NoError(t, s.Close())

	s, err = results.Open(results.DefaultConfig(dir))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	got, err := s.Beta(kernelbp.EdgeKey{Source: 1, Target: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.6, 0.8}, got)

	_, err = results.Open(results.Config{})
	require.Error(t, err)
}
