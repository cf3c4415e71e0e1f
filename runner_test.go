package sparse

import (
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorgonia/sparse/chunk"
	"github.com/gorgonia/sparse/compute"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	states  []MetaState
	flushed bool
	err     error
}

func (r *recorder) Encode(ms MetaState) error {
	// slices are only valid during Encode
	ms.States = append([]float32(nil), ms.States...)
	ms.Winners = append([]float32(nil), ms.Winners...)
	r.states = append(r.states, ms)
	return r.err
}

func (r *recorder) Flush() error { r.flushed = true; return nil }

func newTestChunkEncoder(t *testing.T, seed int64) *chunk.Encoder {
	t.Helper()
	prog, err := compute.NewProgram(chunk.Kernels)
	require.NoError(t, err)
	conf := chunk.DefaultConf(6, 6, chunk.DefaultVisibleLayerDesc(6, 6))
	conf.ChunkSize = compute.Int2{X: 3, Y: 3}
	enc, err := chunk.New(compute.NewSystem(2, nil), prog, conf, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return enc
}

func randomSource(seed int64) Source {
	rng := rand.New(rand.NewSource(seed))
	return func(step int) ([]*compute.Grid, error) {
		g := compute.NewGrid2D(compute.Int2{X: 6, Y: 6}, 1)
		for i := range g.Data() {
			g.Data()[i] = rng.Float32()
		}
		return []*compute.Grid{g}, nil
	}
}

func TestRunnerRun(t *testing.T) {
	rec := &recorder{}
	r := NewRunner(newTestChunkEncoder(t, 1), Config{Name: "test", Seed: 1, OutputEncoder: rec})

	require.NoError(t, r.Run(randomSource(2), 5, true))
	assert.Equal(t, 5, r.CurrentStep())
	assert.Equal(t, "test", r.Name())
	assert.False(t, rec.flushed, "Run does not flush the output encoder")

	require.Len(t, rec.states, 5)
	for i, ms := range rec.states {
		assert.Equal(t, i, ms.Step)
		assert.Equal(t, "test", ms.Name)
		assert.Equal(t, compute.Int2{X: 6, Y: 6}, ms.HiddenSize)
		assert.Len(t, ms.States, 36)
		assert.Len(t, ms.Winners, 8)
		assert.Len(t, ms.ActiveUnits(), 4, "one active unit per chunk")
		assert.Equal(t, ms.ActiveUnits(), sortedCopy(ms.WinnerUnits()))
		assert.Equal(t, float32(4)/36, ms.ActiveFraction)
		assert.True(t, ms.Churn >= 0 && ms.Churn <= 1)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, r.Statistics.Steps)
	assert.Len(t, r.Churn, 5)
	var used float32
	for _, u := range r.Usage {
		used += u
	}
	assert.Equal(t, float32(20), used)
	assert.True(t, r.DeadUnits() <= 36-4)

	log := r.ExecLog()
	assert.Contains(t, log, `Running "test" for 5 steps`)
	assert.Contains(t, log, "Step 4. Learning true")
}

func sortedCopy(a []int) []int {
	retVal := append([]int(nil), a...)
	for i := 1; i < len(retVal); i++ {
		for j := i; j > 0 && retVal[j] < retVal[j-1]; j-- {
			retVal[j], retVal[j-1] = retVal[j-1], retVal[j]
		}
	}
	return retVal
}

func TestRunnerErrors(t *testing.T) {
	r := NewRunner(newTestChunkEncoder(t, 1), Config{Seed: 1})
	assert.Equal(t, "UNNAMED ENCODER", r.Name())

	boom := errors.New("boom")
	err := r.Run(func(int) ([]*compute.Grid, error) { return nil, boom }, 3, false)
	assert.Equal(t, boom, errors.Cause(err))
	assert.Equal(t, 0, r.CurrentStep())

	err = r.Step([]*compute.Grid{compute.NewGrid2D(compute.Int2{X: 2, Y: 2}, 1)}, false)
	assert.Error(t, err)
	assert.Equal(t, 0, r.CurrentStep())

	rec := &recorder{err: boom}
	r = NewRunner(newTestChunkEncoder(t, 1), Config{Seed: 1, OutputEncoder: rec})
	err = r.Run(randomSource(1), 2, false)
	assert.Equal(t, boom, errors.Cause(err))
	assert.Len(t, rec.states, 1)
}

func TestRunnerReset(t *testing.T) {
	r := NewRunner(newTestChunkEncoder(t, 1), Config{Seed: 1})
	require.NoError(t, r.Run(randomSource(1), 3, true))

	require.NoError(t, r.Reset())
	assert.Equal(t, 0, r.CurrentStep())
	assert.Empty(t, r.Statistics.Steps)
	for _, v := range r.HiddenStates().Data() {
		assert.Equal(t, float32(0), v)
	}
	assert.Contains(t, r.ExecLog(), "Reset after 3 steps")
}

func TestRunnerSaveLoad(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "encoder.model")

	a := NewRunner(newTestChunkEncoder(t, 1), Config{Name: "a", Seed: 1})
	require.NoError(t, a.Run(randomSource(3), 4, true))
	require.NoError(t, a.Save(filename))

	b := NewRunner(newTestChunkEncoder(t, 2), Config{Name: "b", Seed: 1})
	require.NoError(t, b.Load(filename))
	assert.Equal(t, a.HiddenStates().Data(), b.HiddenStates().Data())
	assert.Equal(t, a.ChunkWinners().Data(), b.ChunkWinners().Data())

	src := randomSource(4)
	inputs, err := src(0)
	require.NoError(t, err)
	require.NoError(t, a.Step(inputs, true))
	require.NoError(t, b.Step(inputs, true))
	assert.Equal(t, a.HiddenStates().Data(), b.HiddenStates().Data())

	assert.Error(t, b.Load(filepath.Join(dir, "missing.model")))
}

func TestStatisticsDump(t *testing.T) {
	r := NewRunner(newTestChunkEncoder(t, 1), Config{Seed: 1})
	require.NoError(t, r.Run(randomSource(1), 3, true))

	filename := filepath.Join(t.TempDir(), "stats.csv")
	require.NoError(t, r.Dump(filename))

	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"step", "churn", "active"}, records[0])
	assert.Equal(t, "2", records[3][0])
	assert.True(t, strings.HasPrefix(records[3][2], "0.111"), records[3][2])
}

func TestStatisticsChurn(t *testing.T) {
	s := makeStatistics()
	states := compute.NewGrid2D(compute.Int2{X: 4, Y: 2}, 1)
	states.Set(1, 0, 0, 1)
	states.Set(2, 1, 0, 1)
	winners := compute.NewGrid2D(compute.Int2{X: 2, Y: 1}, 2)
	winners.Set(0, 0, 0, 1) // chunk 0 winner at (1, 0)
	winners.Set(1, 0, 1, 1) // chunk 1 winner at (0, 1)

	churn, active := s.update(0, states, winners, []float32{1, 0, 0, 0})
	assert.Equal(t, float32(0.5), churn)
	assert.Equal(t, float32(0.25), active)
	assert.Equal(t, 6, s.DeadUnits())

	churn, _ = s.update(1, states, winners, winners.Data())
	assert.Equal(t, float32(0), churn)
	assert.Equal(t, float32(2), s.Usage[1])
}
