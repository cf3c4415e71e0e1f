package signal

import (
	"testing"

	"github.com/gorgonia/sparse/compute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func column(g *compute.Grid, x int) []float32 {
	retVal := make([]float32, g.Size().Y)
	for y := range retVal {
		retVal[y] = g.At(x, y, 0)
	}
	return retVal
}

func TestMovingBar(t *testing.T) {
	size := compute.Int2{X: 5, Y: 3}
	bar := NewMovingBar(size, 2)
	g := compute.NewGrid2D(size, 1)

	cases := []struct {
		step int
		ones []int // columns of the bar
	}{
		{0, []int{0, 1}},
		{1, []int{1, 2}},
		{4, []int{4, 0}},
		{5, []int{0, 1}},
	}
	for _, c := range cases {
		require.NoError(t, bar.Fill(c.step, g))
		for x := 0; x < size.X; x++ {
			want := []float32{0, 0, 0}
			for _, o := range c.ones {
				if o == x {
					want = []float32{1, 1, 1}
				}
			}
			assert.Equal(t, want, column(g, x), "step %d column %d", c.step, x)
		}
	}

	bar.Vertical = false
	bar.Width = 1
	require.NoError(t, bar.Fill(2, g))
	assert.Equal(t, []float32{0, 0, 1}, column(g, 3))

	assert.Error(t, bar.Fill(0, compute.NewGrid2D(compute.Int2{X: 3, Y: 3}, 1)))
}

func TestNoiseDeterministic(t *testing.T) {
	size := compute.Int2{X: 8, Y: 8}
	a, b := NewNoise(size, 0.25, 42), NewNoise(size, 0.25, 42)
	ga, gb := compute.NewGrid2D(size, 1), compute.NewGrid2D(size, 1)
	for step := 0; step < 3; step++ {
		require.NoError(t, a.Fill(step, ga))
		require.NoError(t, b.Fill(step, gb))
		assert.Equal(t, ga.Data(), gb.Data())
		for _, v := range ga.Data() {
			assert.True(t, v == 0 || v == 1)
		}
	}

	uniform := NewNoise(size, 0, 1)
	require.NoError(t, uniform.Fill(0, ga))
	for _, v := range ga.Data() {
		assert.True(t, v >= 0 && v < 1)
	}
}

func TestFlipAndSource(t *testing.T) {
	size := compute.Int2{X: 4, Y: 4}
	src := Source(NewMovingBar(size, 1), NewFlip(NewMovingBar(size, 1), 1, 3))

	grids, err := src(0)
	require.NoError(t, err)
	require.Len(t, grids, 2)
	for i := range grids[0].Data() {
		// flipping every cell inverts the bar
		assert.Equal(t, 1-grids[0].Data()[i], grids[1].Data()[i])
	}

	still := Source(&MovingBar{size: size, Width: 1})
	grids, err = still(0)
	require.NoError(t, err)
	assert.Equal(t, compute.Int3{X: 4, Y: 4, Z: 1}, grids[0].Size())
	assert.Equal(t, float32(1), grids[0].At(2, 0, 0), "a still horizontal bar stays on the first row")
	assert.Equal(t, float32(0), grids[0].At(2, 1, 0))
}
