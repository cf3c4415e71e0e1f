package sparse

import (
	"testing"

	"github.com/gorgonia/sparse/compute"
	"github.com/stretchr/testify/assert"
)

func TestRotateGrid(t *testing.T) {
	//
	// ⎢ 1 · · · 2 ⎥
	// ⎢ · 1 · 2 · ⎥ // this line is to break rotational symmetry
	// ⎢ · · · · · ⎥
	// ⎢ · · · · · ⎥
	// ⎢ 2 · · · 1 ⎥
	backing := []float32{
		1, 0, 0, 0, 2,
		0, 1, 0, 2, 0,
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
		2, 0, 0, 0, 1,
	}
	g, err := compute.GridFromBacking(compute.Int3{X: 5, Y: 5, Z: 1}, backing)
	if err != nil {
		t.Fatal(err)
	}

	rot1, err := RotateGrid(g)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("1:\n%v", rot1)
	// the top right corner moves to the top left
	assert.Equal(t, float32(2), rot1.At(0, 0, 0))
	assert.Equal(t, float32(2), rot1.At(1, 1, 0))
	assert.Equal(t, float32(1), rot1.At(1, 3, 0))

	rot2, err := RotateGrid(rot1)
	if err != nil {
		t.Fatal(err)
	}
	rot3, err := RotateGrid(rot2)
	if err != nil {
		t.Fatal(err)
	}
	rot4, err := RotateGrid(rot3)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, g.Data(), rot4.Data(), "After 4 rotations the grid should be the same")

	if _, err = RotateGrid(compute.NewGrid2D(compute.Int2{X: 3, Y: 2}, 1)); err == nil {
		t.Error("Expected non-square grids to be rejected")
	}
}

func TestMetaStateUnits(t *testing.T) {
	// hidden 5×3 in 2×2 chunks: a 3×2 chunk grid
	ms := MetaState{
		HiddenSize: compute.Int2{X: 5, Y: 3},
		ChunkSize:  compute.Int2{X: 2, Y: 2},
		States:     make([]float32, 15),
		Winners: []float32{
			1, 0, 0, 0, 1, 0, // x offsets
			0, 1, 0, 0, 0, 0, // y offsets
		},
	}
	want := []int{1, 7, 4, 10, 13, 14}
	assert.Equal(t, want, ms.WinnerUnits())

	for _, u := range want {
		ms.States[u] = 1
	}
	assert.Equal(t, []int{1, 4, 7, 10, 13, 14}, ms.ActiveUnits())
}
