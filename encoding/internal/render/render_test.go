package render

import (
	"testing"

	"github.com/gorgonia/sparse"
	"github.com/gorgonia/sparse/compute"
	"github.com/stretchr/testify/assert"
)

func testState() sparse.MetaState {
	ms := sparse.MetaState{
		Step:       3,
		Name:       "render",
		HiddenSize: compute.Int2{X: 4, Y: 4},
		ChunkSize:  compute.Int2{X: 2, Y: 2},
		States:     make([]float32, 16),
		Winners:    make([]float32, 8),
	}
	ms.States[5] = 1 // (1, 1)
	return ms
}

func TestRender(t *testing.T) {
	r := New(400, 400)
	im := r.Render(testState())

	assert.Equal(t, 80, r.Cell)
	assert.Equal(t, r.W, im.Bounds().Dx())
	assert.Equal(t, r.H, im.Bounds().Dy())
	assert.True(t, r.W <= 400 && r.H <= 400)

	assert.Equal(t, uint8(Active), im.ColorIndexAt(130, 130), "center of unit (1, 1)")
	assert.Equal(t, uint8(Inactive), im.ColorIndexAt(210, 210), "center of unit (2, 2)")
	assert.Equal(t, uint8(Border), im.ColorIndexAt(170, 210), "left edge of chunk (1, 1)")

	// the layout is fixed after the first frame
	ms := testState()
	ms.Name = "a much longer name that would not have fit"
	im = r.Render(ms)
	assert.Equal(t, r.W, im.Bounds().Dx())
}

func TestRenderTiny(t *testing.T) {
	r := New(10, 10)
	im := r.Render(testState())
	assert.Equal(t, 1, r.Cell)
	assert.Equal(t, 10, im.Bounds().Dx())
	assert.Equal(t, 10, im.Bounds().Dy())
}
