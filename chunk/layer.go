package chunk

import (
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/gorgonia/sparse/compute"
)

// VisibleLayer is the runtime state of one input.
type VisibleLayer struct {
	// DerivedInput has two channels: the current raw input and its filtered temporal difference.
	DerivedInput compute.DoubleBuffer

	// Samples is the history of the filtered difference. Layer 0 is the newest sample.
	Samples compute.DoubleBuffer

	// Weights has one layer per (sample, receptive field offset) pair for every hidden unit.
	Weights compute.DoubleBuffer

	HiddenToVisible compute.Float2
	VisibleToHidden compute.Float2
	ChunkToVisible  compute.Float2
	ReverseRadii    compute.Int2
}

func makeVisibleLayer(desc VisibleLayerDesc, hiddenSize, chunkGrid compute.Int2, numSamples int, initRange compute.Float2, rng *rand.Rand) VisibleLayer {
	vl := VisibleLayer{
		HiddenToVisible: compute.Float2{
			X: float32(desc.Size.X) / float32(hiddenSize.X),
			Y: float32(desc.Size.Y) / float32(hiddenSize.Y),
		},
		VisibleToHidden: compute.Float2{
			X: float32(hiddenSize.X) / float32(desc.Size.X),
			Y: float32(hiddenSize.Y) / float32(desc.Size.Y),
		},
		ChunkToVisible: compute.Float2{
			X: float32(desc.Size.X) / float32(chunkGrid.X),
			Y: float32(desc.Size.Y) / float32(chunkGrid.Y),
		},
	}
	vl.ReverseRadii = compute.Int2{
		X: int(math32.Ceil(vl.VisibleToHidden.X*float32(desc.Radius))) + 1,
		Y: int(math32.Ceil(vl.VisibleToHidden.Y*float32(desc.Radius))) + 1,
	}

	weightsSize := compute.Int3{X: hiddenSize.X, Y: hiddenSize.Y, Z: desc.numWeights(numSamples)}
	vl.Weights = compute.NewDoubleBuffer(weightsSize)
	randomUniform(vl.Weights.Back, initRange, rng)
	copy(vl.Weights.Front.Data(), vl.Weights.Back.Data())

	vl.DerivedInput = compute.NewDoubleBuffer2D(desc.Size, 2)
	vl.Samples = compute.NewDoubleBuffer2D(desc.Size, numSamples)
	return vl
}

func randomUniform(g *compute.Grid, r compute.Float2, rng *rand.Rand) {
	data := g.Data()
	span := r.Y - r.X
	for i := range data {
		data[i] = r.X + span*rng.Float32()
	}
}
