package chunk

import (
	"github.com/chewxy/math32"
	"github.com/gorgonia/sparse/compute"
)

// VisibleLayerDesc describes one input of the encoder.
type VisibleLayerDesc struct {
	Size         compute.Int2 // size of the input grid
	Radius       int          // receptive field radius, in input cells
	IgnoreMiddle bool         // exclude the center of the receptive field from the stimulus
	WeightAlpha  float32      // learning rate
	Lambda       float32      // derivative blend. 0 encodes the raw input, 1 its full temporal difference
}

// DefaultVisibleLayerDesc returns a description of a w×h input with sensible defaults.
func DefaultVisibleLayerDesc(w, h int) VisibleLayerDesc {
	return VisibleLayerDesc{
		Size:        compute.Int2{X: w, Y: h},
		Radius:      4,
		WeightAlpha: 0.01,
		Lambda:      0.5,
	}
}

func (d VisibleLayerDesc) IsValid() bool {
	return d.Size.X > 0 && d.Size.Y > 0 &&
		d.Radius >= 0 &&
		d.WeightAlpha >= 0 && !math32.IsInf(d.WeightAlpha, 0) &&
		d.Lambda >= 0 && d.Lambda <= 1
}

// weightDiam is the width of the receptive window.
func (d VisibleLayerDesc) weightDiam() int { return 2*d.Radius + 1 }

// numWeights is the depth of the weight grid of a layer.
func (d VisibleLayerDesc) numWeights(numSamples int) int {
	diam := d.weightDiam()
	return diam * diam * numSamples
}

// Config configures the encoder
type Config struct {
	Visible []VisibleLayerDesc

	HiddenSize compute.Int2
	ChunkSize  compute.Int2 // size of a winner-take-all group. Edge chunks may be smaller.
	NumSamples int          // depth of the per-input sample history

	InitWeightRange compute.Float2 // weights are drawn uniformly from [X, Y)

	StateBias    float32 // how much the previous hidden state adds to the activation of a unit
	UnlearnScale float32 // fraction of WeightAlpha by which a unit that lost its chunk moves away from the input
}

// DefaultConf returns a configuration of a w×h hidden layer over the given inputs.
func DefaultConf(w, h int, visible ...VisibleLayerDesc) Config {
	return Config{
		Visible:         visible,
		HiddenSize:      compute.Int2{X: w, Y: h},
		ChunkSize:       compute.Int2{X: 4, Y: 4},
		NumSamples:      2,
		InitWeightRange: compute.Float2{X: -0.01, Y: 0.01},
		StateBias:       0.01,
		UnlearnScale:    0.1,
	}
}

func (conf Config) IsValid() bool {
	if len(conf.Visible) == 0 {
		return false
	}
	for _, d := range conf.Visible {
		if !d.IsValid() {
			return false
		}
	}
	return conf.HiddenSize.X > 0 && conf.HiddenSize.Y > 0 &&
		conf.ChunkSize.X > 0 && conf.ChunkSize.Y > 0 &&
		conf.ChunkSize.X <= conf.HiddenSize.X && conf.ChunkSize.Y <= conf.HiddenSize.Y &&
		conf.NumSamples >= 1 &&
		conf.InitWeightRange.X <= conf.InitWeightRange.Y &&
		conf.StateBias >= 0 && !math32.IsInf(conf.StateBias, 0) &&
		conf.UnlearnScale >= 0 && !math32.IsInf(conf.UnlearnScale, 0)
}

// ChunkGridSize returns the number of chunks along each axis. Partial chunks at the edges count.
func (conf Config) ChunkGridSize() compute.Int2 {
	return compute.Int2{
		X: ceilDiv(conf.HiddenSize.X, conf.ChunkSize.X),
		Y: ceilDiv(conf.HiddenSize.Y, conf.ChunkSize.Y),
	}
}

func (conf Config) clone() Config {
	retVal := conf
	retVal.Visible = make([]VisibleLayerDesc, len(conf.Visible))
	copy(retVal.Visible, conf.Visible)
	return retVal
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }
