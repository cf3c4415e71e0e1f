// Package signal generates synthetic inputs for sparse-feature encoders.
package signal

import (
	"math/rand"

	"github.com/gorgonia/sparse"
	"github.com/gorgonia/sparse/compute"
	"github.com/pkg/errors"
)

// Generator fills an input grid for a step.
type Generator interface {
	Size() compute.Int2
	Fill(step int, g *compute.Grid) error
}

// MovingBar is a bar of ones on a field of zeros that moves by Speed cells every step, wrapping
// around at the edges.
type MovingBar struct {
	size     compute.Int2
	Width    int
	Speed    int
	Vertical bool // a vertical bar moves horizontally
}

func NewMovingBar(size compute.Int2, width int) *MovingBar {
	return &MovingBar{
		size:     size,
		Width:    width,
		Speed:    1,
		Vertical: true,
	}
}

func (b *MovingBar) Size() compute.Int2 { return b.size }

func (b *MovingBar) Fill(step int, g *compute.Grid) error {
	if err := checkSize(b.size, g); err != nil {
		return err
	}
	span := b.size.Y
	if b.Vertical {
		span = b.size.X
	}
	pos := mod(step*b.Speed, span)
	for y := 0; y < b.size.Y; y++ {
		for x := 0; x < b.size.X; x++ {
			p := y
			if b.Vertical {
				p = x
			}
			var v float32
			if mod(p-pos, span) < b.Width {
				v = 1
			}
			g.Set(x, y, 0, v)
		}
	}
	return nil
}

// Noise is uniform noise. Each cell is 1 with probability Density, else 0. With Density 0 the
// cells take uniform values in [0, 1).
type Noise struct {
	size    compute.Int2
	Density float32
	rng     *rand.Rand
}

func NewNoise(size compute.Int2, density float32, seed int64) *Noise {
	return &Noise{
		size:    size,
		Density: density,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (n *Noise) Size() compute.Int2 { return n.size }

func (n *Noise) Fill(step int, g *compute.Grid) error {
	if err := checkSize(n.size, g); err != nil {
		return err
	}
	data := g.Data()
	for i := range data {
		r := n.rng.Float32()
		switch {
		case n.Density == 0:
			data[i] = r
		case r < n.Density:
			data[i] = 1
		default:
			data[i] = 0
		}
	}
	return nil
}

// Flip corrupts another generator by flipping each binary cell with probability P.
type Flip struct {
	Generator
	P   float32
	rng *rand.Rand
}

func NewFlip(g Generator, p float32, seed int64) *Flip {
	return &Flip{
		Generator: g,
		P:         p,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (f *Flip) Fill(step int, g *compute.Grid) error {
	if err := f.Generator.Fill(step, g); err != nil {
		return err
	}
	data := g.Data()
	for i := range data {
		if f.rng.Float32() < f.P {
			data[i] = 1 - data[i]
		}
	}
	return nil
}

// Source returns a source that feeds one input per generator. The grids are reused across steps.
func Source(gens ...Generator) sparse.Source {
	grids := make([]*compute.Grid, len(gens))
	for i, gen := range gens {
		grids[i] = compute.NewGrid2D(gen.Size(), 1)
	}
	return func(step int) ([]*compute.Grid, error) {
		for i, gen := range gens {
			if err := gen.Fill(step, grids[i]); err != nil {
				return nil, errors.WithMessage(err, "Unable to generate input")
			}
		}
		return grids, nil
	}
}

func checkSize(size compute.Int2, g *compute.Grid) error {
	if g.Size() != (compute.Int3{X: size.X, Y: size.Y, Z: 1}) {
		return errors.Errorf("Expected a grid of size %v. Got %v instead", size, g.Size())
	}
	return nil
}

func mod(a, b int) int {
	retVal := a % b
	if retVal < 0 {
		retVal += b
	}
	return retVal
}
