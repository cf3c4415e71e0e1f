package compute

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Int2 is a pair of integers, typically a width and a height.
type Int2 struct {
	X, Y int
}

// Area returns X*Y
func (i Int2) Area() int { return i.X * i.Y }

func (i Int2) Format(s fmt.State, c rune) { fmt.Fprintf(s, "(%d, %d)", i.X, i.Y) }

// Int3 is the logical size of a Grid. Z is the channel count or the depth.
type Int3 struct {
	X, Y, Z int
}

// Volume returns X*Y*Z
func (i Int3) Volume() int { return i.X * i.Y * i.Z }

// XY drops the Z component
func (i Int3) XY() Int2 { return Int2{i.X, i.Y} }

func (i Int3) Format(s fmt.State, c rune) { fmt.Fprintf(s, "(%d, %d, %d)", i.X, i.Y, i.Z) }

// Float2 is a pair of float32s, typically a per-axis scale factor.
type Float2 struct {
	X, Y float32
}

// Grid is a dense float32 grid resident on a compute system.
//
// The backing tensor has the shape (Z, Y, X), so x varies fastest. A 2D image with
// two channels is a Grid with Z == 2.
type Grid struct {
	size Int3
	t    *tensor.Dense
}

// NewGrid creates a zeroed grid of the given size.
func NewGrid(size Int3) *Grid {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		panic(fmt.Sprintf("Cannot create a grid of size %v", size))
	}
	return &Grid{
		size: size,
		t:    tensor.New(tensor.WithShape(size.Z, size.Y, size.X), tensor.Of(tensor.Float32)),
	}
}

// NewGrid2D creates a zeroed 2D grid with the given number of channels.
func NewGrid2D(size Int2, channels int) *Grid {
	return NewGrid(Int3{size.X, size.Y, channels})
}

// GridFromBacking creates a grid over the given backing slice. The slice is not copied.
func GridFromBacking(size Int3, backing []float32) (*Grid, error) {
	if len(backing) != size.Volume() {
		return nil, errors.Errorf("Expected a backing of %d elements for a grid of size %v. Got %d instead", size.Volume(), size, len(backing))
	}
	return &Grid{
		size: size,
		t:    tensor.New(tensor.WithShape(size.Z, size.Y, size.X), tensor.WithBacking(backing)),
	}, nil
}

// Size returns the logical size of the grid.
func (g *Grid) Size() Int3 { return g.size }

// Tensor returns the backing tensor.
func (g *Grid) Tensor() *tensor.Dense { return g.t }

// Data returns the backing slice.
func (g *Grid) Data() []float32 { return g.t.Data().([]float32) }

// Index returns the position of (x, y, z) in the backing slice.
func (g *Grid) Index(x, y, z int) int { return (z*g.size.Y+y)*g.size.X + x }

// InBounds reports whether (x, y) lies within the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.size.X && y < g.size.Y
}

// At returns the value at (x, y, z).
func (g *Grid) At(x, y, z int) float32 { return g.Data()[g.Index(x, y, z)] }

// Set sets the value at (x, y, z).
func (g *Grid) Set(x, y, z int, v float32) { g.Data()[g.Index(x, y, z)] = v }

// Channel returns the slice of the backing for layer z.
func (g *Grid) Channel(z int) []float32 {
	area := g.size.X * g.size.Y
	return g.Data()[z*area : (z+1)*area]
}

// SameShape returns true if both grids have the same logical size.
func (g *Grid) SameShape(other *Grid) bool { return g.size == other.size }

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	return &Grid{
		size: g.size,
		t:    g.t.Clone().(*tensor.Dense),
	}
}

// WriteNpy writes the grid as a numpy array of shape (Z, Y, X).
func (g *Grid) WriteNpy(w io.Writer) error {
	return errors.WithStack(g.t.WriteNpy(w))
}

func (g *Grid) Format(s fmt.State, c rune) {
	fmt.Fprintf(s, "Grid%v\n", g.size)
	g.t.Format(s, c)
}

// DoubleBuffer is a pair of identically shaped grids. Back holds the last committed state
// and is the only half that is read by consumers. Front is the scratch half that the step in
// progress writes into.
type DoubleBuffer struct {
	Front, Back *Grid
}

// NewDoubleBuffer creates a double buffer with both halves zeroed.
func NewDoubleBuffer(size Int3) DoubleBuffer {
	return DoubleBuffer{
		Front: NewGrid(size),
		Back:  NewGrid(size),
	}
}

// NewDoubleBuffer2D creates a 2D double buffer with the given number of channels.
func NewDoubleBuffer2D(size Int2, channels int) DoubleBuffer {
	return NewDoubleBuffer(Int3{size.X, size.Y, channels})
}

// Swap publishes Front as the committed state.
func (d *DoubleBuffer) Swap() { d.Front, d.Back = d.Back, d.Front }

// Size returns the size of each half.
func (d *DoubleBuffer) Size() Int3 { return d.Back.size }
