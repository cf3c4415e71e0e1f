package sparse

import (
	"github.com/gorgonia/sparse/compute"
	"github.com/pkg/errors"
)

// ActiveUnits returns the row-major indices of the active hidden units.
func (ms MetaState) ActiveUnits() []int {
	retVal := make([]int, 0, len(ms.Winners)/2)
	for i, v := range ms.States {
		if v != 0 {
			retVal = append(retVal, i)
		}
	}
	return retVal
}

// WinnerUnits returns, for every chunk in row-major order, the index of its winning hidden unit.
func (ms MetaState) WinnerUnits() []int {
	chunks := len(ms.Winners) / 2
	if chunks == 0 || ms.ChunkSize.X == 0 {
		return nil
	}
	gridW := (ms.HiddenSize.X + ms.ChunkSize.X - 1) / ms.ChunkSize.X
	retVal := make([]int, chunks)
	for i := range retVal {
		cx, cy := i%gridW, i/gridW
		x := cx*ms.ChunkSize.X + int(ms.Winners[i])
		y := cy*ms.ChunkSize.Y + int(ms.Winners[chunks+i])
		retVal[i] = y*ms.HiddenSize.X + x
	}
	return retVal
}

// RotateGrid rotates every channel of a square grid by 90 degrees counterclockwise.
func RotateGrid(g *compute.Grid) (*compute.Grid, error) {
	size := g.Size()
	if size.X != size.Y {
		return nil, errors.Errorf("Cannot handle a grid of size %v. This function only takes square grids", size)
	}
	m := size.X
	retVal := compute.NewGrid(size)
	for z := 0; z < size.Z; z++ {
		for y := 0; y < m; y++ {
			for x := 0; x < m; x++ {
				// right to top
				retVal.Set(y, m-x-1, z, g.At(x, y, z))
			}
		}
	}
	return retVal, nil
}
