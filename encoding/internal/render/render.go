// Package render draws the hidden states of a sparse.MetaState as a paletted image with a caption.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/freetype/truetype"
	"github.com/gorgonia/sparse"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

var regular *truetype.Font

const (
	dpi             = 144.0
	fontsize        = 12.0
	lineheight      = 1.2
	dummyLongString = `Step 1000000, churn 0.000`
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

// Palette indices of the rendered images.
const (
	Active = iota
	Inactive
	Border
)

var Palette = color.Palette{
	color.Gray{0},
	color.Gray{253},
	color.Gray{160},
}

// Renderer renders meta states. The layout is computed from the first state it sees.
type Renderer struct {
	H, W int
	font.Drawer

	face font.Face

	Cell        int // size of a hidden unit in pixels
	maxH, maxW  int // maxHeight and maxWidth
	padH, padW  int // padding so everything don't start at the topleft
	initialized bool
}

// New creates a renderer of images no larger than w×h.
func New(h, w int) *Renderer {
	return &Renderer{
		H:    -1,
		W:    -1,
		maxH: h,
		maxW: w,
		padH: 10,
		padW: 10,

		Drawer: font.Drawer{
			Src: image.Black,
		},
	}
}

func lineHeight() int { return int(math.Ceil(fontsize * lineheight * dpi / 72)) }

func (r *Renderer) init(ms sparse.MetaState) {
	r.face = truetype.NewFace(regular, &truetype.Options{
		Size:    fontsize,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	r.Drawer.Src = image.Black
	r.Drawer.Face = r.face

	dy := lineHeight()
	textW := maxInt(font.MeasureString(r.Face, ms.Name).Ceil(), font.MeasureString(r.Face, dummyLongString).Ceil())
	hx, hy := maxInt(ms.HiddenSize.X, 1), maxInt(ms.HiddenSize.Y, 1)
	r.Cell = maxInt(1, minInt((r.maxW-2*r.padW)/hx, (r.maxH-2*r.padH-2*dy)/hy))

	w := maxInt(r.Cell*hx, textW) + 2*r.padW
	h := r.Cell*hy + 2*dy + 2*r.padH // 2 lines of caption: name and step
	w = minInt(w, r.maxW)
	h = minInt(h, r.maxH)

	r.W = w
	r.H = h
	r.initialized = true
}

// Render draws the hidden states of ms. Active units are black and chunks are outlined.
func (r *Renderer) Render(ms sparse.MetaState) *image.Paletted {
	if !r.initialized {
		r.init(ms)
	}

	im := image.NewPaletted(image.Rect(0, 0, r.W, r.H), Palette)
	draw.Draw(im, im.Bounds(), image.White, image.Point{}, draw.Src)

	c := r.Cell
	var inset int
	if c > 2 {
		inset = 1
	}
	for i, v := range ms.States {
		x, y := i%ms.HiddenSize.X, i/ms.HiddenSize.X
		x0, y0 := r.padW+x*c, r.padH+y*c
		if x%maxInt(ms.ChunkSize.X, 1) == 0 && inset > 0 {
			fillRect(im, x0, y0, x0+1, y0+c, Border)
		}
		if y%maxInt(ms.ChunkSize.Y, 1) == 0 && inset > 0 {
			fillRect(im, x0, y0, x0+c, y0+1, Border)
		}
		if v != 0 {
			fillRect(im, x0+inset, y0+inset, x0+c, y0+c, Active)
		}
	}

	dy := lineHeight()
	y := r.padH + c*ms.HiddenSize.Y + dy
	r.Dst = im
	r.Dot = fixed.P(r.padW, y)
	r.DrawString(ms.Name)
	y += dy

	r.Dot = fixed.P(r.padW, y)
	r.DrawString(fmt.Sprintf("Step %d, churn %.3f", ms.Step, ms.Churn))
	return im
}

func fillRect(im *image.Paletted, x0, y0, x1, y1 int, idx uint8) {
	rect := image.Rect(x0, y0, x1, y1).Intersect(im.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			im.SetColorIndex(x, y, idx)
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
