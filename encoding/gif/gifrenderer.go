package gif

import (
	"image/gif"
	"io"

	"github.com/gorgonia/sparse"
	"github.com/gorgonia/sparse/encoding/internal/render"
	"github.com/pkg/errors"
)

// Encoder is a structure that encodes a meta state according to the sparse.OutputEncoder interface.
// Frames are accumulated and written to the Writer by Flush.
type Encoder struct {
	*render.Renderer
	io.Writer

	Delay int // delay of each frame, in 100ths of a second
	out   *gif.GIF
}

// NewGifEncoder with height and width
func NewGifEncoder(h, w int) *Encoder {
	return &Encoder{
		Renderer: render.New(h, w),
		Delay:    10,
		out:      &gif.GIF{LoopCount: -1},
	}
}

// Encode a meta state as a frame
func (enc *Encoder) Encode(ms sparse.MetaState) error {
	im := enc.Render(ms)
	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, enc.Delay)
	return nil
}

// Frames returns the number of frames encoded so far.
func (enc *Encoder) Frames() int { return len(enc.out.Image) }

// Flush writes the gif into the writer
func (enc *Encoder) Flush() error {
	if enc.Writer == nil {
		return errors.New("No writer to flush the gif into")
	}
	if len(enc.out.Image) == 0 {
		return errors.New("No frames to flush")
	}
	return errors.WithStack(gif.EncodeAll(enc.Writer, enc.out))
}
