package mjpeg

import (
	"bytes"
	"image/jpeg"
	"log"
	"net/http"
	"sync"

	"github.com/gorgonia/sparse"
	"github.com/gorgonia/sparse/encoding/internal/render"
	"github.com/mattn/go-mjpeg"
	"github.com/pkg/errors"
)

// Encoder is a structure that encodes a meta state according to the sparse.OutputEncoder interface.
// Every frame is pushed to a MJPEG stream served over HTTP.
type Encoder struct {
	*render.Renderer

	stream *mjpeg.Stream

	sync.Mutex
	last []byte
}

func (e *Encoder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.stream.ServeHTTP(w, r)
}

// NewEncoder with height and width
func NewEncoder(h, w int) *Encoder {
	return &Encoder{
		Renderer: render.New(h, w),
		stream:   mjpeg.NewStream(),
	}
}

// Encode a meta state as a frame of the stream
func (enc *Encoder) Encode(ms sparse.MetaState) error {
	im := enc.Render(ms)
	var b bytes.Buffer
	if err := jpeg.Encode(&b, im, nil); err != nil {
		log.Println(err)
		return errors.WithStack(err)
	}
	enc.Lock()
	enc.last = b.Bytes()
	enc.Unlock()
	if err := enc.stream.Update(b.Bytes()); err != nil {
		log.Println(err)
		return errors.WithStack(err)
	}
	return nil
}

// Last returns the JPEG of the last frame, or nil if nothing has been encoded.
func (enc *Encoder) Last() []byte {
	enc.Lock()
	defer enc.Unlock()
	return enc.last
}

// ServeLast serves the last frame as a single JPEG image.
func (enc *Encoder) ServeLast(w http.ResponseWriter, r *http.Request) {
	b := enc.Last()
	if b == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(b)
}

// Flush closes the stream.
func (enc *Encoder) Flush() error { return errors.WithStack(enc.stream.Close()) }
