package chunk

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/gorgonia/sparse/compute"
	"github.com/pkg/errors"
)

// ShapeMismatchError is returned by Load when the saved encoder does not have the shape of the
// encoder it is loaded into.
type ShapeMismatchError struct {
	Field       string
	Live, Saved interface{}
}

func (err *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch in %s: encoder has %v, saved state has %v", err.Field, err.Live, err.Saved)
}

type doubleBufferRecord struct {
	Size        compute.Int3
	Front, Back []float32
}

func recordDoubleBuffer(d *compute.DoubleBuffer) doubleBufferRecord {
	rec := doubleBufferRecord{
		Size:  d.Size(),
		Front: make([]float32, d.Size().Volume()),
		Back:  make([]float32, d.Size().Volume()),
	}
	copy(rec.Front, d.Front.Data())
	copy(rec.Back, d.Back.Data())
	return rec
}

func (rec *doubleBufferRecord) check(field string, d *compute.DoubleBuffer) error {
	if rec.Size != d.Size() {
		return errors.WithStack(&ShapeMismatchError{Field: field, Live: d.Size(), Saved: rec.Size})
	}
	if len(rec.Front) != d.Size().Volume() || len(rec.Back) != d.Size().Volume() {
		return errors.WithStack(&ShapeMismatchError{Field: field + " data", Live: d.Size().Volume(), Saved: [2]int{len(rec.Front), len(rec.Back)}})
	}
	return nil
}

func (rec *doubleBufferRecord) restore(d *compute.DoubleBuffer) {
	copy(d.Front.Data(), rec.Front)
	copy(d.Back.Data(), rec.Back)
}

type visibleLayerRecord struct {
	DerivedInput doubleBufferRecord
	Samples      doubleBufferRecord
	Weights      doubleBufferRecord

	HiddenToVisible compute.Float2
	VisibleToHidden compute.Float2
	ChunkToVisible  compute.Float2
	ReverseRadii    compute.Int2
}

type encoderRecord struct {
	Desc Config

	HiddenStates        doubleBufferRecord
	HiddenActivations   doubleBufferRecord
	ChunkWinners        doubleBufferRecord
	HiddenSummationTemp doubleBufferRecord

	VisibleLayers []visibleLayerRecord
}

// Save writes the configuration and the complete runtime state of the encoder to w. The encoder
// is not modified.
func (e *Encoder) Save(w io.Writer) error {
	rec := encoderRecord{
		Desc:                e.conf.clone(),
		HiddenStates:        recordDoubleBuffer(&e.hiddenStates),
		HiddenActivations:   recordDoubleBuffer(&e.hiddenActivations),
		ChunkWinners:        recordDoubleBuffer(&e.chunkWinners),
		HiddenSummationTemp: recordDoubleBuffer(&e.hiddenSummationTemp),
		VisibleLayers:       make([]visibleLayerRecord, len(e.visibleLayers)),
	}
	for i := range e.visibleLayers {
		vl := &e.visibleLayers[i]
		rec.VisibleLayers[i] = visibleLayerRecord{
			DerivedInput:    recordDoubleBuffer(&vl.DerivedInput),
			Samples:         recordDoubleBuffer(&vl.Samples),
			Weights:         recordDoubleBuffer(&vl.Weights),
			HiddenToVisible: vl.HiddenToVisible,
			VisibleToHidden: vl.VisibleToHidden,
			ChunkToVisible:  vl.ChunkToVisible,
			ReverseRadii:    vl.ReverseRadii,
		}
	}

	enc := gob.NewEncoder(w)
	if err := enc.Encode(&rec); err != nil {
		return errors.Wrapf(err, "Unable to save encoder")
	}
	return nil
}

// Load replaces the configuration and runtime state of the encoder with the state saved by Save.
// The saved encoder must have the same hidden size, number of inputs and tensor shapes. If it does
// not, a *ShapeMismatchError is returned and the encoder is left untouched.
//
// The scale factors of each input are restored as saved, not recomputed.
func (e *Encoder) Load(r io.Reader) error {
	var rec encoderRecord
	dec := gob.NewDecoder(r)
	if err := dec.Decode(&rec); err != nil {
		return errors.Wrapf(err, "Unable to load encoder")
	}
	if err := e.check(&rec); err != nil {
		return err
	}

	e.conf = rec.Desc.clone()
	e.chunkGrid = e.conf.ChunkGridSize()

	rec.HiddenStates.restore(&e.hiddenStates)
	rec.HiddenActivations.restore(&e.hiddenActivations)
	rec.ChunkWinners.restore(&e.chunkWinners)
	rec.HiddenSummationTemp.restore(&e.hiddenSummationTemp)

	for i := range e.visibleLayers {
		vl := &e.visibleLayers[i]
		vr := &rec.VisibleLayers[i]
		vr.DerivedInput.restore(&vl.DerivedInput)
		vr.Samples.restore(&vl.Samples)
		vr.Weights.restore(&vl.Weights)
		vl.HiddenToVisible = vr.HiddenToVisible
		vl.VisibleToHidden = vr.VisibleToHidden
		vl.ChunkToVisible = vr.ChunkToVisible
		vl.ReverseRadii = vr.ReverseRadii
	}
	e.sys.Logger().Printf("Loaded chunk encoder. Hidden %v, %d inputs", e.conf.HiddenSize, len(e.visibleLayers))
	return nil
}

// check validates every shape of the record against the live encoder.
func (e *Encoder) check(rec *encoderRecord) error {
	if rec.Desc.HiddenSize != e.conf.HiddenSize {
		return errors.WithStack(&ShapeMismatchError{Field: "hidden size", Live: e.conf.HiddenSize, Saved: rec.Desc.HiddenSize})
	}
	if len(rec.Desc.Visible) != len(e.visibleLayers) {
		return errors.WithStack(&ShapeMismatchError{Field: "visible layer descriptions", Live: len(e.visibleLayers), Saved: len(rec.Desc.Visible)})
	}
	if len(rec.VisibleLayers) != len(e.visibleLayers) {
		return errors.WithStack(&ShapeMismatchError{Field: "visible layers", Live: len(e.visibleLayers), Saved: len(rec.VisibleLayers)})
	}
	if !rec.Desc.IsValid() {
		return errors.Errorf("Saved encoder configuration is invalid: %+v", rec.Desc)
	}

	checks := []struct {
		field string
		rec   *doubleBufferRecord
		live  *compute.DoubleBuffer
	}{
		{"hidden states", &rec.HiddenStates, &e.hiddenStates},
		{"hidden activations", &rec.HiddenActivations, &e.hiddenActivations},
		{"chunk winners", &rec.ChunkWinners, &e.chunkWinners},
		{"hidden summation", &rec.HiddenSummationTemp, &e.hiddenSummationTemp},
	}
	for i := range e.visibleLayers {
		vl := &e.visibleLayers[i]
		vr := &rec.VisibleLayers[i]
		if rec.Desc.Visible[i].Size != e.conf.Visible[i].Size {
			return errors.WithStack(&ShapeMismatchError{Field: fmt.Sprintf("size of visible layer %d", i), Live: e.conf.Visible[i].Size, Saved: rec.Desc.Visible[i].Size})
		}
		checks = append(checks,
			struct {
				field string
				rec   *doubleBufferRecord
				live  *compute.DoubleBuffer
			}{fmt.Sprintf("derived input %d", i), &vr.DerivedInput, &vl.DerivedInput},
			struct {
				field string
				rec   *doubleBufferRecord
				live  *compute.DoubleBuffer
			}{fmt.Sprintf("samples %d", i), &vr.Samples, &vl.Samples},
			struct {
				field string
				rec   *doubleBufferRecord
				live  *compute.DoubleBuffer
			}{fmt.Sprintf("weights %d", i), &vr.Weights, &vl.Weights},
		)
	}
	for _, c := range checks {
		if err := c.rec.check(c.field, c.live); err != nil {
			return err
		}
	}
	return nil
}
