// Package chunk implements a sparse-feature encoder with chunk-wise winner-take-all competition.
//
// The hidden layer is tiled into chunks. On every timestep exactly one unit per chunk becomes
// active: the one with the highest activation. Activations are the weighted sum of a short
// history of each input over a receptive field, plus a small bias towards the previous state.
// Learning moves the weights of the winners towards the inputs that made them win.
//
// Every mutable tensor is double buffered. Stages read the Back half and write the Front half,
// and StepEnd publishes the Front halves as the new committed state. A timestep is
//
//	enc.Activate(inputs, nil, rng)
//	// enc.HiddenStatesFront() holds the winners of this step
//	enc.Learn(nil, rng)
//	enc.StepEnd()
package chunk

import (
	"math/rand"

	"github.com/gorgonia/sparse/compute"
	"github.com/pkg/errors"
)

type kernelSet struct {
	derive, addSample, stimulus, activate, inhibit, inhibitOther, learn compute.Kernel
}

func (ks *kernelSet) load(prog *compute.Program) (err error) {
	for _, k := range []struct {
		name string
		dst  *compute.Kernel
	}{
		{DeriveInputsKernel, &ks.derive},
		{AddSampleKernel, &ks.addSample},
		{StimulusKernel, &ks.stimulus},
		{ActivateKernel, &ks.activate},
		{InhibitKernel, &ks.inhibit},
		{InhibitOtherKernel, &ks.inhibitOther},
		{LearnWeightsKernel, &ks.learn},
	} {
		if *k.dst, err = prog.LoadKernel(k.name); err != nil {
			return err
		}
	}
	return nil
}

// Encoder is the chunk sparse-feature encoder.
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	conf      Config
	chunkGrid compute.Int2

	sys     *compute.System
	kernels kernelSet

	visibleLayers []VisibleLayer

	hiddenStates        compute.DoubleBuffer
	hiddenActivations   compute.DoubleBuffer
	hiddenSummationTemp compute.DoubleBuffer
	chunkWinners        compute.DoubleBuffer
}

// New creates an encoder on the given compute system. The program must contain every kernel in
// Kernels. Weights are drawn from rng.
func New(sys *compute.System, prog *compute.Program, conf Config, rng *rand.Rand) (*Encoder, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("Invalid encoder configuration: %+v", conf)
	}

	e := &Encoder{
		conf:      conf.clone(),
		chunkGrid: conf.ChunkGridSize(),
		sys:       sys,
	}
	if err := e.kernels.load(prog); err != nil {
		return nil, errors.WithMessage(err, "Unable to create encoder")
	}

	e.visibleLayers = make([]VisibleLayer, len(e.conf.Visible))
	for i, desc := range e.conf.Visible {
		e.visibleLayers[i] = makeVisibleLayer(desc, e.conf.HiddenSize, e.chunkGrid, e.conf.NumSamples, e.conf.InitWeightRange, rng)
	}

	e.hiddenStates = compute.NewDoubleBuffer2D(e.conf.HiddenSize, 1)
	e.hiddenActivations = compute.NewDoubleBuffer2D(e.conf.HiddenSize, 1)
	e.hiddenSummationTemp = compute.NewDoubleBuffer2D(e.conf.HiddenSize, 1)
	e.chunkWinners = compute.NewDoubleBuffer2D(e.chunkGrid, 2)

	e.setDefaultActive()
	sys.Logger().Printf("Created chunk encoder. Hidden %v, chunks %v of %v, %d inputs, %d samples", e.conf.HiddenSize, e.chunkGrid, e.conf.ChunkSize, len(e.visibleLayers), e.conf.NumSamples)
	return e, nil
}

// setDefaultActive activates the first unit of every chunk, so that the committed state is a
// valid competition result before the first step.
func (e *Encoder) setDefaultActive() {
	states := e.hiddenStates.Back
	for cy := 0; cy < e.chunkGrid.Y; cy++ {
		for cx := 0; cx < e.chunkGrid.X; cx++ {
			states.Set(cx*e.conf.ChunkSize.X, cy*e.conf.ChunkSize.Y, 0, 1)
		}
	}
}

// Activate runs the encoder on the current inputs, one per visible layer. The new hidden states
// are written to the Front buffers and become visible after StepEnd. Weights are not touched.
//
// predictionsPrev and rng are unused by the chunk encoder; they may be nil.
func (e *Encoder) Activate(visibleStates []*compute.Grid, predictionsPrev *compute.Grid, rng *rand.Rand) error {
	if len(visibleStates) != len(e.visibleLayers) {
		return errors.Errorf("Expected %d visible states. Got %d instead", len(e.visibleLayers), len(visibleStates))
	}
	for i, vs := range visibleStates {
		want := compute.Int3{X: e.conf.Visible[i].Size.X, Y: e.conf.Visible[i].Size.Y, Z: 1}
		if vs == nil || vs.Size() != want {
			return errors.Errorf("Visible state %d must be a grid of size %v", i, want)
		}
	}

	q := e.sys.Queue()
	if err := q.Fill(e.hiddenSummationTemp.Back, 0); err != nil {
		return err
	}

	for i := range e.visibleLayers {
		vl := &e.visibleLayers[i]
		desc := e.conf.Visible[i]

		if err := q.Dispatch(e.kernels.derive, &deriveArgs{
			input:  visibleStates[i],
			back:   vl.DerivedInput.Back,
			front:  vl.DerivedInput.Front,
			lambda: desc.Lambda,
		}, desc.Size); err != nil {
			return err
		}

		if err := q.Dispatch(e.kernels.addSample, &addSampleArgs{
			derived:    vl.DerivedInput.Front,
			back:       vl.Samples.Back,
			front:      vl.Samples.Front,
			numSamples: e.conf.NumSamples,
		}, desc.Size); err != nil {
			return err
		}

		if err := q.Dispatch(e.kernels.stimulus, &stimulusArgs{
			field:   makeField(desc, vl, e.conf.NumSamples),
			samples: vl.Samples.Front,
			weights: vl.Weights.Back,
			out:     e.hiddenSummationTemp.Front,
		}, e.conf.HiddenSize); err != nil {
			return err
		}
		if err := q.Add(e.hiddenSummationTemp.Front, e.hiddenSummationTemp.Back); err != nil {
			return err
		}

		e.hiddenSummationTemp.Swap()
	}

	if err := q.Dispatch(e.kernels.activate, &activateArgs{
		stimulus:   e.hiddenSummationTemp.Back,
		statesPrev: e.hiddenStates.Back,
		out:        e.hiddenActivations.Front,
		stateBias:  e.conf.StateBias,
	}, e.conf.HiddenSize); err != nil {
		return err
	}

	return q.Dispatch(e.kernels.inhibit, &inhibitArgs{
		activations: e.hiddenActivations.Front,
		states:      e.hiddenStates.Front,
		winners:     e.chunkWinners.Front,
		hiddenSize:  e.conf.HiddenSize,
		chunkSize:   e.conf.ChunkSize,
	}, e.chunkGrid)
}

// Inhibit runs the chunk competition on activations supplied by the caller, writing the result
// into states. The encoder's own state is not modified.
func (e *Encoder) Inhibit(activations, states *compute.Grid, rng *rand.Rand) error {
	if activations == nil || states == nil {
		return errors.New("Inhibit requires both activations and states")
	}
	return e.sys.Queue().Dispatch(e.kernels.inhibitOther, &inhibitArgs{
		activations: activations,
		states:      states,
		hiddenSize:  e.conf.HiddenSize,
		chunkSize:   e.conf.ChunkSize,
	}, e.chunkGrid)
}

// Learn updates the weights of every input from the winners computed by the last Activate. It
// must be called after Activate and before StepEnd.
//
// predictionsPrev and rng are unused by the chunk encoder; they may be nil.
func (e *Encoder) Learn(predictionsPrev *compute.Grid, rng *rand.Rand) error {
	q := e.sys.Queue()
	for i := range e.visibleLayers {
		vl := &e.visibleLayers[i]
		desc := e.conf.Visible[i]

		if err := q.Dispatch(e.kernels.learn, &learnArgs{
			field:        makeField(desc, vl, e.conf.NumSamples),
			winners:      e.chunkWinners.Front,
			winnersPrev:  e.chunkWinners.Back,
			samples:      vl.Samples.Front,
			back:         vl.Weights.Back,
			front:        vl.Weights.Front,
			chunkSize:    e.conf.ChunkSize,
			alpha:        desc.WeightAlpha,
			unlearnScale: e.conf.UnlearnScale,
		}, e.conf.HiddenSize); err != nil {
			return err
		}

		vl.Weights.Swap()
	}
	return nil
}

// StepEnd commits the step: the states computed by Activate become the previous states of the
// next step.
func (e *Encoder) StepEnd() {
	e.hiddenStates.Swap()
	e.hiddenActivations.Swap()
	e.chunkWinners.Swap()

	for i := range e.visibleLayers {
		vl := &e.visibleLayers[i]
		vl.DerivedInput.Swap()
		vl.Samples.Swap()
	}
}

// ClearMemory resets the hidden states, activations and the input histories to zero. Weights are
// kept. Unlike a freshly created encoder, no unit is active afterwards.
func (e *Encoder) ClearMemory() error {
	q := e.sys.Queue()
	grids := []*compute.Grid{e.hiddenStates.Back, e.hiddenActivations.Back}
	for i := range e.visibleLayers {
		grids = append(grids, e.visibleLayers[i].DerivedInput.Back, e.visibleLayers[i].Samples.Back)
	}
	for _, g := range grids {
		if err := q.Fill(g, 0); err != nil {
			return err
		}
	}
	return nil
}

// Config returns a copy of the configuration of the encoder.
func (e *Encoder) Config() Config { return e.conf.clone() }

// HiddenSize returns the size of the hidden layer.
func (e *Encoder) HiddenSize() compute.Int2 { return e.conf.HiddenSize }

// ChunkSize returns the size of a chunk.
func (e *Encoder) ChunkSize() compute.Int2 { return e.conf.ChunkSize }

// ChunkGridSize returns the number of chunks along each axis.
func (e *Encoder) ChunkGridSize() compute.Int2 { return e.chunkGrid }

// NumSamples returns the depth of the input histories.
func (e *Encoder) NumSamples() int { return e.conf.NumSamples }

// NumVisibleLayers returns the number of inputs.
func (e *Encoder) NumVisibleLayers() int { return len(e.visibleLayers) }

// VisibleLayer returns the runtime state of the i-th input.
func (e *Encoder) VisibleLayer(i int) *VisibleLayer { return &e.visibleLayers[i] }

// VisibleLayerDesc returns the description of the i-th input.
func (e *Encoder) VisibleLayerDesc(i int) VisibleLayerDesc { return e.conf.Visible[i] }

// HiddenStates returns the committed binary hidden states.
func (e *Encoder) HiddenStates() *compute.Grid { return e.hiddenStates.Back }

// HiddenActivations returns the committed hidden activations.
func (e *Encoder) HiddenActivations() *compute.Grid { return e.hiddenActivations.Back }

// HiddenStatesFront returns the hidden states computed by the last Activate, before they are
// committed by StepEnd.
func (e *Encoder) HiddenStatesFront() *compute.Grid { return e.hiddenStates.Front }

// ChunkWinnersFront returns the winner offsets computed by the last Activate.
func (e *Encoder) ChunkWinnersFront() *compute.Grid { return e.chunkWinners.Front }

// ChunkWinners returns the committed winner offsets. Channel 0 holds the x offset of the winner
// within its chunk, channel 1 the y offset.
func (e *Encoder) ChunkWinners() *compute.Grid { return e.chunkWinners.Back }
