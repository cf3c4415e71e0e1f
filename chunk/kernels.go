package chunk

import (
	"github.com/chewxy/math32"
	"github.com/gorgonia/sparse/compute"
	"github.com/pkg/errors"
)

// Names of the kernels the encoder resolves from its program.
const (
	DeriveInputsKernel = "sfcDeriveInputs"
	AddSampleKernel    = "sfcAddSample"
	StimulusKernel     = "sfcStimulus"
	ActivateKernel     = "sfcActivate"
	InhibitKernel      = "sfcInhibit"
	InhibitOtherKernel = "sfcInhibitOther"
	LearnWeightsKernel = "sfcLearnWeights"
)

// Kernels is the kernel library of the encoder. A program built without it cannot host an encoder.
var Kernels = compute.Library{
	DeriveInputsKernel: bindDeriveInputs,
	AddSampleKernel:    bindAddSample,
	StimulusKernel:     bindStimulus,
	ActivateKernel:     bindActivate,
	InhibitKernel:      bindInhibit,
	InhibitOtherKernel: bindInhibitOther,
	LearnWeightsKernel: bindLearnWeights,
}

type deriveArgs struct {
	input       *compute.Grid
	back, front *compute.Grid // derived inputs
	lambda      float32
}

// derived = (v, v - λ·prev)
func bindDeriveInputs(a interface{}) (compute.Body, error) {
	args, ok := a.(*deriveArgs)
	if !ok {
		return nil, errors.Errorf("Expected *deriveArgs. Got %T instead", a)
	}
	size := args.input.Size()
	if size.Z != 1 || args.back.Size() != (compute.Int3{X: size.X, Y: size.Y, Z: 2}) || !args.front.SameShape(args.back) {
		return nil, errors.Errorf("Input of size %v does not match derived inputs of size %v", size, args.back.Size())
	}
	return func(x, y int) {
		v := args.input.At(x, y, 0)
		prev := args.back.At(x, y, 0)
		args.front.Set(x, y, 0, v)
		args.front.Set(x, y, 1, v-args.lambda*prev)
	}, nil
}

type addSampleArgs struct {
	derived     *compute.Grid
	back, front *compute.Grid // samples
	numSamples  int
}

func bindAddSample(a interface{}) (compute.Body, error) {
	args, ok := a.(*addSampleArgs)
	if !ok {
		return nil, errors.Errorf("Expected *addSampleArgs. Got %T instead", a)
	}
	size := args.back.Size()
	if size.Z != args.numSamples || !args.front.SameShape(args.back) || args.derived.Size().XY() != size.XY() {
		return nil, errors.Errorf("Samples of size %v do not match derived inputs of size %v with %d samples", size, args.derived.Size(), args.numSamples)
	}
	return func(x, y int) {
		args.front.Set(x, y, 0, args.derived.At(x, y, 1))
		for s := 1; s < args.numSamples; s++ {
			args.front.Set(x, y, s, args.back.At(x, y, s-1))
		}
	}, nil
}

// field is the geometry of the receptive fields of one input.
type field struct {
	visibleSize     compute.Int2
	hiddenToVisible compute.Float2
	radius          int
	numSamples      int
	ignoreMiddle    bool
}

func makeField(desc VisibleLayerDesc, vl *VisibleLayer, numSamples int) field {
	return field{
		visibleSize:     desc.Size,
		hiddenToVisible: vl.HiddenToVisible,
		radius:          desc.Radius,
		numSamples:      numSamples,
		ignoreMiddle:    desc.IgnoreMiddle,
	}
}

// center returns the input cell the receptive field of hidden unit (hx, hy) is centered on.
func (f field) center(hx, hy int) (int, int) {
	return int((float32(hx) + 0.5) * f.hiddenToVisible.X), int((float32(hy) + 0.5) * f.hiddenToVisible.Y)
}

func (f field) diam() int { return 2*f.radius + 1 }

func (f field) depth() int {
	d := f.diam()
	return d * d * f.numSamples
}

// weightIndex is the layer of the weight grid that connects a hidden unit to the input cell at
// offset (dx, dy) from its center, in sample slot s.
func (f field) weightIndex(s, dx, dy int) int {
	d := f.diam()
	return s*d*d + (dy+f.radius)*d + (dx + f.radius)
}

// contributes reports whether the input cell at offset (dx, dy) of a field centered on (cx, cy)
// takes part in the stimulus.
func (f field) contributes(cx, cy, dx, dy int) bool {
	if f.ignoreMiddle && dx == 0 && dy == 0 {
		return false
	}
	vx, vy := cx+dx, cy+dy
	return vx >= 0 && vy >= 0 && vx < f.visibleSize.X && vy < f.visibleSize.Y
}

type stimulusArgs struct {
	field
	samples *compute.Grid
	weights *compute.Grid
	out     *compute.Grid
}

func bindStimulus(a interface{}) (compute.Body, error) {
	args, ok := a.(*stimulusArgs)
	if !ok {
		return nil, errors.Errorf("Expected *stimulusArgs. Got %T instead", a)
	}
	if args.samples.Size() != (compute.Int3{X: args.visibleSize.X, Y: args.visibleSize.Y, Z: args.numSamples}) {
		return nil, errors.Errorf("Samples of size %v do not match an input of size %v with %d samples", args.samples.Size(), args.visibleSize, args.numSamples)
	}
	if args.weights.Size().Z != args.depth() || args.weights.Size().XY() != args.out.Size().XY() {
		return nil, errors.Errorf("Weights of size %v do not match a hidden layer of size %v with %d weights per unit", args.weights.Size(), args.out.Size(), args.depth())
	}
	r := args.radius
	return func(hx, hy int) {
		cx, cy := args.center(hx, hy)
		var sum float32
		for s := 0; s < args.numSamples; s++ {
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					if !args.contributes(cx, cy, dx, dy) {
						continue
					}
					sum += args.samples.At(cx+dx, cy+dy, s) * args.weights.At(hx, hy, args.weightIndex(s, dx, dy))
				}
			}
		}
		args.out.Set(hx, hy, 0, sum)
	}, nil
}

type activateArgs struct {
	stimulus   *compute.Grid
	statesPrev *compute.Grid
	out        *compute.Grid
	stateBias  float32
}

func bindActivate(a interface{}) (compute.Body, error) {
	args, ok := a.(*activateArgs)
	if !ok {
		return nil, errors.Errorf("Expected *activateArgs. Got %T instead", a)
	}
	if !args.stimulus.SameShape(args.statesPrev) || !args.stimulus.SameShape(args.out) {
		return nil, errors.Errorf("Mismatched hidden grids: %v, %v, %v", args.stimulus.Size(), args.statesPrev.Size(), args.out.Size())
	}
	return func(x, y int) {
		args.out.Set(x, y, 0, args.stimulus.At(x, y, 0)+args.stateBias*args.statesPrev.At(x, y, 0))
	}, nil
}

type inhibitArgs struct {
	activations *compute.Grid
	states      *compute.Grid
	winners     *compute.Grid // nil for the external variant
	hiddenSize  compute.Int2
	chunkSize   compute.Int2
}

func bindInhibit(a interface{}) (compute.Body, error) {
	args, ok := a.(*inhibitArgs)
	if !ok {
		return nil, errors.Errorf("Expected *inhibitArgs. Got %T instead", a)
	}
	if args.winners == nil {
		return nil, errors.New("Chunk winners are required")
	}
	chunks := compute.Int2{X: ceilDiv(args.hiddenSize.X, args.chunkSize.X), Y: ceilDiv(args.hiddenSize.Y, args.chunkSize.Y)}
	if args.winners.Size() != (compute.Int3{X: chunks.X, Y: chunks.Y, Z: 2}) {
		return nil, errors.Errorf("Chunk winners of size %v do not match a chunk grid of %v", args.winners.Size(), chunks)
	}
	return inhibitBody(args)
}

func bindInhibitOther(a interface{}) (compute.Body, error) {
	args, ok := a.(*inhibitArgs)
	if !ok {
		return nil, errors.Errorf("Expected *inhibitArgs. Got %T instead", a)
	}
	if args.winners != nil {
		return nil, errors.New("The external inhibition kernel does not record chunk winners")
	}
	return inhibitBody(args)
}

func inhibitBody(args *inhibitArgs) (compute.Body, error) {
	hidden := compute.Int3{X: args.hiddenSize.X, Y: args.hiddenSize.Y, Z: 1}
	if args.activations.Size() != hidden || args.states.Size() != hidden {
		return nil, errors.Errorf("Activations %v and states %v must both be of size %v", args.activations.Size(), args.states.Size(), hidden)
	}
	return func(cx, cy int) {
		x0, y0 := cx*args.chunkSize.X, cy*args.chunkSize.Y
		x1, y1 := minInt(x0+args.chunkSize.X, args.hiddenSize.X), minInt(y0+args.chunkSize.Y, args.hiddenSize.Y)

		winX, winY := x0, y0
		best := math32.Inf(-1)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				if v := args.activations.At(x, y, 0); v > best {
					best = v
					winX, winY = x, y
				}
			}
		}

		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				var s float32
				if x == winX && y == winY {
					s = 1
				}
				args.states.Set(x, y, 0, s)
			}
		}

		if args.winners != nil {
			args.winners.Set(cx, cy, 0, float32(winX-x0))
			args.winners.Set(cx, cy, 1, float32(winY-y0))
		}
	}, nil
}

type learnArgs struct {
	field
	winners, winnersPrev *compute.Grid
	samples              *compute.Grid
	back, front          *compute.Grid // weights
	chunkSize            compute.Int2
	alpha                float32
	unlearnScale         float32
}

func bindLearnWeights(a interface{}) (compute.Body, error) {
	args, ok := a.(*learnArgs)
	if !ok {
		return nil, errors.Errorf("Expected *learnArgs. Got %T instead", a)
	}
	if !args.winners.SameShape(args.winnersPrev) || args.winners.Size().Z != 2 {
		return nil, errors.Errorf("Mismatched chunk winners: %v, %v", args.winners.Size(), args.winnersPrev.Size())
	}
	if !args.back.SameShape(args.front) || args.back.Size().Z != args.depth() {
		return nil, errors.Errorf("Weights of size %v and %v do not have %d weights per unit", args.back.Size(), args.front.Size(), args.depth())
	}
	if args.samples.Size() != (compute.Int3{X: args.visibleSize.X, Y: args.visibleSize.Y, Z: args.numSamples}) {
		return nil, errors.Errorf("Samples of size %v do not match an input of size %v with %d samples", args.samples.Size(), args.visibleSize, args.numSamples)
	}
	r := args.radius
	return func(hx, hy int) {
		cx, cy := hx/args.chunkSize.X, hy/args.chunkSize.Y
		ox, oy := hx-cx*args.chunkSize.X, hy-cy*args.chunkSize.Y

		var rate float32
		switch {
		case isWinner(args.winners, cx, cy, ox, oy):
			rate = args.alpha
		case isWinner(args.winnersPrev, cx, cy, ox, oy):
			rate = -args.alpha * args.unlearnScale
		}

		vx, vy := args.center(hx, hy)
		for s := 0; s < args.numSamples; s++ {
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					wi := args.weightIndex(s, dx, dy)
					w := args.back.At(hx, hy, wi)
					if rate != 0 && args.contributes(vx, vy, dx, dy) {
						w += rate * (args.samples.At(vx+dx, vy+dy, s) - w)
					}
					args.front.Set(hx, hy, wi, w)
				}
			}
		}
	}, nil
}

func isWinner(winners *compute.Grid, cx, cy, ox, oy int) bool {
	return int(winners.At(cx, cy, 0)) == ox && int(winners.At(cx, cy, 1)) == oy
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
