package sparse

import (
	"io"
	"math/rand"

	"github.com/gorgonia/sparse/chunk"
	"github.com/gorgonia/sparse/compute"
)

// Config configures a Runner.
type Config struct {
	Name string
	Seed int64 // seed of the random source handed to the encoder. 0 seeds from the clock

	// extensions
	OutputEncoder OutputEncoder
}

// Encoder is a sparse-feature encoder that can be stepped by a Runner. *chunk.Encoder is an Encoder.
type Encoder interface {
	Activate(visibleStates []*compute.Grid, predictionsPrev *compute.Grid, rng *rand.Rand) error
	Learn(predictionsPrev *compute.Grid, rng *rand.Rand) error
	StepEnd()
	ClearMemory() error
	Inhibit(activations, states *compute.Grid, rng *rand.Rand) error

	HiddenStates() *compute.Grid
	ChunkWinners() *compute.Grid
	HiddenSize() compute.Int2
	ChunkSize() compute.Int2

	Save(w io.Writer) error
	Load(r io.Reader) error
}

var _ Encoder = (*chunk.Encoder)(nil)

// Source supplies the inputs of a step, one grid per input of the encoder.
type Source func(step int) ([]*compute.Grid, error)

// OutputEncoder encodes the meta state of every step as whatever.
//
// An example OutputEncoder is the GIF encoder. Another example would be a websocket feed.
// The slices of a MetaState are only valid until Encode returns.
type OutputEncoder interface {
	Encode(ms MetaState) error
	Flush() error
}

// MetaState is the committed state of a runner after a step.
type MetaState struct {
	Step int
	Name string

	HiddenSize compute.Int2
	ChunkSize  compute.Int2

	States  []float32 // binary hidden states, row major
	Winners []float32 // chunk winner offsets. The first half holds the x offsets, the second the y offsets

	Churn          float32
	ActiveFraction float32
}

// ExecLogger is anything that can return the execution log.
type ExecLogger interface {
	ExecLog() string
}
