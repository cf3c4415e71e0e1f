// Package sparse drives sparse-feature encoders over a stream of inputs.
//
// A Runner steps an Encoder (such as the one in package chunk), keeps statistics of the hidden
// code and hands the committed state of every step to an OutputEncoder.
package sparse

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/gorgonia/sparse/compute"
	"github.com/pkg/errors"
)

// Runner is the top level structure and the entry point of the API. It steps an Encoder.
type Runner struct {
	// state
	Encoder
	Statistics
	step int

	// config
	name   string
	rng    *rand.Rand
	outEnc OutputEncoder

	// io
	buf    bytes.Buffer
	logger *log.Logger
}

// NewRunner creates a runner of the given encoder.
func NewRunner(enc Encoder, conf Config) *Runner {
	if enc == nil {
		panic("Encoder is nil. Unable to proceed")
	}
	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	name := conf.Name
	if name == "" {
		name = "UNNAMED ENCODER"
	}
	retVal := &Runner{
		Encoder:    enc,
		Statistics: makeStatistics(),
		name:       name,
		rng:        rand.New(rand.NewSource(seed)),
		outEnc:     conf.OutputEncoder,
	}
	retVal.logger = log.New(&retVal.buf, "", log.Ltime)
	return retVal
}

// Step runs one timestep of the encoder on inputs: activate, learn if asked to, and commit.
// The committed state is then recorded in the statistics and passed to the output encoder.
func (r *Runner) Step(inputs []*compute.Grid, learn bool) error {
	prevWinners := snapshot(r.ChunkWinners().Data())
	defer returnFloats(prevWinners)

	if err := r.Activate(inputs, nil, r.rng); err != nil {
		return errors.WithMessage(err, fmt.Sprintf("Step %d: activate failed", r.step))
	}
	if learn {
		if err := r.Learn(nil, r.rng); err != nil {
			return errors.WithMessage(err, fmt.Sprintf("Step %d: learn failed", r.step))
		}
	}
	r.StepEnd()

	churn, active := r.update(r.step, r.HiddenStates(), r.ChunkWinners(), prevWinners)
	r.logger.Printf("Step %d. Learning %t. Churn %.3f, active %.3f", r.step, learn, churn, active)

	if r.outEnc != nil {
		ms := MetaState{
			Step:           r.step,
			Name:           r.name,
			HiddenSize:     r.HiddenSize(),
			ChunkSize:      r.ChunkSize(),
			States:         snapshot(r.HiddenStates().Data()),
			Winners:        snapshot(r.ChunkWinners().Data()),
			Churn:          churn,
			ActiveFraction: active,
		}
		err := r.outEnc.Encode(ms)
		returnFloats(ms.States)
		returnFloats(ms.Winners)
		if err != nil {
			return errors.WithMessage(err, fmt.Sprintf("Step %d: unable to encode output", r.step))
		}
	}
	r.step++
	return nil
}

// Run steps the encoder on the inputs supplied by src. The output encoder is not flushed.
func (r *Runner) Run(src Source, steps int, learn bool) error {
	r.logger.Printf("Running %q for %d steps. Learning %t", r.name, steps, learn)
	r.logger.SetPrefix("\t")
	defer r.logger.SetPrefix("")
	for i := 0; i < steps; i++ {
		inputs, err := src(r.step)
		if err != nil {
			return errors.WithMessage(err, fmt.Sprintf("Step %d: source failed", r.step))
		}
		if err = r.Step(inputs, learn); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the memory of the encoder and the statistics. Weights are kept.
func (r *Runner) Reset() error {
	r.logger.Printf("Reset after %d steps", r.step)
	r.step = 0
	r.Statistics.reset()
	return r.ClearMemory()
}

// CurrentStep returns the number of steps run since creation or the last Reset.
func (r *Runner) CurrentStep() int { return r.step }

// Name returns the name of the runner.
func (r *Runner) Name() string { return r.name }

// ExecLog returns the execution log of the runner.
func (r *Runner) ExecLog() string { return r.buf.String() }

// Log writes the execution log into w.
func (r *Runner) Log(w io.Writer) {
	fmt.Fprint(w, r.buf.String())
}

// Save saves the encoder into filename
func (r *Runner) Save(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	if err = r.Encoder.Save(f); err != nil {
		return err
	}
	r.logger.Printf("Saved %q to %v", r.name, filename)
	return nil
}

// Load loads the encoder from filename. The encoder must have the shape of the saved one.
func (r *Runner) Load(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	if err = r.Encoder.Load(f); err != nil {
		return err
	}
	r.logger.Printf("Loaded %q from %v", r.name, filename)
	return nil
}
