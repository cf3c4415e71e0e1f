package compute

import (
	"io/ioutil"
	"log"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"gorgonia.org/vecf32"
)

// System is the compute device an encoder runs on. It owns a single ordered command queue.
type System struct {
	queue  *Queue
	logger *log.Logger
}

// NewSystem creates a CPU compute system. If workers <= 0, runtime.NumCPU() workers are used.
// A nil logger discards all output.
func NewSystem(workers int, logger *log.Logger) *System {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}
	return &System{
		queue: &Queue{
			workers: workers,
			logger:  logger,
		},
		logger: logger,
	}
}

// Queue returns the command queue of the system.
func (s *System) Queue() *Queue { return s.queue }

// Logger returns the logger of the system.
func (s *System) Logger() *log.Logger { return s.logger }

// Queue executes commands in the order they are submitted. Every command has completed by the
// time the call that submitted it returns, so a command always observes the results of all
// commands submitted before it.
//
// A Queue is not safe for concurrent submission.
type Queue struct {
	workers int
	logger  *log.Logger

	dispatches int
}

// Workers returns the number of workers a dispatch is split over.
func (q *Queue) Workers() int { return q.workers }

// Dispatches returns the number of kernel dispatches executed so far.
func (q *Queue) Dispatches() int { return q.dispatches }

// Fill sets every element of g to v.
func (q *Queue) Fill(g *Grid, v float32) error {
	return errors.WithStack(g.t.Memset(v))
}

// FillChannel sets every element of the z-th layer of g to v.
func (q *Queue) FillChannel(g *Grid, z int, v float32) error {
	if z < 0 || z >= g.size.Z {
		return errors.Errorf("Cannot fill channel %d of a grid of size %v", z, g.size)
	}
	ch := g.Channel(z)
	for i := range ch {
		ch[i] = v
	}
	return nil
}

// Copy copies src into dst. Both must have the same size.
func (q *Queue) Copy(dst, src *Grid) error {
	if !dst.SameShape(src) {
		return errors.Errorf("Cannot copy a grid of size %v into a grid of size %v", src.size, dst.size)
	}
	copy(dst.Data(), src.Data())
	return nil
}

// Add adds src into dst elementwise. Both must have the same size.
func (q *Queue) Add(dst, src *Grid) error {
	if !dst.SameShape(src) {
		return errors.Errorf("Cannot add a grid of size %v into a grid of size %v", src.size, dst.size)
	}
	vecf32.Add(dst.Data(), src.Data())
	return nil
}

// Dispatch binds args to k and runs the resulting body over every (x, y) with 0 <= x < r.X
// and 0 <= y < r.Y. Rows are split across the workers of the queue.
func (q *Queue) Dispatch(k Kernel, args interface{}, r Int2) error {
	if r.X <= 0 || r.Y <= 0 {
		return errors.Errorf("Cannot dispatch kernel %q over an empty range %v", k.Name(), r)
	}
	body, err := k.Bind(args)
	if err != nil {
		return err
	}
	q.dispatches++

	workers := q.workers
	if workers > r.Y {
		workers = r.Y
	}
	if workers == 1 {
		runRows(body, 0, r.Y, r.X)
		return nil
	}

	var wg sync.WaitGroup
	rows := (r.Y + workers - 1) / workers
	for start := 0; start < r.Y; start += rows {
		end := start + rows
		if end > r.Y {
			end = r.Y
		}
		wg.Add(1)
		go func(start, end int) {
			runRows(body, start, end, r.X)
			wg.Done()
		}(start, end)
	}
	wg.Wait()
	return nil
}

// Finish blocks until all submitted commands have completed. Commands on a CPU queue complete
// before submission returns, so this only logs.
func (q *Queue) Finish() {
	q.logger.Printf("Queue finished. %d dispatches", q.dispatches)
}

func runRows(body Body, start, end, width int) {
	for y := start; y < end; y++ {
		for x := 0; x < width; x++ {
			body(x, y)
		}
	}
}
