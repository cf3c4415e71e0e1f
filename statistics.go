package sparse

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/gorgonia/sparse/compute"
	"github.com/pkg/errors"
)

// Statistics records how the hidden code of an encoder evolves.
type Statistics struct {
	Steps          []int
	Churn          []float32 // fraction of chunks whose winner changed
	ActiveFraction []float32 // fraction of active hidden units
	Usage          []float32 // number of steps each hidden unit has been active
}

func makeStatistics() Statistics {
	return Statistics{
		Steps:          make([]int, 0, 64),
		Churn:          make([]float32, 0, 64),
		ActiveFraction: make([]float32, 0, 64),
	}
}

// update records a step. prevWinners is a copy of the winners before the step.
func (s *Statistics) update(step int, states, winners *compute.Grid, prevWinners []float32) (churn, active float32) {
	w := winners.Data()
	chunks := len(w) / 2
	var changed int
	for i := 0; i < chunks; i++ {
		if w[i] != prevWinners[i] || w[chunks+i] != prevWinners[chunks+i] {
			changed++
		}
	}
	churn = float32(changed) / float32(chunks)

	data := states.Data()
	if len(s.Usage) != len(data) {
		s.Usage = make([]float32, len(data))
	}
	var ones float32
	for i, v := range data {
		ones += v
		s.Usage[i] += v
	}
	active = ones / float32(len(data))

	s.Steps = append(s.Steps, step)
	s.Churn = append(s.Churn, churn)
	s.ActiveFraction = append(s.ActiveFraction, active)
	return churn, active
}

// DeadUnits returns the number of hidden units that have never been active.
func (s *Statistics) DeadUnits() int {
	var dead int
	for _, u := range s.Usage {
		if u == 0 {
			dead++
		}
	}
	return dead
}

func (s *Statistics) reset() {
	s.Steps = s.Steps[:0]
	s.Churn = s.Churn[:0]
	s.ActiveFraction = s.ActiveFraction[:0]
	s.Usage = nil
}

// Dump writes the per-step statistics to filename as CSV.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"step", "churn", "active"}); err != nil {
		return errors.WithStack(err)
	}
	records := make([][]string, 0, len(s.Steps))
	for i, step := range s.Steps {
		records = append(records, []string{
			strconv.Itoa(step),
			strconv.FormatFloat(float64(s.Churn[i]), 'f', 3, 32),
			strconv.FormatFloat(float64(s.ActiveFraction[i]), 'f', 3, 32),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
