package outcome

import (
	"errors"

	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

// Recorder receives outcome records; the Sink and the history store both
// satisfy it.
type Recorder interface {
	Record(o domain.Outcome) error
}

// multi fans one outcome out to several recorders.
type multi struct {
	recorders []Recorder
}

// Multi combines recorders into one. Every recorder sees every outcome;
// errors are joined rather than short-circuiting, so a failing history
// store cannot starve the TSV log.
func Multi(recorders ...Recorder) Recorder {
	if len(recorders) == 1 {
		return recorders[0]
	}
	return &multi{recorders: recorders}
}

func (m *multi) Record(o domain.Outcome) error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.Record(o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
