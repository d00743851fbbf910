package train

import (
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/styleshift/internal/data"
	"github.com/born-ml/styleshift/internal/parallel"
)

// Validate returns the sum over both decoders of the mean per-sequence
// reconstruction cost on the validation data. A decoder with no examples
// contributes 0. Minibatches are evaluated concurrently.
func (t *Trainer) Validate() (float64, error) {
	if t.valid == nil {
		return 0, errors.New("no validation data")
	}
	if err := t.valid.Reset(); err != nil {
		return 0, errors.Wrap(err, "can't reset validation data")
	}

	var batches []*data.Batch
	for {
		mb, err := t.valid.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, errors.Wrap(err, "can't read validation data")
		}
		b, err := data.PrepareData(mb.Examples, 0)
		if errors.Is(err, data.ErrEmptyBatch) {
			continue
		}
		if err != nil {
			return 0, err
		}
		batches = append(batches, b)
	}

	costs := make([][][]float64, len(batches))
	parallel.For(len(batches), func(i int) {
		costs[i] = t.model.Evaluate(batches[i])
	}, t.par)

	errs := make([][]float64, t.model.Styles())
	for _, c := range costs {
		for s, seq := range c {
			errs[s] = append(errs[s], seq...)
		}
	}

	total := 0.0
	for _, e := range errs {
		if len(e) > 0 {
			total += floats.Sum(e) / float64(len(e))
		}
	}
	return total, nil
}

// validateAndTrack validates, updates the history and the best parameters,
// and reports whether training should stop early.
func (t *Trainer) validateAndTrack() (bool, error) {
	verr, err := t.Validate()
	if err != nil {
		return false, err
	}
	t.metrics.SetValidation(verr)
	improved, stop := t.track(verr)
	if improved || t.best == nil {
		t.best = t.model.Registry().Snapshot()
	}
	t.log.Infof("Valid %g", verr)
	return stop, nil
}

// track appends verr to the history and applies the patience rule: an error
// no better than the best before the last Patience validations counts as
// bad, and more than Patience bad validations stop training. It reports
// whether verr is the best so far.
func (t *Trainer) track(verr float64) (improved, stop bool) {
	t.history = append(t.history, verr)
	if verr <= floats.Min(t.history) {
		improved = true
		t.bad = 0
	}
	if p := t.cfg.Patience; len(t.history) > p && verr >= floats.Min(t.history[:len(t.history)-p]) {
		t.bad++
		stop = t.bad > p
	}
	return improved, stop
}
