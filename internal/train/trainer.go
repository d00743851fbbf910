package train

import (
	"context"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff"
	"github.com/born-ml/styleshift/internal/data"
	"github.com/born-ml/styleshift/internal/metrics"
	"github.com/born-ml/styleshift/internal/model"
	"github.com/born-ml/styleshift/internal/optim"
	"github.com/born-ml/styleshift/internal/parallel"
)

// ErrNonFinite is returned when a training cost is NaN or infinite. The
// offending update is not applied.
var ErrNonFinite = errors.New("non-finite cost")

// Trainer drives the training of one model.
type Trainer struct {
	cfg     Config
	model   *model.Model
	opts    []optim.Optimizer
	train   data.Iterator
	valid   data.Iterator
	log     *logrus.Entry
	metrics *metrics.Collector
	srcDict *data.Dictionary
	tgtDict *data.Dictionary
	rng     *rand.Rand
	par     parallel.Config

	runID        string
	uidx         int
	epoch        int
	epochBatches int
	history      []float64
	bad          int
	best         map[string]*mat.Dense
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the logger; the default is the logrus standard logger.
func WithLogger(log *logrus.Entry) Option {
	return func(t *Trainer) { t.log = log }
}

// WithMetrics records progress on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(t *Trainer) { t.metrics = c }
}

// WithValidation evaluates on it every ValidFreq updates.
func WithValidation(it data.Iterator) Option {
	return func(t *Trainer) { t.valid = it }
}

// WithDictionaries decodes displayed samples to tokens.
func WithDictionaries(src, tgt *data.Dictionary) Option {
	return func(t *Trainer) { t.srcDict, t.tgtDict = src, tgt }
}

// WithParallel sets how validation minibatches are spread over goroutines.
func WithParallel(cfg parallel.Config) Option {
	return func(t *Trainer) { t.par = cfg }
}

// WithRand sets the source of randomness for sample display.
func WithRand(rng *rand.Rand) Option {
	return func(t *Trainer) { t.rng = rng }
}

// Result summarizes a finished run.
type Result struct {
	RunID        string
	Updates      int
	Epochs       int
	LastCost     float64
	ValidErr     float64
	EarlyStopped bool
}

// StepResult holds the costs of one applied update.
type StepResult struct {
	Style    int
	Cost     float64
	Class    float64
	Entropy  float64
	Duration time.Duration
}

// New creates a trainer with one optimizer per style decoder. With
// cfg.Reload set and a checkpoint at cfg.SaveTo, parameters, optimizer
// state and progress are restored from it.
func New(cfg Config, m *model.Model, train data.Iterator, options ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mo := m.Options()
	kind, err := optim.ParseKind(mo.Optimizer)
	if err != nil {
		return nil, err
	}

	t := &Trainer{cfg: cfg, model: m, train: train, runID: uuid.New().String(), par: parallel.DefaultConfig()}
	for s := 0; s < m.Styles(); s++ {
		opt, err := optim.New(kind, m.Registry().Parameters(), optim.Config{LR: mo.LRate})
		if err != nil {
			return nil, err
		}
		t.opts = append(t.opts, opt)
	}
	for _, o := range options {
		o(t)
	}
	if t.log == nil {
		t.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if t.rng == nil {
		t.rng = rand.New(rand.NewSource(mo.Seed)) //nolint:gosec // Reproducible sample display
	}
	t.log = t.log.WithField("run", t.runID)

	if cfg.Reload {
		loaded, err := t.reload()
		if err != nil {
			return nil, errors.Wrap(err, "can't reload checkpoint")
		}
		if loaded {
			t.log = t.log.WithField("run", t.runID)
			t.log.Infof("Reloaded %s at update %d, epoch %d", cfg.SaveTo, t.uidx, t.epoch)
		}
	}
	return t, nil
}

// Updates returns the number of applied updates.
func (t *Trainer) Updates() int {
	return t.uidx
}

// History returns the validation errors so far.
func (t *Trainer) History() []float64 {
	return append([]float64(nil), t.history...)
}

// Update runs one forward/backward pass on a minibatch and applies the
// optimizer of its style. It returns data.ErrEmptyBatch when no example
// fits the length limit and ErrNonFinite, without updating, when a cost is
// not finite.
func (t *Trainer) Update(mb data.Minibatch) (StepResult, error) {
	b, err := data.PrepareData(mb.Examples, t.model.Options().MaxLen)
	if err != nil {
		return StepResult{}, err
	}
	if mb.StyleIndex < 0 || mb.StyleIndex >= len(t.opts) {
		return StepResult{}, errors.Errorf("style index %d out of range", mb.StyleIndex)
	}

	start := time.Now()
	tape := autodiff.NewGradientTape()
	tape.StartRecording()
	costs := t.model.Forward(tape, b, mb.StyleIndex)
	res := StepResult{
		Style:   mb.StyleIndex,
		Cost:    model.Value(costs.Recon),
		Class:   model.Value(costs.Class),
		Entropy: model.Value(costs.Entropy),
	}
	for _, v := range []float64{res.Cost, res.Class, res.Entropy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return res, errors.Wrapf(ErrNonFinite, "cost %v, class %v, entropy %v", res.Cost, res.Class, res.Entropy)
		}
	}

	grads := t.model.Gradients(tape, costs)
	t.opts[mb.StyleIndex].Step(grads)
	res.Duration = time.Since(start)
	return res, nil
}

// Run trains until the epoch limit, the update ceiling, early stopping or
// cancellation of ctx. It then restores the best parameters, runs a final
// validation and saves the model.
func (t *Trainer) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: t.runID}
	skip := t.epochBatches
	estop := false
	t.log.WithFields(logrus.Fields{
		"optimizer": t.opts[0].Name(), "lr": t.opts[0].GetLR(), "decoders": len(t.opts),
		"update": t.uidx, "epoch": t.epoch,
	}).Info("Training started")

	for t.epoch < t.cfg.MaxEpochs {
		t.metrics.SetEpoch(t.epoch)
		if err := t.train.Reset(); err != nil {
			return res, errors.Wrap(err, "can't reset training data")
		}
		nSamples := 0
		for {
			if err := ctx.Err(); err != nil {
				t.log.Warn("Training interrupted")
				if serr := t.saveLatest(); serr != nil {
					t.log.Error(serr)
				}
				return t.result(res), err
			}
			mb, err := t.train.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return t.result(res), errors.Wrap(err, "can't read training data")
			}
			if skip > 0 {
				skip--
				continue
			}
			t.epochBatches++
			nSamples += len(mb.Examples)

			step, err := t.Update(mb)
			if errors.Is(err, data.ErrEmptyBatch) {
				t.log.Infof("Minibatch with zero sample under length %d", t.model.Options().MaxLen)
				t.metrics.SkipBatch()
				continue
			}
			if err != nil {
				return t.result(res), err
			}
			t.uidx++
			res.LastCost = step.Cost
			t.metrics.ObserveUpdate(step.Style, step.Cost, step.Class, step.Entropy, step.Duration)

			if every(t.uidx, t.cfg.DispFreq) {
				t.log.WithFields(logrus.Fields{
					"epoch": t.epoch, "update": t.uidx, "style": step.Style,
					"cost": step.Cost, "cost_d": step.Class, "cost_h": step.Entropy, "elapsed": step.Duration.Seconds(),
				}).Info("Update")
			}
			if every(t.uidx, t.cfg.SaveFreq) {
				if err := t.saveCheckpoints(); err != nil {
					return t.result(res), err
				}
			}
			if every(t.uidx, t.cfg.SampleFreq) {
				t.displaySamples(mb)
			}
			if t.valid != nil && every(t.uidx, t.cfg.ValidFreq) {
				stop, err := t.validateAndTrack()
				if err != nil {
					return t.result(res), err
				}
				if stop {
					t.log.Info("Early Stop!")
					res.EarlyStopped = true
					estop = true
					break
				}
			}
			if t.cfg.FinishAfter > 0 && t.uidx >= t.cfg.FinishAfter {
				t.log.Infof("Finishing after %d iterations!", t.uidx)
				estop = true
				break
			}
		}
		t.log.Infof("Seen %d samples", nSamples)
		if estop {
			break
		}
		t.epoch++
		t.epochBatches = 0
		skip = 0
	}

	if t.best != nil {
		if err := t.model.Registry().Restore(t.best); err != nil {
			return t.result(res), errors.Wrap(err, "can't restore best parameters")
		}
	}
	if t.valid != nil {
		verr, err := t.Validate()
		if err != nil {
			return t.result(res), err
		}
		res.ValidErr = verr
		t.log.Infof("Valid %g", verr)
	}
	if err := t.saveLatest(); err != nil {
		return t.result(res), err
	}
	return t.result(res), nil
}

func (t *Trainer) result(res Result) Result {
	res.Updates = t.uidx
	res.Epochs = t.epoch
	return res
}

func every(uidx, freq int) bool {
	return freq > 0 && uidx%freq == 0
}
