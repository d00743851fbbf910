package train

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/model"
	"github.com/born-ml/styleshift/internal/serialization"
)

// ModelType is recorded in every checkpoint header.
const ModelType = "styleshift"

// BestPath returns where the best parameters of a run saved to path go.
func BestPath(path string) string {
	return path + ".best"
}

// IterPath returns the per-iteration copy of path, e.g. model.iter1000.born.
func IterPath(path string, uidx int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s.iter%d%s", strings.TrimSuffix(path, ext), uidx, ext)
}

// saveCheckpoints writes the latest state, the best parameters when known
// and, unless overwriting, a copy tagged with the update index.
func (t *Trainer) saveCheckpoints() error {
	t.log.Info("Saving the model...")
	if err := t.saveLatest(); err != nil {
		return err
	}
	if t.best != nil {
		if err := t.save(BestPath(t.cfg.SaveTo), t.best, false); err != nil {
			return err
		}
		t.metrics.Checkpoint("best")
	}
	if !t.cfg.Overwrite {
		path := IterPath(t.cfg.SaveTo, t.uidx)
		t.log.Infof("Saving the model at iteration %d to %s", t.uidx, path)
		if err := t.save(path, t.model.Registry().StateDict(), false); err != nil {
			return err
		}
		t.metrics.Checkpoint("iter")
	}
	return nil
}

// saveLatest writes the current parameters with optimizer state to SaveTo.
func (t *Trainer) saveLatest() error {
	if t.cfg.SaveTo == "" {
		return nil
	}
	if err := t.save(t.cfg.SaveTo, t.model.Registry().StateDict(), true); err != nil {
		return err
	}
	t.metrics.Checkpoint("latest")
	return nil
}

func (t *Trainer) save(path string, params map[string]*mat.Dense, withOptimizer bool) error {
	state := make(map[string]*mat.Dense, len(params))
	for name, v := range params {
		state[name] = v
	}
	if withOptimizer {
		for i, opt := range t.opts {
			for name, v := range opt.StateDict() {
				state[serialization.OptimizerPrefix+strconv.Itoa(i)+"."+name] = v
			}
		}
	}

	header := serialization.Header{
		ModelType: ModelType,
		Checkpoint: &serialization.CheckpointMeta{
			RunID:         t.runID,
			UpdateIndex:   t.uidx,
			Epoch:         t.epoch,
			EpochBatches:  t.epochBatches,
			HistoryErrs:   t.History(),
			BadCounter:    t.bad,
			OptimizerType: t.opts[0].Name(),
			HasOptimizer:  withOptimizer,
		},
	}
	if err := serialization.SaveFile(path, state, header); err != nil {
		return errors.Wrapf(err, "can't save %s", path)
	}
	return errors.Wrap(serialization.SaveOptions(serialization.OptionsPath(path), t.model.Options()),
		"can't save options")
}

// reload restores parameters, optimizer state and progress from SaveTo.
// It reports false when there is no checkpoint to resume from.
func (t *Trainer) reload() (bool, error) {
	if _, err := os.Stat(t.cfg.SaveTo); os.IsNotExist(err) {
		t.log.Infof("No checkpoint at %s, starting from scratch", t.cfg.SaveTo)
		return false, nil
	}
	state, header, err := serialization.LoadFile(t.cfg.SaveTo)
	if err != nil {
		return false, err
	}
	params, optState := serialization.SplitOptimizer(state)
	if err := t.model.Registry().LoadStateDict(params); err != nil {
		return false, err
	}

	meta := header.Checkpoint
	if meta == nil {
		return true, nil
	}
	if meta.HasOptimizer {
		if meta.OptimizerType != t.opts[0].Name() {
			t.log.Warnf("Checkpoint optimizer %s differs from %s, starting with fresh optimizer state", meta.OptimizerType, t.opts[0].Name())
		} else {
			for i, opt := range t.opts {
				if err := opt.LoadStateDict(withoutPrefix(optState, strconv.Itoa(i)+".")); err != nil {
					return false, errors.Wrapf(err, "optimizer %d", i)
				}
			}
		}
	}
	if meta.RunID != "" {
		t.runID = meta.RunID
	}
	t.uidx = meta.UpdateIndex
	t.epoch = meta.Epoch
	t.epochBatches = meta.EpochBatches
	t.history = append([]float64(nil), meta.HistoryErrs...)
	t.bad = meta.BadCounter

	if best, _, err := serialization.LoadFile(BestPath(t.cfg.SaveTo)); err == nil {
		t.best = best
	}
	return true, nil
}

func withoutPrefix(state map[string]*mat.Dense, prefix string) map[string]*mat.Dense {
	out := make(map[string]*mat.Dense)
	for name, v := range state {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			out[rest] = v
		}
	}
	return out
}

// LoadModel rebuilds a model from the options companion of a checkpoint and
// loads its parameters.
func LoadModel(path string) (*model.Model, error) {
	var opts model.Options
	if err := serialization.LoadOptions(serialization.OptionsPath(path), &opts); err != nil {
		return nil, err
	}
	m, err := model.New(opts)
	if err != nil {
		return nil, err
	}
	state, _, err := serialization.LoadFile(path)
	if err != nil {
		return nil, err
	}
	params, _ := serialization.SplitOptimizer(state)
	if err := m.Registry().LoadStateDict(params); err != nil {
		return nil, errors.Wrapf(err, "can't load %s", path)
	}
	return m, nil
}
