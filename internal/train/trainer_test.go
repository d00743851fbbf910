package train

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/data"
	"github.com/born-ml/styleshift/internal/metrics"
	"github.com/born-ml/styleshift/internal/model"
	"github.com/born-ml/styleshift/internal/parallel"
	"github.com/born-ml/styleshift/internal/serialization"
)

func toyOptions() model.Options {
	opts := model.DefaultOptions()
	opts.DimWord = 4
	opts.Dim = 6
	opts.NWordsSrc = 3
	opts.NWords = 3
	opts.MaxLen = 10
	opts.BatchSize = 1
	opts.Seed = 11
	return opts
}

// toyCorpus yields four minibatches per epoch with batch size 1,
// alternating styles.
func toyCorpus() []data.Example {
	return []data.Example{
		{Source: []int{1, 2}, Target: []int{1, 2}, Label: 0},
		{Source: []int{2, 1}, Target: []int{2, 1}, Label: 1},
		{Source: []int{1, 1}, Target: []int{1, 1}, Label: 0},
		{Source: []int{2, 2}, Target: []int{2, 2}, Label: 1},
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxEpochs = 2
	cfg.DispFreq = 1
	cfg.ValidFreq = 0
	cfg.SaveFreq = 0
	cfg.SampleFreq = 0
	cfg.Overwrite = true
	cfg.SaveTo = filepath.Join(t.TempDir(), "model.born")
	return cfg
}

func quietLogger() *logrus.Entry {
	log, _ := logtest.NewNullLogger()
	return logrus.NewEntry(log)
}

func newTrainer(t *testing.T, cfg Config, examples []data.Example, options ...Option) *Trainer {
	t.Helper()
	m, err := model.New(toyOptions())
	require.NoError(t, err)
	options = append([]Option{WithLogger(quietLogger())}, options...)
	tr, err := New(cfg, m, data.NewSliceIterator(examples, 1, 2), options...)
	require.NoError(t, err)
	return tr
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MaxEpochs = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SaveTo = ""
	assert.Error(t, cfg.Validate())

	cfg.SaveFreq = 0
	assert.NoError(t, cfg.Validate())
}

func TestNew_UnknownOptimizer(t *testing.T) {
	opts := toyOptions()
	opts.Optimizer = "lbfgs"
	m, err := model.New(opts)
	require.NoError(t, err)
	_, err = New(testConfig(t), m, data.NewSliceIterator(toyCorpus(), 1, 2))
	assert.Error(t, err)
}

func TestRun_CountsUpdates(t *testing.T) {
	cfg := testConfig(t)
	tr := newTrainer(t, cfg, toyCorpus())

	res, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, res.Updates)
	assert.Equal(t, 2, res.Epochs)
	assert.False(t, res.EarlyStopped)
	assert.NotEmpty(t, res.RunID)
	assert.False(t, math.IsNaN(res.LastCost))

	assert.FileExists(t, cfg.SaveTo)
	assert.FileExists(t, serialization.OptionsPath(cfg.SaveTo))
}

func TestRun_SkipsEmptyBatches(t *testing.T) {
	long := make([]int, 12)
	for i := range long {
		long[i] = 1
	}
	examples := append(toyCorpus(), data.Example{Source: long, Target: long, Label: 1})

	collector, err := metrics.NewCollector()
	require.NoError(t, err)
	cfg := testConfig(t)
	cfg.MaxEpochs = 1
	tr := newTrainer(t, cfg, examples, WithMetrics(collector))

	res, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Updates)

	families, err := collector.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "styleshift_empty_batches_total" {
			found = true
			assert.Equal(t, 1.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestRun_ReconstructionImprovesWithAdversary(t *testing.T) {
	opts := toyOptions()
	require.True(t, opts.StyleClass)
	require.True(t, opts.StyleAdv)
	require.Equal(t, "adadelta", opts.Optimizer)

	cfg := testConfig(t)
	cfg.MaxEpochs = 40
	cfg.DispFreq = 0
	tr := newTrainer(t, cfg, toyCorpus(), WithValidation(data.NewSliceIterator(toyCorpus(), 1, 2)))
	require.Len(t, tr.opts, 2)

	initial := make(map[string]*mat.Dense)
	for name, v := range tr.model.Registry().StateDict() {
		initial[name] = mat.DenseCopyOf(v)
	}
	before, err := tr.Validate()
	require.NoError(t, err)

	res, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 160, res.Updates)

	after, err := tr.Validate()
	require.NoError(t, err)
	assert.Less(t, after, before)

	state := tr.model.Registry().StateDict()
	for _, name := range []string{"readout.style0.logit.W", "readout.style1.logit.W", "adversary.M1", "encoder.embedding.W"} {
		require.Contains(t, state, name)
		assert.False(t, mat.Equal(initial[name], state[name]), "%s was not updated", name)
	}
}

func TestUpdate_EmptyBatch(t *testing.T) {
	tr := newTrainer(t, testConfig(t), toyCorpus())
	long := make([]int, 20)
	_, err := tr.Update(data.Minibatch{Examples: []data.Example{{Source: long, Target: long}}})
	assert.ErrorIs(t, err, data.ErrEmptyBatch)
	assert.Zero(t, tr.Updates())
}

func TestUpdate_NonFiniteLeavesParameters(t *testing.T) {
	tr := newTrainer(t, testConfig(t), toyCorpus())
	state := tr.model.Registry().StateDict()
	state["adversary.M1"].Set(0, 0, math.NaN())
	before := mat.DenseCopyOf(state["encoder.embedding.W"])

	_, err := tr.Update(data.Minibatch{Examples: toyCorpus()[:1]})
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.True(t, mat.Equal(before, state["encoder.embedding.W"]))

	res, err := tr.Run(context.Background())
	assert.ErrorIs(t, err, ErrNonFinite)
	assert.Zero(t, res.Updates)
}

func TestRun_FinishAfter(t *testing.T) {
	cfg := testConfig(t)
	cfg.FinishAfter = 3
	tr := newTrainer(t, cfg, toyCorpus())

	res, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updates)

	_, header, err := serialization.LoadFile(cfg.SaveTo)
	require.NoError(t, err)
	require.NotNil(t, header.Checkpoint)
	assert.Equal(t, 3, header.Checkpoint.UpdateIndex)
	assert.Equal(t, 0, header.Checkpoint.Epoch)
	assert.Equal(t, 3, header.Checkpoint.EpochBatches)
	assert.True(t, header.Checkpoint.HasOptimizer)
	assert.Equal(t, res.RunID, header.Checkpoint.RunID)
}

func TestRun_ResumeMatchesUninterrupted(t *testing.T) {
	const n = 5 // crosses the first epoch boundary

	for _, kind := range []string{"adadelta", "adam", "rmsprop", "sgd"} {
		t.Run(kind, func(t *testing.T) {
			opts := toyOptions()
			opts.Optimizer = kind
			build := func(cfg Config) *Trainer {
				m, err := model.New(opts)
				require.NoError(t, err)
				tr, err := New(cfg, m, data.NewSliceIterator(toyCorpus(), 1, 2), WithLogger(quietLogger()))
				require.NoError(t, err)
				return tr
			}

			straight := testConfig(t)
			straight.MaxEpochs = 10
			straight.FinishAfter = n + 1
			want, err := build(straight).Run(context.Background())
			require.NoError(t, err)

			first := testConfig(t)
			first.MaxEpochs = 10
			first.FinishAfter = n
			_, err = build(first).Run(context.Background())
			require.NoError(t, err)

			second := first
			second.FinishAfter = n + 1
			second.Reload = true
			resumed := build(second)
			assert.Equal(t, n, resumed.Updates())
			got, err := resumed.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, n+1, got.Updates)
			assert.InDelta(t, want.LastCost, got.LastCost, 1e-9)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	cfg := testConfig(t)
	tr := newTrainer(t, cfg, toyCorpus())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := tr.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Updates)
	assert.FileExists(t, cfg.SaveTo)
}

func TestRun_ValidationAndCheckpoints(t *testing.T) {
	cfg := testConfig(t)
	cfg.ValidFreq = 2
	cfg.SaveFreq = 4
	cfg.Overwrite = false
	tr := newTrainer(t, cfg, toyCorpus(), WithValidation(data.NewSliceIterator(toyCorpus(), 2, 2)))

	res, err := tr.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, tr.History(), 4)
	assert.Greater(t, res.ValidErr, 0.0)
	assert.InDelta(t, floats.Min(tr.History()), res.ValidErr, 1e-9, "best parameters are restored")
	assert.FileExists(t, cfg.SaveTo)
	assert.FileExists(t, BestPath(cfg.SaveTo))
	assert.FileExists(t, IterPath(cfg.SaveTo, 4))
	assert.FileExists(t, IterPath(cfg.SaveTo, 8))
}

func TestValidate(t *testing.T) {
	tr := newTrainer(t, testConfig(t), toyCorpus(), WithValidation(data.NewSliceIterator(toyCorpus(), 4, 2)))
	got, err := tr.Validate()
	require.NoError(t, err)

	b, err := data.PrepareData(toyCorpus(), 0)
	require.NoError(t, err)
	want := 0.0
	for _, costs := range tr.model.Evaluate(b) {
		want += floats.Sum(costs) / float64(len(costs))
	}
	assert.InDelta(t, want, got, 1e-9)

	empty := newTrainer(t, testConfig(t), toyCorpus(), WithValidation(data.NewSliceIterator(nil, 4, 2)))
	got, err = empty.Validate()
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestTrack_Patience(t *testing.T) {
	tr := &Trainer{cfg: Config{Patience: 1}}

	improved, stop := tr.track(5)
	assert.True(t, improved)
	assert.False(t, stop)

	improved, stop = tr.track(4)
	assert.True(t, improved)
	assert.False(t, stop)

	improved, stop = tr.track(4.5)
	assert.False(t, improved)
	assert.False(t, stop)
	assert.Equal(t, 1, tr.bad)

	_, stop = tr.track(4.6)
	assert.True(t, stop)
	assert.Equal(t, []float64{5, 4, 4.5, 4.6}, tr.History())
}

func TestRun_DisplaysSamples(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	cfg := testConfig(t)
	cfg.MaxEpochs = 1
	cfg.SampleFreq = 1
	dict := data.NewDictionary(map[string]int{"eos": 0, "a": 1, "b": 2})
	tr := newTrainer(t, cfg, toyCorpus(), WithLogger(logrus.NewEntry(log)), WithDictionaries(dict, dict))

	_, err := tr.Run(context.Background())
	require.NoError(t, err)

	var samples, sources int
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, "Sample 0 style") {
			samples++
		}
		if strings.HasPrefix(e.Message, "Source 0:") {
			sources++
		}
	}
	assert.Equal(t, 4, sources)
	assert.Equal(t, 8, samples, "both styles for every displayed example")
}

func TestRun_LogsOptimizer(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	tr := newTrainer(t, testConfig(t), toyCorpus(), WithLogger(logrus.NewEntry(log)))

	_, err := tr.Run(context.Background())
	require.NoError(t, err)

	var started *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "Training started" {
			started = e
		}
	}
	require.NotNil(t, started)
	assert.Equal(t, "adadelta", started.Data["optimizer"])
	assert.Equal(t, 1.0, started.Data["lr"])
	assert.Equal(t, 2, started.Data["decoders"])
}

func TestLoadModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxEpochs = 1
	tr := newTrainer(t, cfg, toyCorpus())
	_, err := tr.Run(context.Background())
	require.NoError(t, err)

	m, err := LoadModel(cfg.SaveTo)
	require.NoError(t, err)
	assert.Equal(t, toyOptions(), m.Options())
	want := tr.model.Registry().StateDict()
	for name, v := range m.Registry().StateDict() {
		assert.True(t, mat.Equal(want[name], v), name)
	}

	_, err = LoadModel(filepath.Join(t.TempDir(), "missing.born"))
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "model.iter10.born"), IterPath(filepath.Join("out", "model.born"), 10))
	assert.Equal(t, "model.iter3", IterPath("model", 3))
	assert.Equal(t, "model.born.best", BestPath("model.born"))
}

func TestReload_NoCheckpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Reload = true
	tr := newTrainer(t, cfg, toyCorpus())
	assert.Zero(t, tr.Updates())
	_, err := os.Stat(cfg.SaveTo)
	assert.True(t, os.IsNotExist(err))
}

func TestValidate_ParallelMatchesSequential(t *testing.T) {
	valid := func() data.Iterator { return data.NewSliceIterator(toyCorpus(), 1, 2) }
	seq := newTrainer(t, testConfig(t), toyCorpus(), WithValidation(valid()), WithParallel(parallel.Config{Enabled: false}))
	par := newTrainer(t, testConfig(t), toyCorpus(), WithValidation(valid()),
		WithParallel(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}))

	want, err := seq.Validate()
	require.NoError(t, err)
	got, err := par.Validate()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
