package styleshift

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/data"
	"github.com/born-ml/styleshift/internal/model"
	"github.com/born-ml/styleshift/internal/nn"
	"github.com/born-ml/styleshift/internal/train"
)

const dictYAML = "eos: 0\nUNK: 1\ngood: 2\nbad: 3\nfood: 4\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testViper(t *testing.T) *viper.Viper {
	t.Helper()
	dir := t.TempDir()
	v := viper.New()
	setDefaults(v)
	v.Set("model.dimWord", 4)
	v.Set("model.dim", 6)
	v.Set("model.nWordsSrc", 5)
	v.Set("model.nWords", 5)
	v.Set("model.decoder", "gru_cond_simple")
	v.Set("train.batchSize", 2)
	v.Set("train.validBatchSize", 2)
	v.Set("train.maxEpochs", 2)
	v.Set("train.dispFreq", 1)
	v.Set("train.validFreq", 2)
	v.Set("train.saveFreq", 2)
	v.Set("train.sampleFreq", 2)
	v.Set("train.saveTo", filepath.Join(dir, "model.born"))

	dict := writeFile(t, dir, "dict.yaml", dictYAML)
	v.Set("data.dictionaries.source", dict)
	v.Set("data.dictionaries.target", dict)
	for _, split := range []string{"train", "valid"} {
		v.Set("data."+split+".source", writeFile(t, dir, split+".src", "good food\nbad food\nfood good\nfood bad\n"))
		v.Set("data."+split+".target", writeFile(t, dir, split+".tgt", "good food\nbad food\nfood good\nfood bad\n"))
		v.Set("data."+split+".style", writeFile(t, dir, split+".style", "1\n0\n1\n0\n"))
	}
	return v
}

func quietLogger() *logrus.Entry {
	log, _ := logtest.NewNullLogger()
	return logrus.NewEntry(log)
}

func TestModelOptions_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	opts, err := modelOptions(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultOptions(), opts)
	assert.Equal(t, train.DefaultConfig(), trainConfig(v))
}

func TestModelOptions_Invalid(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("model.decoder", "lstm")
	_, err := modelOptions(v)
	assert.Error(t, err)

	v = viper.New()
	setDefaults(v)
	v.Set("model.encoder", "gru_cond_attention")
	_, err = modelOptions(v)
	assert.ErrorIs(t, err, model.ErrUnsupportedCombination)
}

func TestModelOptions_FromConfig(t *testing.T) {
	v := testViper(t)
	opts, err := modelOptions(v)
	require.NoError(t, err)
	assert.Equal(t, 6, opts.Dim)
	assert.Equal(t, nn.CellConditional, opts.Decoder)
	assert.Equal(t, 2, opts.BatchSize)
}

func TestRunTrainingAndSample(t *testing.T) {
	v := testViper(t)
	res, err := runTraining(context.Background(), v, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Updates, "two style batches per epoch")
	assert.Greater(t, res.ValidErr, 0.0)

	dict, err := data.LoadDictionary(v.GetString("data.dictionaries.source"))
	require.NoError(t, err)

	for _, p := range []sampleParams{
		{style: 0, argmax: true, maxLen: 5, seed: 1},
		{style: 1, beam: 3, maxLen: 5, normalize: true},
		{style: 1, maxLen: 5, seed: 3},
	} {
		p.model = v.GetString("train.saveTo")
		var out bytes.Buffer
		require.NoError(t, runSample(p, dict, dict, strings.NewReader("good food\nbad\n"), &out))
		lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
		assert.Len(t, lines, 2)
		for _, l := range lines {
			for _, tok := range strings.Fields(l) {
				assert.Contains(t, []string{"UNK", "good", "bad", "food"}, tok)
			}
		}
	}

	err = runSample(sampleParams{model: v.GetString("train.saveTo"), style: 2, maxLen: 5}, dict, dict, strings.NewReader("good\n"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunTraining_Reload(t *testing.T) {
	v := testViper(t)
	v.Set("train.maxEpochs", 1)
	_, err := runTraining(context.Background(), v, quietLogger())
	require.NoError(t, err)

	v.Set("train.maxEpochs", 2)
	v.Set("train.reload", true)
	v.Set("model.dim", 8) // ignored: the saved options win
	res, err := runTraining(context.Background(), v, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Updates)
}

func TestRunTraining_EmbeddingsFromCheckpoint(t *testing.T) {
	first := testViper(t)
	first.Set("train.maxEpochs", 1)
	_, err := runTraining(context.Background(), first, quietLogger())
	require.NoError(t, err)
	prev, err := train.LoadModel(first.GetString("train.saveTo"))
	require.NoError(t, err)

	second := testViper(t)
	m, err := model.New(mustOptions(t, second))
	require.NoError(t, err)
	second.Set("embedding.checkpoint", first.GetString("train.saveTo"))
	dict, err := data.LoadDictionary(second.GetString("data.dictionaries.source"))
	require.NoError(t, err)

	require.NoError(t, loadEmbeddings(second, m, dict, dict, quietLogger()))
	assert.True(t, mat.Equal(prev.SourceEmbedding().Table(), m.SourceEmbedding().Table()))
	assert.True(t, mat.Equal(prev.TargetEmbedding().Table(), m.TargetEmbedding().Table()))
}

func TestLoadEmbeddings_MissingGlove(t *testing.T) {
	v := testViper(t)
	v.Set("embedding.dir", t.TempDir())
	v.Set("embedding.dim", 4)
	m, err := model.New(mustOptions(t, v))
	require.NoError(t, err)
	dict := data.NewDictionary(map[string]int{"eos": 0})
	assert.Error(t, loadEmbeddings(v, m, dict, dict, quietLogger()))
}

func TestRunTraining_MissingDictionary(t *testing.T) {
	v := testViper(t)
	v.Set("data.dictionaries.source", filepath.Join(t.TempDir(), "none.yaml"))
	_, err := runTraining(context.Background(), v, quietLogger())
	assert.Error(t, err)
}

func mustOptions(t *testing.T, v *viper.Viper) model.Options {
	t.Helper()
	opts, err := modelOptions(v)
	require.NoError(t, err)
	return opts
}
