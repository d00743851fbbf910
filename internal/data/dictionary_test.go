package data_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/styleshift/internal/data"
)

func TestDictionary_LoadEncodeDecode(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dict.yaml", "eos: 0\nUNK: 1\nthe: 2\nsky: 3\n")
	d, err := data.LoadDictionary(path)
	require.NoError(t, err)

	assert.Equal(t, 4, d.Len())
	assert.Equal(t, []int{2, 3, 1}, d.Encode([]string{"the", "sky", "falls"}, 0))
	assert.Equal(t, []int{2, 1}, d.Encode([]string{"the", "sky"}, 3))
	assert.Equal(t, []string{"the", "sky"}, d.Decode([]int{2, 3, 0, 2}))
	assert.Equal(t, []string{"UNK"}, d.Decode([]int{42}))

	tok, ok := d.Token(3)
	assert.True(t, ok)
	assert.Equal(t, "sky", tok)
}

func TestDictionary_LoadErrors(t *testing.T) {
	_, err := data.LoadDictionary(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeFile(t, t.TempDir(), "bad.yaml", "- not\n- a map\n")
	_, err = data.LoadDictionary(path)
	assert.Error(t, err)
}
