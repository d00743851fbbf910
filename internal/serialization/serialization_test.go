package serialization

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testState() map[string]*mat.Dense {
	return map[string]*mat.Dense{
		"encoder.W":               mat.NewDense(2, 3, []float64{1, -2, 3.5, 0, 1e-300, -7}),
		"adversary.M1":            mat.NewDense(1, 2, []float64{0.25, -0.125}),
		"optimizer.0.encoder.W.m": mat.NewDense(2, 3, []float64{6, 5, 4, 3, 2, 1}),
	}
}

func encode(t *testing.T, state map[string]*mat.Dense, header Header) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, state, header))
	return buf.Bytes()
}

func TestWriteRead_RoundTrip(t *testing.T) {
	meta := &CheckpointMeta{
		RunID:        "b7c1f3a2-5a4e-4f0e-9a57-4b1d2f3c4e5d",
		UpdateIndex:  42,
		Epoch:        3,
		EpochBatches: 7,
		HistoryErrs:  []float64{9.5, 8.25},
		HasOptimizer: true,
	}
	raw := encode(t, testState(), Header{ModelType: "styleshift", Checkpoint: meta, Metadata: map[string]string{"k": "v"}})

	state, header, err := Read(bytes.NewReader(raw))
	require.NoError(t, err)

	want := testState()
	require.Len(t, state, len(want))
	for name, m := range want {
		require.Contains(t, state, name)
		assert.True(t, mat.Equal(m, state[name]), name)
	}
	assert.Equal(t, FormatVersion, header.FormatVersion)
	assert.Equal(t, ProducerVersion, header.Producer)
	assert.Equal(t, "styleshift", header.ModelType)
	assert.Equal(t, meta, header.Checkpoint)
	assert.Equal(t, "v", header.Metadata["k"])

	flags := binary.LittleEndian.Uint32(raw[8:12])
	assert.NotZero(t, flags&FlagHasOptimizer)
	assert.NotZero(t, flags&FlagHasMetadata)
}

func TestWrite_Layout(t *testing.T) {
	raw := encode(t, testState(), Header{CreatedAt: time.Unix(0, 0).UTC()})

	assert.Equal(t, MagicBytes, string(raw[0:4]))
	headerSize := binary.LittleEndian.Uint64(raw[16:24])
	dataSize := binary.LittleEndian.Uint64(raw[24:32])
	assert.Equal(t, uint64((6+2+6)*8), dataSize)

	dataStart := FixedHeaderSize + int(headerSize) + padding(int(headerSize))
	assert.Zero(t, dataStart%HeaderAlignment)
	assert.Len(t, raw, dataStart+int(dataSize))
}

func TestWrite_Deterministic(t *testing.T) {
	header := Header{CreatedAt: time.Unix(100, 0).UTC()}
	assert.Equal(t, encode(t, testState(), header), encode(t, testState(), header))
}

func TestRead_Corruption(t *testing.T) {
	raw := encode(t, testState(), Header{})

	t.Run("magic", func(t *testing.T) {
		bad := append([]byte{}, raw...)
		copy(bad, "NOPE")
		_, _, err := Read(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("version", func(t *testing.T) {
		bad := append([]byte{}, raw...)
		binary.LittleEndian.PutUint32(bad[4:8], 1)
		_, _, err := Read(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("data", func(t *testing.T) {
		bad := append([]byte{}, raw...)
		bad[len(bad)-1] ^= 0xff
		_, _, err := Read(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("truncated", func(t *testing.T) {
		_, _, err := Read(bytes.NewReader(raw[:len(raw)-3]))
		assert.ErrorIs(t, err, ErrTruncated)
	})
}

func TestValidateHeader(t *testing.T) {
	ok := TensorMeta{Name: "a.W", DType: DTypeFloat64, Shape: []int{2, 2}, Offset: 0, Size: 32}

	tests := []struct {
		name    string
		tensors []TensorMeta
		wantErr string
	}{
		{"valid", []TensorMeta{ok}, ""},
		{"path", []TensorMeta{{Name: "../W", DType: DTypeFloat64, Shape: []int{1, 1}, Size: 8}}, "name"},
		{"dtype", []TensorMeta{{Name: "W", DType: "float32", Shape: []int{1, 1}, Size: 4}}, "dtype"},
		{"shape", []TensorMeta{{Name: "W", DType: DTypeFloat64, Shape: []int{8}, Size: 8}}, "shape"},
		{"size", []TensorMeta{{Name: "W", DType: DTypeFloat64, Shape: []int{1, 2}, Size: 8}}, "size"},
		{"bounds", []TensorMeta{{Name: "W", DType: DTypeFloat64, Shape: []int{4, 4}, Size: 128}}, "bounds"},
		{"overlap", []TensorMeta{ok, {Name: "b", DType: DTypeFloat64, Shape: []int{1, 1}, Offset: 24, Size: 8}}, "overlap"},
		{"duplicate", []TensorMeta{ok, ok}, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHeader(&Header{Tensors: tt.tensors}, 64)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var terr *TableError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, tt.wantErr, terr.Rule)
		})
	}
}

func TestSaveFile_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.born")

	require.NoError(t, SaveFile(path, testState(), Header{ModelType: "first"}))
	require.NoError(t, SaveFile(path, testState(), Header{ModelType: "second"}))

	_, header, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", header.ModelType)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestSaveFile_FailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.born")
	require.NoError(t, SaveFile(path, testState(), Header{ModelType: "good"}))

	bad := map[string]*mat.Dense{"../escape": mat.NewDense(1, 1, nil)}
	assert.Error(t, SaveFile(path, bad, Header{ModelType: "bad"}))

	_, header, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "good", header.ModelType)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadFile_Missing(t *testing.T) {
	_, _, err := LoadFile(filepath.Join(t.TempDir(), "absent.born"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSplitOptimizer(t *testing.T) {
	params, opt := SplitOptimizer(testState())

	assert.Len(t, params, 2)
	assert.Contains(t, params, "encoder.W")
	assert.Len(t, opt, 1)
	assert.Contains(t, opt, "0.encoder.W.m")
}

func TestOptions_RoundTrip(t *testing.T) {
	type opts struct {
		Dim     int     `yaml:"dim"`
		Decoder string  `yaml:"decoder"`
		WeightD float64 `yaml:"weight_d"`
	}
	path := OptionsPath(filepath.Join(t.TempDir(), "model.born"))
	assert.Equal(t, ".yaml", filepath.Ext(path))

	in := opts{Dim: 12, Decoder: "gru_cond_attention", WeightD: 0.5}
	require.NoError(t, SaveOptions(path, in))

	var out opts
	require.NoError(t, LoadOptions(path, &out))
	assert.Equal(t, in, out)

	assert.Error(t, LoadOptions(path+".missing", &out))
}
