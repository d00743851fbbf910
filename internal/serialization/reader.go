package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Read decodes a checkpoint from r, verifying the data checksum and the
// tensor table.
func Read(r io.Reader) (map[string]*mat.Dense, Header, error) {
	header, data, err := readSections(r)
	if err != nil {
		return nil, Header{}, err
	}

	state := make(map[string]*mat.Dense, len(header.Tensors))
	for _, meta := range header.Tensors {
		raw := data[meta.Offset : meta.Offset+meta.Size]
		values := make([]float64, meta.Size/float64Size)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*float64Size:]))
		}
		state[meta.Name] = newMatrix(meta.Shape[0], meta.Shape[1], values)
	}
	return state, header, nil
}

// newMatrix wraps values, allowing empty shapes that mat.NewDense rejects.
func newMatrix(r, c int, values []float64) *mat.Dense {
	if r == 0 || c == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(r, c, values)
}

func readSections(r io.Reader) (Header, []byte, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return Header{}, nil, errors.Wrap(err, "failed to read fixed header")
	}
	if string(fixed[0:4]) != MagicBytes {
		return Header{}, nil, errors.Wrapf(ErrInvalidMagic, "got %q", fixed[0:4])
	}
	if version := binary.LittleEndian.Uint32(fixed[4:8]); version != FormatVersion {
		return Header{}, nil, errors.Wrapf(ErrUnsupportedVersion, "got %d, expected %d", version, FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return Header{}, nil, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return Header{}, nil, errors.Wrap(err, "failed to read header JSON")
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Header{}, nil, errors.Wrap(err, "failed to parse header JSON")
	}

	if _, err := io.CopyN(io.Discard, r, int64(padding(int(headerSize)))); err != nil {
		return Header{}, nil, errors.Wrap(err, "failed to read padding")
	}
	var data bytes.Buffer
	if _, err := io.CopyN(&data, r, int64(dataSize)); err != nil {
		if err == io.EOF {
			return Header{}, nil, errors.Wrapf(ErrTruncated, "%d of %d data bytes", data.Len(), dataSize)
		}
		return Header{}, nil, errors.Wrap(err, "failed to read tensor data")
	}
	if err := verify(data.Bytes(), stored); err != nil {
		return Header{}, nil, err
	}
	if err := ValidateHeader(&header, int64(dataSize)); err != nil {
		return Header{}, nil, errors.Wrap(err, "validation failed")
	}
	return header, data.Bytes(), nil
}

// LoadFile reads a checkpoint from path.
func LoadFile(path string) (map[string]*mat.Dense, Header, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, Header{}, errors.Wrap(err, "failed to open checkpoint")
	}
	defer file.Close()

	state, header, err := Read(file)
	if err != nil {
		return nil, Header{}, errors.Wrapf(err, "failed to read %s", path)
	}
	return state, header, nil
}

// SplitOptimizer separates optimizer state (names under OptimizerPrefix,
// with the prefix removed) from model parameters.
func SplitOptimizer(state map[string]*mat.Dense) (params, optimizer map[string]*mat.Dense) {
	params = make(map[string]*mat.Dense, len(state))
	optimizer = make(map[string]*mat.Dense)
	for name, m := range state {
		if rest, ok := strings.CutPrefix(name, OptimizerPrefix); ok {
			optimizer[rest] = m
			continue
		}
		params[name] = m
	}
	return params, optimizer
}
