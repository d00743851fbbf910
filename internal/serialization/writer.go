package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Write encodes a state dictionary with the given header to w.
//
// Tensors are laid out in name order. FormatVersion, Producer, CreatedAt
// (when zero) and Tensors are filled in by Write.
func Write(w io.Writer, state map[string]*mat.Dense, header Header) error {
	names := make([]string, 0, len(state))
	for name := range state {
		names = append(names, name)
	}
	sort.Strings(names)

	header.FormatVersion = FormatVersion
	header.Producer = ProducerVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Calculate tensor offsets and collect tensor data
	header.Tensors = make([]TensorMeta, 0, len(names))
	var data bytes.Buffer
	for _, name := range names {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		m := state[name]
		r, c := m.Dims()
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  DTypeFloat64,
			Shape:  []int{r, c},
			Offset: int64(data.Len()),
			Size:   int64(r * c * float64Size),
		})
		appendMatrix(&data, m)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.Checkpoint != nil && header.Checkpoint.HasOptimizer {
		flags |= FlagHasOptimizer
	}

	// 0x00 magic, 0x04 version, 0x08 flags, 0x10 header size,
	// 0x18 data size, 0x20 checksum.
	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(data.Len()))
	sum := checksum(data.Bytes())
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], sum[:])

	if _, err := w.Write(fixed); err != nil {
		return errors.Wrap(err, "failed to write fixed header")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "failed to write header JSON")
	}
	if _, err := w.Write(make([]byte, padding(len(headerJSON)))); err != nil {
		return errors.Wrap(err, "failed to write padding")
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write tensor data")
	}
	return nil
}

// padding returns the number of zero bytes between the JSON header and the
// 64-byte aligned data section.
func padding(headerSize int) int {
	pos := FixedHeaderSize + headerSize
	return (HeaderAlignment - pos%HeaderAlignment) % HeaderAlignment
}

func appendMatrix(buf *bytes.Buffer, m *mat.Dense) {
	r, c := m.Dims()
	var b [float64Size]byte
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(m.At(i, j)))
			buf.Write(b[:])
		}
	}
}

// SaveFile writes a checkpoint to path atomically.
func SaveFile(path string, state map[string]*mat.Dense, header Header) error {
	return writeAtomic(path, func(w io.Writer) error {
		return Write(w, state, header)
	})
}

// writeAtomic writes through a temporary file in the destination directory,
// syncs it and renames it over path.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to move checkpoint into %s", path)
	}
	return nil
}
