// Package embedding loads pretrained word vectors and copies them into the
// model's embedding tables.
//
// Two sources are supported: GloVe text files (glove.6B.<dim>d.txt) and the
// embedding table of a previous checkpoint.
package embedding

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/styleshift/internal/data"
	"github.com/born-ml/styleshift/internal/nn"
	"github.com/born-ml/styleshift/internal/serialization"
)

var (
	// ErrResourceNotFound is returned when a vector file or checkpoint table
	// is missing or malformed.
	ErrResourceNotFound = errors.New("embedding resource not found")
	// ErrUnsupportedDim is returned for GloVe sizes that are not distributed.
	ErrUnsupportedDim = errors.New("unsupported embedding dimension")
)

// GloveDims are the published glove.6B vector sizes.
var GloveDims = []int{50, 100, 200, 300}

// Table maps tokens to vectors of one dimension.
type Table struct {
	dim     int
	vectors map[string][]float64
}

// NewTable creates an empty table.
func NewTable(dim int) *Table {
	return &Table{dim: dim, vectors: make(map[string][]float64)}
}

// Dim returns the vector size.
func (t *Table) Dim() int { return t.dim }

// Len returns the number of tokens.
func (t *Table) Len() int { return len(t.vectors) }

// Vector returns the vector for token.
func (t *Table) Vector(token string) ([]float64, bool) {
	v, ok := t.vectors[token]
	return v, ok
}

// Set stores a copy of vec under token.
func (t *Table) Set(token string, vec []float64) error {
	if len(vec) != t.dim {
		return errors.Errorf("vector for %q has %d values, table dim is %d", token, len(vec), t.dim)
	}
	t.vectors[token] = append([]float64(nil), vec...)
	return nil
}

// GlovePath returns the file name of the glove.6B table of size dim in dir.
func GlovePath(dir string, dim int) string {
	return filepath.Join(dir, fmt.Sprintf("glove.6B.%dd.txt", dim))
}

// LoadGlove reads the glove.6B table of size dim from dir.
func LoadGlove(dir string, dim int) (*Table, error) {
	supported := false
	for _, d := range GloveDims {
		supported = supported || d == dim
	}
	if !supported {
		return nil, errors.Wrapf(ErrUnsupportedDim, "glove dim %d (have %v)", dim, GloveDims)
	}

	path := GlovePath(dir, dim)
	//nolint:gosec // G304: File path comes from configuration
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrResourceNotFound, path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", path)
	}
	defer f.Close()

	t, err := ReadText(f, dim)
	if err != nil {
		return nil, errors.Wrapf(ErrResourceNotFound, "malformed %s: %v", path, err)
	}
	return t, nil
}

// ReadText parses "<token> <v1> ... <vdim>" lines. Blank lines are skipped.
func ReadText(r io.Reader, dim int) (*Table, error) {
	t := NewTable(dim)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != dim+1 {
			return nil, errors.Errorf("line %d: %d values, expected %d", line, len(fields)-1, dim)
		}
		vec := make([]float64, dim)
		for i, s := range fields[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			vec[i] = v
		}
		t.vectors[fields[0]] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return t, nil
}

// FromCheckpoint extracts the rows of the named embedding parameter of a
// saved model, keyed by the tokens of dict.
func FromCheckpoint(path, param string, dict *data.Dictionary) (*Table, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Wrap(ErrResourceNotFound, path)
	}
	state, _, err := serialization.LoadFile(path)
	if err != nil {
		return nil, err
	}
	m, ok := state[param]
	if !ok {
		return nil, errors.Wrapf(ErrResourceNotFound, "%s has no parameter %s", path, param)
	}

	rows, dim := m.Dims()
	t := NewTable(dim)
	dict.Range(func(token string, id int) {
		if id < rows {
			t.vectors[token] = append([]float64(nil), m.RawRowView(id)...)
		}
	})
	return t, nil
}

// Apply copies the vector of every dictionary token found in t into its row
// of emb and returns how many rows were set. Ids outside the table are
// skipped.
func (t *Table) Apply(emb *nn.Embedding, dict *data.Dictionary) (int, error) {
	if emb.Dim() != t.dim {
		return 0, errors.Errorf("embedding dim %d does not match vector dim %d", emb.Dim(), t.dim)
	}
	table := emb.Table()
	n := 0
	dict.Range(func(token string, id int) {
		if id >= emb.Vocab() {
			return
		}
		if v, ok := t.vectors[token]; ok {
			table.SetRow(id, v)
			n++
		}
	})
	return n, nil
}
