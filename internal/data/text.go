package data

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TextConfig describes a parallel text corpus.
type TextConfig struct {
	Source     string // one tokenized sentence per line
	Target     string // aligned target sentences
	Style      string // one integer style label per line
	SourceDict *Dictionary
	TargetDict *Dictionary
	NWordsSrc  int
	NWords     int
	BatchSize  int
	Styles     int
}

// TextIterator reads a parallel corpus line by line and groups examples by
// style label. Files are reopened by Reset.
type TextIterator struct {
	cfg     TextConfig
	files   [3]*os.File
	readers [3]*bufio.Reader
	group   *grouper
	pending []Minibatch
	line    int
}

// NewTextIterator opens the three corpus files.
func NewTextIterator(cfg TextConfig) (*TextIterator, error) {
	it := &TextIterator{cfg: cfg, group: newGrouper(cfg.BatchSize, cfg.Styles)}
	for i, path := range []string{cfg.Source, cfg.Target, cfg.Style} {
		f, err := os.Open(path)
		if err != nil {
			it.Close()
			return nil, errors.Wrapf(err, "can't open %s", path)
		}
		it.files[i] = f
		it.readers[i] = bufio.NewReader(f)
	}
	return it, nil
}

// Next returns the next minibatch or io.EOF at the end of the corpus.
func (it *TextIterator) Next() (Minibatch, error) {
	if len(it.pending) > 0 {
		mb := it.pending[0]
		it.pending = it.pending[1:]
		return mb, nil
	}
	for {
		ex, err := it.read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Minibatch{}, err
		}
		if mb, ok := it.group.add(ex); ok {
			return mb, nil
		}
	}
	it.pending = it.group.flush()
	if len(it.pending) == 0 {
		return Minibatch{}, io.EOF
	}
	return it.Next()
}

func (it *TextIterator) read() (Example, error) {
	var lines [3]string
	for i, r := range it.readers {
		s, err := r.ReadString('\n')
		if err == io.EOF && s == "" {
			if i != 0 {
				return Example{}, errors.Errorf("corpus files differ in length at line %d", it.line+1)
			}
			return Example{}, io.EOF
		}
		if err != nil && err != io.EOF {
			return Example{}, errors.Wrapf(err, "can't read line %d", it.line+1)
		}
		lines[i] = s
	}
	it.line++

	label, err := strconv.Atoi(strings.TrimSpace(lines[2]))
	if err != nil {
		return Example{}, errors.Wrapf(err, "bad style label at line %d", it.line)
	}
	if label < 0 || label >= max(it.cfg.Styles, 1) {
		return Example{}, errors.Errorf("style label %d out of range at line %d", label, it.line)
	}
	return Example{
		Source: it.cfg.SourceDict.Encode(strings.Fields(lines[0]), it.cfg.NWordsSrc),
		Target: it.cfg.TargetDict.Encode(strings.Fields(lines[1]), it.cfg.NWords),
		Label:  label,
	}, nil
}

// Reset rewinds all files.
func (it *TextIterator) Reset() error {
	for i, f := range it.files {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return errors.Wrapf(err, "can't rewind %s", f.Name())
		}
		it.readers[i].Reset(f)
	}
	it.group.reset()
	it.pending = nil
	it.line = 0
	return nil
}

// Close closes the corpus files.
func (it *TextIterator) Close() error {
	var first error
	for _, f := range it.files {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
