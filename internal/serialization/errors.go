package serialization

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors returned while reading a checkpoint.
var (
	ErrInvalidMagic       = errors.New("not a checkpoint file")
	ErrUnsupportedVersion = errors.New("unsupported checkpoint version")
	ErrHeaderTooLarge     = errors.New("checkpoint header too large")
	ErrTruncated          = errors.New("checkpoint truncated")
	ErrChecksumMismatch   = errors.New("checkpoint data checksum mismatch")
)

// TableError reports a tensor table entry that breaks a layout rule.
type TableError struct {
	Rule   string // e.g. "overlap", "bounds", "dtype"
	Tensor string
	Other  string // second tensor of an overlap
	Reason string
}

func (e *TableError) Error() string {
	switch {
	case e.Other != "":
		return fmt.Sprintf("tensor table: %s: %q and %q: %s", e.Rule, e.Tensor, e.Other, e.Reason)
	case e.Tensor != "":
		return fmt.Sprintf("tensor table: %s: %q: %s", e.Rule, e.Tensor, e.Reason)
	}
	return fmt.Sprintf("tensor table: %s: %s", e.Rule, e.Reason)
}

func tableError(rule, tensor, format string, args ...any) *TableError {
	return &TableError{Rule: rule, Tensor: tensor, Reason: fmt.Sprintf(format, args...)}
}
