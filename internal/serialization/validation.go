package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Limits on what a reader accepts.
const (
	MaxHeaderSize    = 16 << 20
	MaxTensorCount   = 10_000
	MaxTensorNameLen = 256
)

// ValidateTensorName accepts dotted parameter names such as
// "decoder.style0.Ux" and rejects empty, oversized or path-like ones.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return tableError("name", "", "empty tensor name")
	case len(name) > MaxTensorNameLen:
		return tableError("name", name[:32]+"...", "%d bytes, limit %d", len(name), MaxTensorNameLen)
	case strings.Contains(name, ".."), strings.ContainsAny(name, "/\\\x00"):
		return tableError("name", name, "contains a path element or null byte")
	}
	return nil
}

// ValidateHeader checks every entry of the tensor table, then checks that
// the entries tile a data section of dataSize bytes without overlap.
func ValidateHeader(h *Header, dataSize int64) error {
	if n := len(h.Tensors); n > MaxTensorCount {
		return tableError("count", "", "%d tensors, limit %d", n, MaxTensorCount)
	}
	names := make(map[string]struct{}, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := checkEntry(t); err != nil {
			return err
		}
		if _, dup := names[t.Name]; dup {
			return tableError("duplicate", t.Name, "listed twice")
		}
		names[t.Name] = struct{}{}
	}
	return checkLayout(h.Tensors, dataSize)
}

func checkEntry(t TensorMeta) error {
	if err := ValidateTensorName(t.Name); err != nil {
		return err
	}
	if t.DType != DTypeFloat64 {
		return tableError("dtype", t.Name, "%s, only %s is stored", t.DType, DTypeFloat64)
	}
	if len(t.Shape) != 2 || t.Shape[0] < 0 || t.Shape[1] < 0 {
		return tableError("shape", t.Name, "%v is not a matrix shape", t.Shape)
	}
	if want := int64(t.Shape[0]) * int64(t.Shape[1]) * float64Size; t.Size != want {
		return tableError("size", t.Name, "%d bytes, a %dx%d matrix needs %d", t.Size, t.Shape[0], t.Shape[1], want)
	}
	return nil
}

// checkLayout walks the entries by offset.
func checkLayout(tensors []TensorMeta, dataSize int64) error {
	byOffset := append([]TensorMeta(nil), tensors...)
	sort.Slice(byOffset, func(i, j int) bool { return byOffset[i].Offset < byOffset[j].Offset })

	var end int64
	prev := ""
	for _, t := range byOffset {
		switch {
		case t.Offset < 0:
			return tableError("bounds", t.Name, "negative offset %d", t.Offset)
		case t.Offset+t.Size > dataSize:
			return tableError("bounds", t.Name, "ends at %d, data section has %d bytes", t.Offset+t.Size, dataSize)
		case t.Offset < end:
			return &TableError{Rule: "overlap", Tensor: prev, Other: t.Name,
				Reason: fmt.Sprintf("%q starts at %d before %d", t.Name, t.Offset, end)}
		}
		end, prev = t.Offset+t.Size, t.Name
	}
	return nil
}
