package serialization

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// OptionsPath returns the hyperparameter companion of a checkpoint.
func OptionsPath(checkpoint string) string {
	return checkpoint + ".yaml"
}

// SaveOptions writes v as YAML to path atomically.
func SaveOptions(path string, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal options")
	}
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(out)
		return errors.Wrap(err, "failed to write options")
	})
}

// LoadOptions decodes the YAML file at path into v.
func LoadOptions(path string, v any) error {
	//nolint:gosec // G304: File path comes from user input
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read options")
	}
	return errors.Wrapf(yaml.Unmarshal(raw, v), "failed to parse %s", path)
}
