// Package train runs the style transfer training loop: per-style updates,
// periodic checkpoints, sample display, validation with early stopping and
// resumption from a checkpoint.
package train

import (
	"github.com/pkg/errors"
)

// Config holds the schedule of a training run. Frequencies count applied
// updates; a frequency <= 0 disables the action.
type Config struct {
	MaxEpochs   int `yaml:"max_epochs" json:"max_epochs"`
	FinishAfter int `yaml:"finish_after" json:"finish_after"` // update ceiling, <= 0 for none
	Patience    int `yaml:"patience" json:"patience"`

	DispFreq   int `yaml:"disp_freq" json:"disp_freq"`
	ValidFreq  int `yaml:"valid_freq" json:"valid_freq"`
	SaveFreq   int `yaml:"save_freq" json:"save_freq"`
	SampleFreq int `yaml:"sample_freq" json:"sample_freq"`

	SaveTo    string `yaml:"save_to" json:"save_to"`
	Overwrite bool   `yaml:"overwrite" json:"overwrite"` // skip the per-iteration copies
	Reload    bool   `yaml:"reload" json:"reload"`

	SampleCount  int `yaml:"sample_count" json:"sample_count"`
	SampleMaxLen int `yaml:"sample_max_len" json:"sample_max_len"`
}

// DefaultConfig returns the reference schedule.
func DefaultConfig() Config {
	return Config{
		MaxEpochs:    5000,
		FinishAfter:  10000000,
		Patience:     10,
		DispFreq:     100,
		ValidFreq:    1000,
		SaveFreq:     1000,
		SampleFreq:   100,
		SaveTo:       "model.born",
		SampleCount:  5,
		SampleMaxLen: 30,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxEpochs <= 0 {
		return errors.Errorf("max_epochs must be positive, got %d", c.MaxEpochs)
	}
	if c.Patience < 0 {
		return errors.Errorf("patience must not be negative, got %d", c.Patience)
	}
	if (c.SaveFreq > 0 || c.Reload) && c.SaveTo == "" {
		return errors.New("save_to is required for saving or reloading")
	}
	return nil
}
