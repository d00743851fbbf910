// Package model assembles the style transfer network: a GRU encoder over the
// source sentence, one decoder and readout per style, and a style adversary
// over the encoder context.
package model

import (
	"github.com/pkg/errors"

	"github.com/born-ml/styleshift/internal/nn"
)

// ErrUnsupportedCombination is returned for option combinations the model
// cannot build.
var ErrUnsupportedCombination = errors.New("unsupported option combination")

// Options holds every hyperparameter needed to rebuild a model and resume
// its training. It is saved next to each checkpoint.
type Options struct {
	DimWord       int         `yaml:"dim_word" json:"dim_word"`
	Dim           int         `yaml:"dim" json:"dim"`
	Encoder       nn.CellKind `yaml:"encoder" json:"encoder"`
	Decoder       nn.CellKind `yaml:"decoder" json:"decoder"`
	NWordsSrc     int         `yaml:"n_words_src" json:"n_words_src"`
	NWords        int         `yaml:"n_words" json:"n_words"`
	SentiNum      int         `yaml:"senti_num" json:"senti_num"`
	AttentionFold bool        `yaml:"attention_fold" json:"attention_fold"`
	Seed          int64       `yaml:"seed" json:"seed"`

	WeightD    float64 `yaml:"weight_d" json:"weight_d"`
	WeightH    float64 `yaml:"weight_h" json:"weight_h"`
	StyleClass bool    `yaml:"style_class" json:"style_class"`
	StyleAdv   bool    `yaml:"style_adv" json:"style_adv"`
	DecayC     float64 `yaml:"decay_c" json:"decay_c"`

	Optimizer string  `yaml:"optimizer" json:"optimizer"`
	LRate     float64 `yaml:"lrate" json:"lrate"`
	MaxLen    int     `yaml:"maxlen" json:"maxlen"`
	BatchSize int     `yaml:"batch_size" json:"batch_size"`
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		DimWord:       100,
		Dim:           1000,
		Encoder:       nn.CellGRU,
		Decoder:       nn.CellAttention,
		NWordsSrc:     100000,
		NWords:        100000,
		SentiNum:      2,
		AttentionFold: true,
		Seed:          1234,
		WeightD:       1,
		WeightH:       1,
		StyleClass:    true,
		StyleAdv:      true,
		Optimizer:     "adadelta",
		LRate:         0.01,
		MaxLen:        100,
		BatchSize:     16,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.DimWord <= 0 || o.Dim <= 0 {
		return errors.Errorf("dimensions must be positive: dim_word=%d dim=%d", o.DimWord, o.Dim)
	}
	if o.NWordsSrc < 2 || o.NWords < 2 {
		return errors.Errorf("vocabularies need eos and unk: n_words_src=%d n_words=%d", o.NWordsSrc, o.NWords)
	}
	if o.Encoder != nn.CellGRU {
		return errors.Wrapf(ErrUnsupportedCombination, "encoder %s: only gru encodes", o.Encoder)
	}
	if o.SentiNum != 2 {
		return errors.Wrapf(ErrUnsupportedCombination, "senti_num %d: the model has two style decoders", o.SentiNum)
	}
	if o.WeightD < 0 || o.WeightH < 0 || o.DecayC < 0 {
		return errors.New("loss weights must not be negative")
	}
	return nil
}
