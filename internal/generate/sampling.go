package generate

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// SamplingConfig configures single-hypothesis decoding.
type SamplingConfig struct {
	// Argmax takes the most likely token instead of sampling.
	Argmax bool

	// MaxLen bounds the number of generated tokens.
	MaxLen int

	// Seed for reproducibility. -1 = random.
	Seed int64
}

// DefaultSamplingConfig returns the settings used for training-time samples.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{MaxLen: 30, Seed: -1}
}

// Sampler decodes one hypothesis, token by token.
type Sampler struct {
	config SamplingConfig
	rng    *rand.Rand
}

// NewSampler creates a new sampler with the given configuration.
func NewSampler(config SamplingConfig) *Sampler {
	var rng *rand.Rand
	if config.Seed >= 0 {
		rng = rand.New(rand.NewSource(config.Seed)) //nolint:gosec // Intentional deterministic seed for reproducibility
	} else {
		rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // User requested random seed
	}
	return &Sampler{config: config, rng: rng}
}

// NewSamplerWithRand creates a sampler drawing from rng.
func NewSamplerWithRand(config SamplingConfig, rng *rand.Rand) *Sampler {
	return &Sampler{config: config, rng: rng}
}

// Decode generates until EOS or MaxLen tokens.
func (s *Sampler) Decode(stepper Stepper) Result {
	var res Result
	state := stepper.InitialState()
	prev := []int{-1}
	for i := 0; i < s.config.MaxLen; i++ {
		probs, next := stepper.Next(prev, state)
		row := probs.RawRowView(0)

		var w int
		if s.config.Argmax {
			w = floats.MaxIdx(row)
		} else {
			w = s.multinomial(row)
		}
		res.Tokens = append(res.Tokens, w)
		res.Score -= math.Log(row[w])
		if w == EOS {
			break
		}
		prev = []int{w}
		state = next
	}
	return res
}

// multinomial samples from a categorical distribution.
func (s *Sampler) multinomial(probs []float64) int {
	r := s.rng.Float64()

	cumSum := 0.0
	for i, p := range probs {
		cumSum += p
		if r < cumSum {
			return i
		}
	}

	// Return last token if rounding errors
	return len(probs) - 1
}
