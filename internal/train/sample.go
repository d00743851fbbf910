package train

import (
	"strconv"
	"strings"

	"github.com/born-ml/styleshift/internal/data"
	"github.com/born-ml/styleshift/internal/generate"
)

// displaySamples logs stochastic rewrites of the first examples of mb in
// both styles.
func (t *Trainer) displaySamples(mb data.Minibatch) {
	b, err := data.PrepareData(mb.Examples, t.model.Options().MaxLen)
	if err != nil {
		return
	}
	sampler := generate.NewSamplerWithRand(generate.SamplingConfig{MaxLen: t.cfg.SampleMaxLen}, t.rng)

	n := min(t.cfg.SampleCount, b.Size())
	for i := 0; i < n; i++ {
		source := b.Source(i)
		label := b.Labels[i]
		t.log.Infof("Source %d: %s", i, render(t.srcDict, source))
		t.log.Infof("Truth %d: %s", i, render(t.tgtDict, b.Target(i)))
		for _, style := range []int{label, 1 - label} {
			if style < 0 || style >= t.model.Styles() {
				continue
			}
			res := sampler.Decode(t.model.NewSession(source, style))
			t.log.Infof("Sample %d style %d: %s", i, style, render(t.tgtDict, res.Tokens))
		}
	}
}

// render decodes ids up to the first EOS; without a dictionary it prints
// the ids.
func render(dict *data.Dictionary, ids []int) string {
	if dict != nil {
		return strings.Join(dict.Decode(ids), " ")
	}
	var parts []string
	for _, id := range ids {
		if id == data.EOS {
			break
		}
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, " ")
}
