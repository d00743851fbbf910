package styleshift

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/born-ml/styleshift/internal/cmdapp"
	"github.com/born-ml/styleshift/internal/model"
	"github.com/born-ml/styleshift/internal/nn"
	"github.com/born-ml/styleshift/internal/train"
)

const defaultValidBatchSize = 16

func setDefaults(v *viper.Viper) {
	o := model.DefaultOptions()
	c := train.DefaultConfig()
	cmdapp.SetDefaults(v, map[string]interface{}{
		"model.dimWord":       o.DimWord,
		"model.dim":           o.Dim,
		"model.encoder":       o.Encoder.String(),
		"model.decoder":       o.Decoder.String(),
		"model.nWordsSrc":     o.NWordsSrc,
		"model.nWords":        o.NWords,
		"model.sentiNum":      o.SentiNum,
		"model.attentionFold": o.AttentionFold,
		"model.seed":          o.Seed,

		"train.maxLen":         o.MaxLen,
		"train.optimizer":      o.Optimizer,
		"train.lrate":          o.LRate,
		"train.batchSize":      o.BatchSize,
		"train.validBatchSize": defaultValidBatchSize,
		"train.weightD":        o.WeightD,
		"train.weightH":        o.WeightH,
		"train.styleClass":     o.StyleClass,
		"train.styleAdv":       o.StyleAdv,
		"train.decayC":         o.DecayC,

		"train.patience":    c.Patience,
		"train.maxEpochs":   c.MaxEpochs,
		"train.finishAfter": c.FinishAfter,
		"train.dispFreq":    c.DispFreq,
		"train.validFreq":   c.ValidFreq,
		"train.saveFreq":    c.SaveFreq,
		"train.sampleFreq":  c.SampleFreq,
		"train.saveTo":      c.SaveTo,
		"train.overwrite":   c.Overwrite,
		"train.reload":      c.Reload,

		"embedding.dim": o.DimWord,
		"monitor.port":  0,
	})
}

// modelOptions reads the model options from v.
func modelOptions(v *viper.Viper) (model.Options, error) {
	enc, err := nn.ParseCellKind(v.GetString("model.encoder"))
	if err != nil {
		return model.Options{}, errors.Wrap(err, "model.encoder")
	}
	dec, err := nn.ParseCellKind(v.GetString("model.decoder"))
	if err != nil {
		return model.Options{}, errors.Wrap(err, "model.decoder")
	}
	o := model.Options{
		DimWord:       v.GetInt("model.dimWord"),
		Dim:           v.GetInt("model.dim"),
		Encoder:       enc,
		Decoder:       dec,
		NWordsSrc:     v.GetInt("model.nWordsSrc"),
		NWords:        v.GetInt("model.nWords"),
		SentiNum:      v.GetInt("model.sentiNum"),
		AttentionFold: v.GetBool("model.attentionFold"),
		Seed:          v.GetInt64("model.seed"),

		WeightD:    v.GetFloat64("train.weightD"),
		WeightH:    v.GetFloat64("train.weightH"),
		StyleClass: v.GetBool("train.styleClass"),
		StyleAdv:   v.GetBool("train.styleAdv"),
		DecayC:     v.GetFloat64("train.decayC"),

		Optimizer: v.GetString("train.optimizer"),
		LRate:     v.GetFloat64("train.lrate"),
		MaxLen:    v.GetInt("train.maxLen"),
		BatchSize: v.GetInt("train.batchSize"),
	}
	return o, o.Validate()
}

// trainConfig reads the training schedule from v.
func trainConfig(v *viper.Viper) train.Config {
	c := train.DefaultConfig()
	c.MaxEpochs = v.GetInt("train.maxEpochs")
	c.FinishAfter = v.GetInt("train.finishAfter")
	c.Patience = v.GetInt("train.patience")
	c.DispFreq = v.GetInt("train.dispFreq")
	c.ValidFreq = v.GetInt("train.validFreq")
	c.SaveFreq = v.GetInt("train.saveFreq")
	c.SampleFreq = v.GetInt("train.sampleFreq")
	c.SaveTo = v.GetString("train.saveTo")
	c.Overwrite = v.GetBool("train.overwrite")
	c.Reload = v.GetBool("train.reload")
	return c
}
