package styleshift

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/born-ml/styleshift/internal/cmdapp"
	"github.com/born-ml/styleshift/internal/data"
	"github.com/born-ml/styleshift/internal/embedding"
	"github.com/born-ml/styleshift/internal/metrics"
	"github.com/born-ml/styleshift/internal/model"
	"github.com/born-ml/styleshift/internal/monitor"
	"github.com/born-ml/styleshift/internal/serialization"
	"github.com/born-ml/styleshift/internal/train"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a style transfer model",
	Run: func(cmd *cobra.Command, args []string) {
		cmdapp.Log.Info("Starting training")
		ctx, cancel := cmdapp.SignalContext(context.Background())
		defer cancel()

		res, err := runTraining(ctx, cmdapp.Config, logrus.NewEntry(cmdapp.Log))
		if errors.Is(err, context.Canceled) {
			cmdapp.Log.Warnf("Stopped after %d updates", res.Updates)
			return
		}
		cmdapp.CheckOrPanic(err, "training failed")
		cmdapp.Log.WithFields(logrus.Fields{
			"run": res.RunID, "updates": res.Updates, "epochs": res.Epochs, "valid": res.ValidErr,
		}).Info("Training done")
	},
}

// runTraining builds the model and corpora described by v and trains until
// done or ctx is cancelled.
func runTraining(ctx context.Context, v *viper.Viper, log *logrus.Entry) (train.Result, error) {
	cfg := trainConfig(v)
	opts, err := modelOptions(v)
	if err != nil {
		return train.Result{}, err
	}
	if cfg.Reload {
		if opts, err = reloadOptions(cfg.SaveTo, opts, log); err != nil {
			return train.Result{}, err
		}
	}
	m, err := model.New(opts)
	if err != nil {
		return train.Result{}, err
	}

	srcDict, err := data.LoadDictionary(v.GetString("data.dictionaries.source"))
	if err != nil {
		return train.Result{}, err
	}
	tgtDict, err := data.LoadDictionary(v.GetString("data.dictionaries.target"))
	if err != nil {
		return train.Result{}, err
	}
	if err := loadEmbeddings(v, m, srcDict, tgtDict, log); err != nil {
		return train.Result{}, err
	}

	trainIt, err := data.NewTextIterator(corpus(v, "data.train", srcDict, tgtDict, opts, opts.BatchSize))
	if err != nil {
		return train.Result{}, err
	}
	defer trainIt.Close()

	collector, err := metrics.NewCollector()
	if err != nil {
		return train.Result{}, err
	}
	options := []train.Option{
		train.WithLogger(log),
		train.WithMetrics(collector),
		train.WithDictionaries(srcDict, tgtDict),
	}
	if v.GetString("data.valid.source") != "" {
		validIt, err := data.NewTextIterator(corpus(v, "data.valid", srcDict, tgtDict, opts, v.GetInt("train.validBatchSize")))
		if err != nil {
			return train.Result{}, err
		}
		defer validIt.Close()
		options = append(options, train.WithValidation(validIt))
	}

	if port := v.GetInt("monitor.port"); port > 0 {
		mctx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := monitor.StartWebServer(mctx, monitor.NewServiceData(port, collector, log)); err != nil {
				log.Error(err)
			}
		}()
	}

	trainer, err := train.New(cfg, m, trainIt, options...)
	if err != nil {
		return train.Result{}, err
	}
	return trainer.Run(ctx)
}

// reloadOptions prefers the options saved next to an existing checkpoint.
func reloadOptions(path string, opts model.Options, log *logrus.Entry) (model.Options, error) {
	companion := serialization.OptionsPath(path)
	if _, err := os.Stat(companion); os.IsNotExist(err) {
		return opts, nil
	}
	var saved model.Options
	if err := serialization.LoadOptions(companion, &saved); err != nil {
		return opts, err
	}
	log.Infof("Using model options from %s", companion)
	return saved, saved.Validate()
}

func corpus(v *viper.Viper, key string, src, tgt *data.Dictionary, opts model.Options, batchSize int) data.TextConfig {
	return data.TextConfig{
		Source:     v.GetString(key + ".source"),
		Target:     v.GetString(key + ".target"),
		Style:      v.GetString(key + ".style"),
		SourceDict: src,
		TargetDict: tgt,
		NWordsSrc:  opts.NWordsSrc,
		NWords:     opts.NWords,
		BatchSize:  batchSize,
		Styles:     opts.SentiNum,
	}
}

// loadEmbeddings initializes both embedding tables from a previous
// checkpoint or from GloVe vectors, when configured.
func loadEmbeddings(v *viper.Viper, m *model.Model, src, tgt *data.Dictionary, log *logrus.Entry) error {
	var srcTable, tgtTable *embedding.Table
	switch {
	case v.GetString("embedding.checkpoint") != "":
		path := v.GetString("embedding.checkpoint")
		var err error
		if srcTable, err = embedding.FromCheckpoint(path, "encoder.embedding.W", src); err != nil {
			return err
		}
		if tgtTable, err = embedding.FromCheckpoint(path, "decoder.embedding.W", tgt); err != nil {
			return err
		}
	case v.GetString("embedding.dir") != "":
		table, err := embedding.LoadGlove(v.GetString("embedding.dir"), v.GetInt("embedding.dim"))
		if err != nil {
			return err
		}
		srcTable, tgtTable = table, table
	default:
		return nil
	}

	n, err := srcTable.Apply(m.SourceEmbedding(), src)
	if err != nil {
		return errors.Wrap(err, "source embedding")
	}
	k, err := tgtTable.Apply(m.TargetEmbedding(), tgt)
	if err != nil {
		return errors.Wrap(err, "target embedding")
	}
	log.Infof("Initialized %d source and %d target embeddings", n, k)
	return nil
}
