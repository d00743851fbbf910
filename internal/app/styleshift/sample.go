package styleshift

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/born-ml/styleshift/internal/cmdapp"
	"github.com/born-ml/styleshift/internal/data"
	"github.com/born-ml/styleshift/internal/generate"
	"github.com/born-ml/styleshift/internal/train"
)

type sampleParams struct {
	model     string
	input     string
	style     int
	beam      int
	normalize bool
	argmax    bool
	maxLen    int
	seed      int64
}

var sampleFlags sampleParams

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Rewrite sentences into a style",
	Long:  `Reads one tokenized sentence per line from --input or stdin and prints its rewrite`,
	Run: func(cmd *cobra.Command, args []string) {
		p := sampleFlags
		if p.model == "" {
			p.model = cmdapp.Config.GetString("train.saveTo")
		}
		src, err := data.LoadDictionary(cmdapp.Config.GetString("data.dictionaries.source"))
		cmdapp.CheckOrPanic(err, "")
		tgt, err := data.LoadDictionary(cmdapp.Config.GetString("data.dictionaries.target"))
		cmdapp.CheckOrPanic(err, "")

		in := io.Reader(os.Stdin)
		if p.input != "" {
			f, err := os.Open(p.input)
			cmdapp.CheckOrPanic(err, "can't open input")
			defer f.Close()
			in = f
		}
		cmdapp.CheckOrPanic(runSample(p, src, tgt, in, cmd.OutOrStdout()), "sampling failed")
	},
}

func init() {
	f := sampleCmd.Flags()
	f.StringVarP(&sampleFlags.model, "model", "m", "", "checkpoint (default is train.saveTo)")
	f.StringVarP(&sampleFlags.input, "input", "i", "", "input file (default is stdin)")
	f.IntVarP(&sampleFlags.style, "style", "s", 1, "target style")
	f.IntVarP(&sampleFlags.beam, "beam", "k", 0, "beam width, 0 samples one hypothesis")
	f.BoolVar(&sampleFlags.normalize, "normalize", false, "rank beam results by length-normalized score")
	f.BoolVar(&sampleFlags.argmax, "argmax", false, "take the most likely token instead of sampling")
	f.IntVar(&sampleFlags.maxLen, "maxlen", generate.DefaultSamplingConfig().MaxLen, "maximum output length")
	f.Int64Var(&sampleFlags.seed, "seed", -1, "sampling seed, -1 for random")
}

func runSample(p sampleParams, src, tgt *data.Dictionary, in io.Reader, out io.Writer) error {
	m, err := train.LoadModel(p.model)
	if err != nil {
		return err
	}
	if p.style < 0 || p.style >= m.Styles() {
		return errors.Errorf("style %d out of range [0, %d)", p.style, m.Styles())
	}
	sampler := generate.NewSampler(generate.SamplingConfig{Argmax: p.argmax, MaxLen: p.maxLen, Seed: p.seed})
	nWordsSrc := m.Options().NWordsSrc

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		ids := src.Encode(strings.Fields(scanner.Text()), nWordsSrc)
		session := m.NewSession(ids, p.style)

		var res generate.Result
		if p.beam > 0 {
			results := generate.Beam(session, p.beam, p.maxLen)
			if i := generate.Best(results, p.normalize); i >= 0 {
				res = results[i]
			}
		} else {
			res = sampler.Decode(session)
		}
		if _, err := fmt.Fprintln(out, strings.Join(tgt.Decode(res.Tokens), " ")); err != nil {
			return err
		}
	}
	return errors.Wrap(scanner.Err(), "can't read input")
}
