package main

import (
	"runtime"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fastvec/internal/dict"
	"github.com/samcharles93/fastvec/internal/train"
)

var (
	logLevel  string
	logFormat string
	debug     bool
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (console, json, text)",
			Value:       "console",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// trainOptions collects everything a training command needs from flags.
type trainOptions struct {
	input   string
	mode    string
	loss    string
	dim     int64
	window  int64
	epochs  int64
	neg     int64
	lr      float64
	lrRate  int64
	threads int64
	seed    int64

	minCount      int64
	minCountLabel int64
	minn          int64
	maxn          int64
	bucket        int64
	wordNgrams    int64
	samplingT     float64
	labelPrefix   string

	report string
}

// trainFlags registers the shared training flags. An empty loss, a zero lr and
// the -1 dictionary values pick the default for the chosen mode.
func trainFlags(o *trainOptions, defaultMode string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "training corpus, one example per line",
			Sources:     cli.EnvVars(envInput),
			Destination: &o.input,
		},
		&cli.StringFlag{
			Name:        "mode",
			Usage:       "training mode (supervised, cbow, skipgram)",
			Value:       defaultMode,
			Destination: &o.mode,
		},
		&cli.StringFlag{
			Name:        "loss",
			Usage:       "loss function (hs, ns, softmax, ova); empty picks the mode default",
			Destination: &o.loss,
		},
		&cli.Int64Flag{Name: "dim", Usage: "embedding dimension", Value: 100, Destination: &o.dim},
		&cli.Int64Flag{Name: "ws", Usage: "context window size", Value: 5, Destination: &o.window},
		&cli.Int64Flag{Name: "epoch", Usage: "number of passes over the corpus", Value: 5, Destination: &o.epochs},
		&cli.Int64Flag{Name: "neg", Usage: "negatives sampled per positive", Value: 5, Destination: &o.neg},
		&cli.Float64Flag{Name: "lr", Usage: "base learning rate; 0 picks the mode default", Destination: &o.lr},
		&cli.Int64Flag{Name: "lr-update-rate", Usage: "tokens between shared progress updates", Value: 100, Destination: &o.lrRate},
		&cli.Int64Flag{
			Name:        "thread",
			Aliases:     []string{"threads"},
			Usage:       "number of training goroutines",
			Value:       int64(runtime.NumCPU()),
			Destination: &o.threads,
		},
		&cli.Int64Flag{Name: "seed", Usage: "random seed", Destination: &o.seed},
		&cli.Int64Flag{Name: "min-count", Usage: "minimal word occurrences; -1 picks the mode default", Value: -1, Destination: &o.minCount},
		&cli.Int64Flag{Name: "min-count-label", Usage: "minimal label occurrences", Destination: &o.minCountLabel},
		&cli.Int64Flag{Name: "minn", Usage: "min char n-gram length; -1 picks the mode default", Value: -1, Destination: &o.minn},
		&cli.Int64Flag{Name: "maxn", Usage: "max char n-gram length; -1 picks the mode default", Value: -1, Destination: &o.maxn},
		&cli.Int64Flag{Name: "bucket", Usage: "hash buckets for n-grams; -1 picks the mode default", Value: -1, Destination: &o.bucket},
		&cli.Int64Flag{Name: "word-ngrams", Usage: "max length of word n-grams", Value: 1, Destination: &o.wordNgrams},
		&cli.Float64Flag{Name: "t", Usage: "subsampling threshold", Value: 1e-4, Destination: &o.samplingT},
		&cli.StringFlag{Name: "label", Usage: "label prefix", Value: "__label__", Destination: &o.labelPrefix},
		&cli.StringFlag{Name: "report", Usage: "write a JSON training report to this path", Destination: &o.report},
	}
}

// dictOptions resolves the dictionary options for o, filling mode defaults.
func (o *trainOptions) dictOptions(mode train.Mode) dict.Options {
	opts := dict.DefaultOptions(mode == train.Supervised)
	if o.minCount >= 0 {
		opts.MinCount = int(o.minCount)
	}
	opts.MinCountLabel = int(o.minCountLabel)
	if o.minn >= 0 {
		opts.Minn = int(o.minn)
	}
	if o.maxn >= 0 {
		opts.Maxn = int(o.maxn)
	}
	if o.bucket >= 0 {
		opts.Bucket = int(o.bucket)
	}
	opts.WordNgrams = int(o.wordNgrams)
	if opts.WordNgrams > 1 && o.bucket < 0 && opts.Bucket == 0 {
		opts.Bucket = 2_000_000
	}
	opts.SamplingT = o.samplingT
	opts.LabelPrefix = o.labelPrefix
	return opts
}
