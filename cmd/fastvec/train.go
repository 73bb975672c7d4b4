package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fastvec/internal/corpus"
	"github.com/samcharles93/fastvec/internal/dict"
	"github.com/samcharles93/fastvec/internal/logger"
	"github.com/samcharles93/fastvec/internal/loss"
	"github.com/samcharles93/fastvec/internal/train"
	"github.com/samcharles93/fastvec/internal/vecio"
)

// session is a finished training run together with its vocabulary.
type session struct {
	cfg    train.Config
	input  string
	dict   *dict.Dictionary
	result *train.Result
}

type trainReport struct {
	Input          string  `json:"input"`
	Mode           string  `json:"mode"`
	Loss           string  `json:"loss"`
	Dim            int     `json:"dim"`
	Epochs         int     `json:"epochs"`
	Threads        int     `json:"threads"`
	Words          int     `json:"words"`
	Labels         int     `json:"labels"`
	Tokens         int64   `json:"tokens"`
	FinalLoss      float64 `json:"final_loss"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Vectors        string  `json:"vectors,omitempty"`
}

func (o *trainOptions) trainConfig() (train.Config, error) {
	mode, err := train.ParseMode(o.mode)
	if err != nil {
		return train.Config{}, err
	}
	cfg := train.DefaultConfig(mode)
	if o.loss != "" {
		if cfg.Loss, err = loss.ParseName(o.loss); err != nil {
			return train.Config{}, err
		}
	}
	if o.lr > 0 {
		cfg.LR = o.lr
	}
	cfg.Dim = int(o.dim)
	cfg.Window = int(o.window)
	cfg.Epochs = int(o.epochs)
	cfg.Neg = int(o.neg)
	cfg.LRUpdateRate = int(o.lrRate)
	cfg.Seed = o.seed
	if o.threads <= 0 {
		return train.Config{}, fmt.Errorf("--thread must be positive, got %d", o.threads)
	}
	return cfg, cfg.Validate()
}

// requireSupervised rejects modes whose output rows are words rather than
// labels. command prefixes the error.
func (o *trainOptions) requireSupervised(command string) error {
	mode, err := train.ParseMode(o.mode)
	if err != nil {
		return err
	}
	if mode != train.Supervised {
		return cli.Exit(fmt.Sprintf("%s: --mode must be supervised, got %s", command, mode), 1)
	}
	return nil
}

// runTraining builds the dictionary from the input file and trains over
// one file partition per thread.
func runTraining(ctx context.Context, o *trainOptions) (*session, error) {
	log := logger.FromContext(ctx)

	input, err := resolveInput(o.input)
	if err != nil {
		return nil, err
	}
	cfg, err := o.trainConfig()
	if err != nil {
		return nil, err
	}
	cfg.OnProgress = newProgressPrinter(os.Stderr, log, stderrIsTTY()).report

	f, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	d, err := dict.Build(f, o.dictOptions(cfg.Mode))
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("build dictionary: %w", err)
	}
	log.Info("dictionary built",
		"words", d.NumWords(),
		"labels", d.NumLabels(),
		"tokens", d.TotalTokens(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	tr, err := train.New(cfg, d, log)
	if err != nil {
		return nil, err
	}
	readers, err := corpus.PartitionFile(input, int(o.threads))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := corpus.CloseAll(readers); err != nil {
			log.Warn("closing corpus partitions", "error", err)
		}
	}()
	res, err := tr.Train(ctx, readers)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, input: input, dict: d, result: res}, nil
}

func (s *session) writeVectors(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := vecio.WriteVectors(f, s.dict, s.result.Model.Input()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *session) report(threads int, vectors string) trainReport {
	return trainReport{
		Input:          s.input,
		Mode:           s.cfg.Mode.String(),
		Loss:           s.cfg.Loss.String(),
		Dim:            s.cfg.Dim,
		Epochs:         s.cfg.Epochs,
		Threads:        threads,
		Words:          s.dict.NumWords(),
		Labels:         s.dict.NumLabels(),
		Tokens:         s.result.Tokens,
		FinalLoss:      s.result.Loss,
		ElapsedSeconds: s.result.Elapsed.Seconds(),
		Vectors:        vectors,
	}
}

func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func trainCmd() *cli.Command {
	var (
		o      trainOptions
		output string
	)

	return &cli.Command{
		Name:  "train",
		Usage: "Train a model and write its word vectors",
		Flags: append(trainFlags(&o, "skipgram"),
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "path of the .vec file (default: $" + envOutDir + "/<input>.vec)",
				Destination: &output,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyTrainConfig(cmd, fileConfig, &o)

			s, err := runTraining(ctx, &o)
			if err != nil {
				return err
			}
			out, _, err := resolveVecOut(s.input, output)
			if err != nil {
				return err
			}
			if err := s.writeVectors(out); err != nil {
				return fmt.Errorf("write vectors: %w", err)
			}
			log.Info("vectors written", "path", out, "words", s.dict.NumWords())

			if o.report != "" {
				if err := writeJSONFile(o.report, s.report(int(o.threads), out)); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			}
			return nil
		},
	}
}
