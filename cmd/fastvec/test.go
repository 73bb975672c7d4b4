package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fastvec/internal/evaluate"
	"github.com/samcharles93/fastvec/internal/logger"
)

func testCmd() *cli.Command {
	var (
		o         trainOptions
		testFile  string
		k         int64
		threshold float64
		asJSON    bool
	)

	return &cli.Command{
		Name:  "test",
		Usage: "Train a classifier and report precision and recall at k on a test file",
		Flags: append(trainFlags(&o, "supervised"),
			&cli.StringFlag{
				Name:        "test-file",
				Usage:       "labelled evaluation corpus",
				Required:    true,
				Destination: &testFile,
			},
			&cli.Int64Flag{
				Name:        "k",
				Usage:       "number of labels predicted per example",
				Value:       1,
				Destination: &k,
			},
			&cli.Float64Flag{
				Name:        "threshold",
				Usage:       "minimum probability of a predicted label",
				Destination: &threshold,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print metrics as JSON",
				Destination: &asJSON,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyTrainConfig(cmd, fileConfig, &o)
			if err := o.requireSupervised("test"); err != nil {
				return err
			}

			s, err := runTraining(ctx, &o)
			if err != nil {
				return err
			}
			if s.dict.NumLabels() == 0 {
				return cli.Exit("test: training corpus has no labels", 1)
			}

			f, err := os.Open(testFile)
			if err != nil {
				return err
			}
			defer f.Close()
			m, err := evaluate.Test(ctx, s.result.Model, s.dict, f, int(k), float32(threshold))
			if err != nil {
				return err
			}
			log.Debug("evaluation done", "examples", m.Examples, "precision", m.Precision, "recall", m.Recall)

			if o.report != "" {
				if err := writeJSONFile(o.report, s.report(int(o.threads), "")); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}
			fmt.Println(m)
			return nil
		},
	}
}
