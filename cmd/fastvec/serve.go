package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/fastvec/internal/api"
	"github.com/samcharles93/fastvec/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		o           trainOptions
		addr        string
		readTimeout time.Duration
		cacheSize   int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Train a classifier and serve predictions over HTTP",
		Flags: append(trainFlags(&o, "supervised"),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "cache-size",
				Usage:       "number of cached predictions",
				Value:       api.DefaultCacheSize,
				Destination: &cacheSize,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyTrainConfig(cmd, fileConfig, &o)
			if err := o.requireSupervised("serve"); err != nil {
				return err
			}
			applyServeConfig(cmd, fileConfig, &addr, &cacheSize)

			s, err := runTraining(ctx, &o)
			if err != nil {
				return err
			}
			if s.dict.NumLabels() == 0 {
				return cli.Exit("serve: training corpus has no labels", 1)
			}
			server, err := api.NewServer(s.result.Model, s.dict, int(cacheSize), log)
			if err != nil {
				return err
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "labels", s.dict.NumLabels())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
