package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/on-the-ground/cellpool/config"
	"github.com/on-the-ground/cellpool/log"
)

var (
	flagConfig = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	flagLog = cli.StringFlag{
		Name:  "log",
		Usage: "Override the configured log level (debug, info, warn, error)",
	}
	flagLogFormat = cli.StringFlag{
		Name:  "log-format",
		Usage: "Override the configured log format (console, json)",
	}
)

var app = cli.Command{
	Name:  "cellpool",
	Usage: "Buffer and object pools with memoized per-tile results",

	Flags: []cli.Flag{
		&flagConfig,
		&flagLog,
		&flagLogFormat,
	},
	Commands: []*cli.Command{
		{
			Name:  "simulate",
			Usage: "Generate a grid of synthetic tiles through the pools and report reuse",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "tiles",
					Usage: "Number of tiles along each side of the grid",
					Value: 8,
				},
				&cli.IntFlag{
					Name:  "size",
					Usage: "Number of cells along each side of a tile",
					Value: 64,
				},
				&cli.IntFlag{
					Name:  "passes",
					Usage: "Number of times every tile is requested",
					Value: 2,
				},
				&cli.BoolFlag{
					Name:  "metrics",
					Usage: "Print Prometheus text metrics after the run",
				},
			},
			Action: cliSimulate,
		},
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cliSimulate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}
	logger, err := log.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync(logger)

	opts := simulation{
		tiles:   int(cmd.Int("tiles")),
		size:    int(cmd.Int("size")),
		passes:  int(cmd.Int("passes")),
		metrics: cmd.Bool("metrics"),
	}
	logger.Info("starting simulation",
		zap.Int("tiles", opts.tiles),
		zap.Int("size", opts.size),
		zap.Int("passes", opts.passes),
	)
	return simulate(ctx, cfg, opts, logger, os.Stdout)
}

func configFromFlags(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("couldn't load config: %w", err)
		}
	}
	if l := cmd.String("log"); l != "" {
		cfg.Log.Level = l
	}
	if f := cmd.String("log-format"); f != "" {
		cfg.Log.Format = f
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
