package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp(func(ctx context.Context, cfg Config) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg, logger)
	})
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "appgate: %+v\n", err)
		os.Exit(1)
	}
}

func newApp(action func(ctx context.Context, cfg Config) error) *cli.App {
	return &cli.App{
		Name:  "appgate",
		Usage: "serve the application over HTTP through the in-process message protocol",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file.",
				EnvVars: []string{"APPGATE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address for the HTTP server to listen on.",
			},
			&cli.StringFlag{
				Name:  "metrics-listen",
				Usage: "Address for the metrics server. Empty disables it.",
			},
			&cli.StringFlag{
				Name:  "lifespan",
				Usage: "Lifespan mode. One of [auto,on,off].",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level. One of [debug,info,warn,error].",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Datastore directory. Empty keeps data in memory.",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := configFromContext(c)
			if err != nil {
				return err
			}
			return action(c.Context, cfg)
		},
	}
}

// configFromContext loads the config file, if any, then applies flags set
// on the command line.
func configFromContext(c *cli.Context) (Config, error) {
	cfg := DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = loadConfig(path); err != nil {
			return Config{}, err
		}
	}

	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}
	if c.IsSet("metrics-listen") {
		cfg.MetricsListen = c.String("metrics-listen")
	}
	if c.IsSet("lifespan") {
		if err := cfg.setLifespan(c.String("lifespan")); err != nil {
			return Config{}, err
		}
	}
	if c.IsSet("log-level") {
		if err := cfg.setLogLevel(c.String("log-level")); err != nil {
			return Config{}, err
		}
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}

	return cfg, cfg.validate()
}
