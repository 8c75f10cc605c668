package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"appgate/application/app"
	"appgate/application/bridge"
	apphttp "appgate/application/http"
	"appgate/application/http/endpoint"
	"appgate/application/lifespan"
	"appgate/application/runtime"
	"appgate/application/server"
	"appgate/resources/cache"
	"appgate/resources/datastore"
	"appgate/resources/metrics"
	"appgate/resources/notify"
	"appgate/resources/objectstore"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// run serves until ctx ends, then drains HTTP, closes the server and
// completes the shutdown handshake.
func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	clk := clock.New()
	m := metrics.New()
	m.Registry().MustRegister(collectors.NewBuildInfoCollector())

	rt := runtime.New(runtime.Deps{
		Store:    datastore.New(cfg.DataDir),
		Objects:  objectstore.New(cfg.S3),
		Cache:    cache.New(cache.Options{TTL: cfg.CacheTTL}),
		Metrics:  m,
		Notifier: newNotifier(cfg, logger),
		Clock:    clk,
	}, logger.With("component", "runtime"))

	router := endpoint.Default()
	if cfg.Routes == "greeting" {
		router = endpoint.Greeter()
	}

	application := app.New(rt, router, logger.With("component", "app"), clk, app.Options{
		Body:     apphttp.BodyOptions{MaxSize: cfg.MaxBodySize},
		Lifespan: lifespan.Options{Variant: cfg.LifespanVariant},
		Recorder: m,
	})

	br := bridge.New(logger.With("component", "bridge"), clk, bridge.Options{ChunkSize: cfg.ChunkSize})
	srv := server.New(br, logger.With("component", "server"), clk, application, server.Options{
		Lifespan:        cfg.Lifespan,
		LifespanTimeout: cfg.LifespanTimeout,
	})

	if err := srv.Start(ctx); err != nil {
		return errors.Wrap(err, "starting server")
	}

	servers := []*http.Server{{
		Addr:              cfg.Listen,
		Handler:           br,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.MetricsListen != "" {
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsListen,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, hs := range servers {
		hs := hs
		group.Go(func() error {
			logger.Info("listening", "addr", hs.Addr)
			if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "serving %s", hs.Addr)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var err error
		for _, hs := range servers {
			err = multierr.Append(err, hs.Shutdown(shutdownCtx))
		}
		return multierr.Append(err, srv.Close(shutdownCtx))
	})

	return group.Wait()
}

func newNotifier(cfg Config, logger *slog.Logger) notify.Notifier {
	if cfg.WebhookURL == "" {
		return notify.Log{Logger: logger}
	}
	return notify.NewWebhook(cfg.WebhookURL, logger.With("component", "notify"), notify.WebhookOptions{RetryMax: 3})
}
