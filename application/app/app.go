// Package app is the top-level entry point of the application.
// It classifies each connection by its scope and runs either the lifespan
// handshake or a single HTTP request/response exchange.
package app

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"appgate/application/http"
	"appgate/application/http/endpoint"
	"appgate/application/lifespan"
	"appgate/protocol"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var ErrUnsupportedScope = errors.New("unsupported scope type")

type Dispatcher interface {
	Dispatch(req http.Request) http.Response
	// Route names the route serving req from a bounded set.
	Route(req http.Request) string
}

// Recorder observes completed HTTP exchanges.
// route comes from [Dispatcher.Route], never from the raw request path.
type Recorder interface {
	RecordRequest(method, route string, status int, duration time.Duration)
}

type Options struct {
	Body     http.BodyOptions
	Lifespan lifespan.Options

	Recorder Recorder
}

type App struct {
	hooks      lifespan.Hooks
	dispatcher Dispatcher

	logger *slog.Logger
	clock  clock.Clock
	opts   Options

	lifespanTaken atomic.Bool
}

var _ protocol.App = (*App)(nil)

func New(
	hooks lifespan.Hooks,
	dispatcher Dispatcher,
	logger *slog.Logger,
	clock clock.Clock,
	opts Options,
) *App {
	if hooks == nil {
		hooks = lifespan.Funcs{}
	}
	if dispatcher == nil {
		dispatcher = endpoint.Default()
	}
	return &App{
		hooks:      hooks,
		dispatcher: dispatcher,
		logger:     logger,
		clock:      clock,
		opts:       opts,
	}
}

func (a *App) Serve(ctx context.Context, scope protocol.Scope, receive protocol.ReceiveFunc, send protocol.SendFunc) error {
	logger := a.logger.With(scope.LogAttrs()...)
	if id, ok := protocol.ConnID(ctx); ok {
		logger = logger.With("conn", id)
	}

	logger.Debug("beginning connection")
	defer logger.Debug("ending connection")

	switch {
	case scope.Type == protocol.ScopeLifespan:
		return a.serveLifespan(ctx, logger, receive, send)
	case scope.IsHTTP():
		return a.serveHTTP(ctx, logger, scope, receive, send)
	default:
		return errors.Wrapf(ErrUnsupportedScope, "%q", scope.Type)
	}
}

func (a *App) serveLifespan(ctx context.Context, logger *slog.Logger, receive protocol.ReceiveFunc, send protocol.SendFunc) error {
	// Startup must happen once per process.
	if !a.lifespanTaken.CompareAndSwap(false, true) {
		return errors.Wrap(protocol.ErrProtocolViolation, "lifespan connection already served")
	}

	m := lifespan.New(a.hooks, logger, a.opts.Lifespan)
	err := m.Run(ctx, receive, send)
	if state := m.State(); !state.Terminal() {
		logger.Warn("lifespan ended before completion", "state", state)
	}
	return err
}

func (a *App) serveHTTP(
	ctx context.Context,
	logger *slog.Logger,
	scope protocol.Scope,
	receive protocol.ReceiveFunc,
	send protocol.SendFunc,
) error {
	start := a.clock.Now()

	req := http.Request{Scope: scope}

	var res http.Response
	body, err := http.ReadBody(ctx, receive, a.opts.Body)
	switch {
	case errors.Is(err, protocol.ErrClientDisconnected):
		// Nothing to answer to.
		logger.Debug("client disconnected before request completed")
		return nil
	case errors.Is(err, http.ErrBodyTooLarge):
		logger.Info("request body too large", "limit", a.opts.Body.MaxSize)
		res = endpoint.ContentTooLarge(req)
	case err != nil:
		return errors.Wrap(err, "reading request")
	default:
		req.Body = body
		res = a.dispatcher.Dispatch(req)
	}

	emitter := http.NewEmitter(send)
	if err := emitter.Respond(ctx, res); err != nil {
		if protocol.IsDisconnect(err) {
			logger.Debug("client disconnected while sending response")
			return nil
		}
		return errors.Wrap(err, "sending response")
	}

	if a.opts.Recorder != nil {
		a.opts.Recorder.RecordRequest(scope.Method, a.dispatcher.Route(req), res.Status, a.clock.Since(start))
	}
	return nil
}
