// Package server accepts connections and runs the application once per connection.
// It also drives the lifespan handshake over a dedicated connection.
package server

import (
	"context"
	"log/slog"
	"sync"

	"appgate/protocol"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type Server struct {
	l   Listener
	app protocol.App

	closeListener func()
	cancelConns   func()
	acceptDone    chan struct{}
	wg            sync.WaitGroup

	lifespan *lifespanConn
	counter  Counter

	logger *slog.Logger
	clock  clock.Clock
	opts   Options
}

func New(
	l Listener,
	logger *slog.Logger,
	clock clock.Clock,
	app protocol.App,
	opts Options,
) *Server {
	if opts.Lifespan == "" {
		opts.Lifespan = LifespanAuto
	}
	return &Server{
		l:      l,
		app:    app,
		logger: logger,
		clock:  clock,
		opts:   opts,
	}
}

// Start completes the startup handshake, then begins accepting connections.
// It fails when the application reports a failed startup.
func (s *Server) Start(ctx context.Context) error {
	if err := s.startLifespan(ctx); err != nil {
		return err
	}

	acceptCtx, cancel := context.WithCancel(context.Background())
	s.closeListener = cancel

	connCtx, connCancel := context.WithCancel(context.Background())
	s.cancelConns = connCancel

	s.acceptDone = make(chan struct{})
	go func() {
		defer close(s.acceptDone)
		for {
			conn, err := s.l.Accept(acceptCtx)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, ErrListenerClosed) {
					s.logger.Error(
						"unexpected error when accepting connection",
						"error", err.Error(),
					)
				}
				return
			}

			id := s.counter.Next()
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.serveConn(protocol.WithConnID(connCtx, id), id, conn)
			}()
		}
	}()

	return nil
}

// Connections returns how many connections were handed to the application,
// including the lifespan connection.
func (s *Server) Connections() uint64 { return s.counter.Value() }

func (s *Server) serveConn(ctx context.Context, id uint64, conn Conn) {
	logger := s.logger.With("conn", id)

	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("error when closing connection", "error", err)
		}
	}()

	err := s.callApp(ctx, conn.Scope(), conn.Receive, conn.Send)

	switch {
	case err == nil:
		// no-op.
	case errors.Is(err, context.Canceled):
		logger.Debug("connection canceled")
	case protocol.IsDisconnect(err):
		logger.Debug("client disconnected", "error", err)
	case errors.Is(err, protocol.ErrProtocolViolation):
		logger.Warn("protocol violation", "error", err)
	default:
		logger.Error("application error", "error", err)
	}
}

func (s *Server) callApp(
	ctx context.Context,
	scope protocol.Scope,
	receive protocol.ReceiveFunc,
	send protocol.SendFunc,
) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("application panicked: %v", e)
		}
	}()
	return s.app.Serve(ctx, scope, receive, send)
}

// Close stops accepting connections and waits for running ones.
// If ctx ends first, running connections are canceled.
// The shutdown handshake runs last.
func (s *Server) Close(ctx context.Context) error {
	if s.closeListener != nil {
		s.closeListener()
		if err := s.l.Close(); err != nil && !errors.Is(err, ErrListenerClosed) {
			s.logger.Error("error when closing listener", "error", err)
		}
		<-s.acceptDone

		waited := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(waited)
		}()

		select {
		case <-waited:
		case <-ctx.Done():
			s.logger.Warn("canceling running connections")
			s.cancelConns()
			<-waited
		}
		s.cancelConns()
	}

	return s.stopLifespan(ctx)
}
