package server

import (
	"context"
	"time"

	"appgate/protocol"
	"appgate/protocol/pipe"

	"github.com/pkg/errors"
)

var (
	ErrStartupFailed  = errors.New("application startup failed")
	ErrShutdownFailed = errors.New("application shutdown failed")
)

type lifespanConn struct {
	end    *pipe.End
	cancel func()
	// done receives the result of the application's Serve.
	done chan error
}

func (s *Server) startLifespan(ctx context.Context) error {
	if s.opts.Lifespan == LifespanOff {
		return nil
	}

	serverEnd, appEnd := pipe.New(s.clock)

	id := s.counter.Next()
	lctx, cancel := context.WithCancel(protocol.WithConnID(context.Background(), id))
	lc := &lifespanConn{
		end:    serverEnd,
		cancel: cancel,
		done:   make(chan error, 1),
	}

	go func() {
		err := s.callApp(lctx, protocol.Scope{Type: protocol.ScopeLifespan}, appEnd.Receive, appEnd.Send)
		appEnd.Close()
		lc.done <- err
	}()

	reply, err := s.lifespanExchange(ctx, serverEnd, protocol.LifespanStartup{})
	if err != nil {
		lc.close()

		if errors.Is(err, protocol.ErrChannelClosed) {
			// The application returned without answering.
			appErr := <-lc.done
			if s.opts.Lifespan == LifespanAuto {
				s.logger.Info("lifespan not supported by application", "error", appErr)
				return nil
			}
			return errors.Wrapf(ErrStartupFailed, "application left lifespan: %v", appErr)
		}
		s.awaitLifespan(lc)
		return errors.Wrap(err, "waiting for startup")
	}

	switch reply := reply.(type) {
	case protocol.LifespanStartupComplete, protocol.LifespanStartup:
		s.logger.Info("application startup complete")
		s.lifespan = lc
		return nil
	case protocol.LifespanStartupFailed:
		lc.close()
		s.awaitLifespan(lc)
		return errors.Wrap(ErrStartupFailed, reply.Message)
	default:
		lc.close()
		s.awaitLifespan(lc)
		return protocol.Violation("awaiting startup reply", reply,
			protocol.TypeLifespanStartupComplete, protocol.TypeLifespanStartupFailed,
		)
	}
}

func (s *Server) stopLifespan(ctx context.Context) error {
	lc := s.lifespan
	if lc == nil {
		return nil
	}
	s.lifespan = nil
	defer lc.close()

	reply, err := s.lifespanExchange(ctx, lc.end, protocol.LifespanShutdown{})
	if err != nil {
		return errors.Wrap(err, "waiting for shutdown")
	}

	select {
	case err := <-lc.done:
		if err != nil {
			s.logger.Error("lifespan connection ended with error", "error", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	switch reply := reply.(type) {
	case protocol.LifespanShutdownComplete, protocol.LifespanShutdown:
		s.logger.Info("application shutdown complete")
		return nil
	case protocol.LifespanShutdownFailed:
		return errors.Wrap(ErrShutdownFailed, reply.Message)
	default:
		return protocol.Violation("awaiting shutdown reply", reply,
			protocol.TypeLifespanShutdownComplete, protocol.TypeLifespanShutdownFailed,
		)
	}
}

// awaitLifespan waits for an abandoned lifespan connection to end, so that
// the application's cleanup is observed. LifespanTimeout bounds the wait.
func (s *Server) awaitLifespan(lc *lifespanConn) {
	var timeout <-chan time.Time
	if t := s.opts.LifespanTimeout; t > 0 {
		timeout = s.clock.After(t)
	}

	select {
	case err := <-lc.done:
		if err != nil {
			s.logger.Error("lifespan connection ended with error", "error", err)
		}
	case <-timeout:
		s.logger.Warn("lifespan connection still running after startup was abandoned")
	}
}

func (s *Server) lifespanExchange(ctx context.Context, end *pipe.End, msg protocol.Message) (protocol.Message, error) {
	if timeout := s.opts.LifespanTimeout; timeout > 0 {
		var cancel func()
		ctx, cancel = s.clock.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := end.Send(ctx, msg); err != nil {
		return nil, err
	}
	return end.Receive(ctx)
}

func (lc *lifespanConn) close() {
	lc.end.Close()
	lc.cancel()
}
