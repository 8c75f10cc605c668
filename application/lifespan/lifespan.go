// Package lifespan implements the process startup and shutdown handshake.
package lifespan

import (
	"context"
	"log/slog"
	"sync"

	"appgate/protocol"

	"github.com/pkg/errors"
)

type State int

const (
	AwaitingStartup State = iota
	// Running means startup completed and the machine waits for shutdown.
	Running
	// AwaitingShutdown means shutdown was requested and shutdown work is in progress.
	AwaitingShutdown
	Complete
	StartupFailed
	ShutdownFailed
)

var stateNames = [...]string{
	AwaitingStartup:  "awaiting startup",
	Running:          "running",
	AwaitingShutdown: "awaiting shutdown",
	Complete:         "complete",
	StartupFailed:    "startup failed",
	ShutdownFailed:   "shutdown failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no more transitions can happen from s.
func (s State) Terminal() bool {
	return s == Complete || s == StartupFailed || s == ShutdownFailed
}

type Variant int

const (
	// VariantHandshake answers with *.complete or *.failed messages.
	VariantHandshake Variant = iota
	// VariantEcho sends lifespan.startup and lifespan.shutdown back verbatim.
	// A failing hook sends nothing.
	VariantEcho
)

type Options struct {
	Variant Variant
}

// Machine drives one lifespan connection.
type Machine struct {
	hooks  Hooks
	logger *slog.Logger
	opts   Options

	mu    sync.Mutex
	state State
}

func New(hooks Hooks, logger *slog.Logger, opts Options) *Machine {
	return &Machine{
		hooks:  hooks,
		logger: logger,
		opts:   opts,
		state:  AwaitingStartup,
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Debug("lifespan state changed", "from", m.state, "to", s)
	m.state = s
}

// Run handles the lifespan connection until it completes.
//
// It returns a [*Failure] when startup work fails, so the host can abort.
// Shutdown failures are reported to the peer and logged, but not returned.
func (m *Machine) Run(ctx context.Context, receive protocol.ReceiveFunc, send protocol.SendFunc) (err error) {
	if m.State() != AwaitingStartup {
		return errors.Wrap(protocol.ErrProtocolViolation, "lifespan machine already used")
	}

	msg, err := receive(ctx)
	if err != nil {
		return errors.Wrap(err, "receiving startup")
	}
	if _, ok := msg.(protocol.LifespanStartup); !ok {
		return protocol.Violation(AwaitingStartup.String(), msg, protocol.TypeLifespanStartup)
	}

	if err := m.startup(ctx, send); err != nil {
		return err
	}

	shutdownDone := false
	defer func() {
		if shutdownDone {
			return
		}
		// The connection ended without a proper shutdown. Release resources anyway.
		if herr := runHook(context.WithoutCancel(ctx), PhaseShutdown, m.hooks.Shutdown); herr != nil {
			m.logger.Error("shutdown after aborted lifespan failed", "error", herr)
		}
	}()

	msg, err = receive(ctx)
	if err != nil {
		return errors.Wrap(err, "receiving shutdown")
	}
	if _, ok := msg.(protocol.LifespanShutdown); !ok {
		return protocol.Violation(Running.String(), msg, protocol.TypeLifespanShutdown)
	}

	shutdownDone = true
	return m.shutdown(ctx, send)
}

func (m *Machine) startup(ctx context.Context, send protocol.SendFunc) error {
	m.logger.Info("starting up")

	herr := runHook(ctx, PhaseStartup, m.hooks.Startup)
	if herr != nil {
		m.setState(StartupFailed)
		m.logger.Error("startup failed", "error", herr)

		if m.opts.Variant == VariantHandshake {
			failure := herr.(*Failure)
			msg := protocol.LifespanStartupFailed{Message: failure.Diagnostic()}
			if err := send(ctx, msg); err != nil {
				return errors.Wrap(err, "sending startup failure")
			}
		}
		return herr
	}

	var reply protocol.Message = protocol.LifespanStartupComplete{}
	if m.opts.Variant == VariantEcho {
		reply = protocol.LifespanStartup{}
	}
	if err := send(ctx, reply); err != nil {
		m.setState(StartupFailed)
		if herr := runHook(context.WithoutCancel(ctx), PhaseShutdown, m.hooks.Shutdown); herr != nil {
			m.logger.Error("shutdown after unsent startup completion failed", "error", herr)
		}
		return errors.Wrap(err, "sending startup completion")
	}

	m.setState(Running)
	return nil
}

func (m *Machine) shutdown(ctx context.Context, send protocol.SendFunc) error {
	m.setState(AwaitingShutdown)
	m.logger.Info("shutting down")

	herr := runHook(ctx, PhaseShutdown, m.hooks.Shutdown)
	if herr != nil {
		m.setState(ShutdownFailed)
		m.logger.Error("shutdown failed", "error", herr)

		if m.opts.Variant == VariantHandshake {
			failure := herr.(*Failure)
			msg := protocol.LifespanShutdownFailed{Message: failure.Diagnostic()}
			if err := send(ctx, msg); err != nil {
				return errors.Wrap(err, "sending shutdown failure")
			}
		}
		return nil
	}

	var reply protocol.Message = protocol.LifespanShutdownComplete{}
	if m.opts.Variant == VariantEcho {
		reply = protocol.LifespanShutdown{}
	}
	if err := send(ctx, reply); err != nil {
		m.setState(ShutdownFailed)
		return errors.Wrap(err, "sending shutdown completion")
	}

	m.setState(Complete)
	return nil
}
