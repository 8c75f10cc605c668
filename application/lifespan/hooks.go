package lifespan

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Hooks is the application work done around the lifespan handshake.
type Hooks interface {
	Startup(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Funcs adapts plain functions to [Hooks]. Nil functions do nothing.
type Funcs struct {
	OnStartup  func(ctx context.Context) error
	OnShutdown func(ctx context.Context) error
}

var _ Hooks = Funcs{}

func (f Funcs) Startup(ctx context.Context) error {
	if f.OnStartup == nil {
		return nil
	}
	return f.OnStartup(ctx)
}

func (f Funcs) Shutdown(ctx context.Context) error {
	if f.OnShutdown == nil {
		return nil
	}
	return f.OnShutdown(ctx)
}

type Phase string

const (
	PhaseStartup  Phase = "startup"
	PhaseShutdown Phase = "shutdown"
)

var ErrHandlerFailure = errors.New("lifespan handler failed")

// Failure is returned when startup or shutdown work fails.
type Failure struct {
	Phase Phase
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s %s: %s", ErrHandlerFailure, f.Phase, f.Err)
}

func (f *Failure) Unwrap() []error { return []error{ErrHandlerFailure, f.Err} }

// Diagnostic renders the failure with its stack trace, if the cause carries one.
func (f *Failure) Diagnostic() string {
	return fmt.Sprintf("%s: %+v", f.Phase, f.Err)
}

func runHook(ctx context.Context, phase Phase, hook func(context.Context) error) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = &Failure{Phase: phase, Err: errors.Errorf("%s hook panicked: %v", phase, e)}
		}
	}()

	if err := hook(ctx); err != nil {
		if _, ok := err.(stackTracer); !ok {
			err = errors.WithStack(err)
		}
		return &Failure{Phase: phase, Err: err}
	}
	return nil
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}
