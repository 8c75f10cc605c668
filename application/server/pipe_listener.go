package server

import (
	"context"
	"sync"

	"appgate/protocol"
	"appgate/protocol/pipe"

	"github.com/benbjohnson/clock"
)

// PipeListener is an in-memory [Listener].
// Each Dial creates a pipe pair and hands the application end to Accept.
type PipeListener struct {
	clock clock.Clock

	requests chan *pipeConn
	closed   chan struct{}
	once     sync.Once
}

var _ Listener = (*PipeListener)(nil)

func NewPipeListener(clock clock.Clock) *PipeListener {
	return &PipeListener{
		clock:    clock,
		requests: make(chan *pipeConn),
		closed:   make(chan struct{}),
	}
}

// Dial opens a connection described by scope and returns the server end.
// It blocks until the connection is accepted.
func (pl *PipeListener) Dial(ctx context.Context, scope protocol.Scope) (*pipe.End, error) {
	serverEnd, appEnd := pipe.New(pl.clock)
	conn := &pipeConn{End: appEnd, scope: scope}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pl.closed:
		return nil, ErrListenerClosed
	case pl.requests <- conn:
		return serverEnd, nil
	}
}

func (pl *PipeListener) Accept(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pl.closed:
		return nil, ErrListenerClosed
	case conn := <-pl.requests:
		return conn, nil
	}
}

func (pl *PipeListener) Close() error {
	pl.once.Do(func() { close(pl.closed) })
	return nil
}

type pipeConn struct {
	*pipe.End
	scope protocol.Scope
}

func (c *pipeConn) Scope() protocol.Scope { return c.scope }
