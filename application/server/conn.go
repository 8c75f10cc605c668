package server

import (
	"context"
	"sync"

	"appgate/protocol"

	"github.com/pkg/errors"
)

var ErrListenerClosed = errors.New("listener is closed")

// Conn is one accepted connection, seen from the application side.
type Conn interface {
	Scope() protocol.Scope
	Receive(ctx context.Context) (protocol.Message, error)
	Send(ctx context.Context, msg protocol.Message) error
	Close() error
}

type Listener interface {
	// Accept blocks until a connection arrives.
	// It returns [ErrListenerClosed] after Close.
	Accept(ctx context.Context) (Conn, error)
	Close() error
}

// Counter hands out connection numbers. Numbers start at 1 and never repeat.
type Counter struct {
	mu sync.Mutex
	n  uint64
}

func (c *Counter) Next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

// Value returns the number of connections counted so far.
func (c *Counter) Value() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
