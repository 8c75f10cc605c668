// Package pipe provides an in-memory, synchronous message channel pair.
// Each message handed to Send is delivered to exactly one Receive on the
// other end, in the order Send was called.
package pipe

import (
	"context"
	"sync"
	"time"

	"appgate/protocol"

	"github.com/benbjohnson/clock"
)

// End is one side of a pipe.
type End struct {
	name string

	stream chan protocol.Message // stream that this end receives from.
	sendMu sync.Mutex

	closed chan struct{}
	once   sync.Once // making sure not to close closed channel.

	rdeadline *chanDeadline

	// the opposite end.
	counterpart *End
}

var _ protocol.Channel = (*End)(nil)

// New creates a connected pair of ends.
// Conventionally the first one is used by the server, the second one by the app.
func New(clock clock.Clock) (server, app *End) {
	server = newEnd("server", clock)
	app = newEnd("app", clock)
	server.counterpart, app.counterpart = app, server
	return
}

func newEnd(name string, clock clock.Clock) *End {
	return &End{
		name:      name,
		stream:    make(chan protocol.Message),
		closed:    make(chan struct{}),
		rdeadline: newChanDeadline(clock),
	}
}

func (e *End) String() string { return e.name }

// Close closes the pipe. Both ends fail with [protocol.ErrChannelClosed] afterwards.
func (e *End) Close() error {
	e.once.Do(func() { close(e.closed) })
	return nil
}

func (e *End) Receive(ctx context.Context) (protocol.Message, error) {
	if err := e.checkOK(); err != nil {
		return nil, err
	}

	select {
	case msg := <-e.stream:
		return msg, nil
	case <-e.closed:
		return nil, protocol.ErrChannelClosed
	case <-e.counterpart.closed:
		return nil, protocol.ErrChannelClosed
	case <-e.rdeadline.wait():
		return nil, protocol.ErrDeadlineExceeded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *End) Send(ctx context.Context, msg protocol.Message) error {
	if err := e.checkOK(); err != nil {
		return err
	}

	// Serialize sends to keep call order.
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	select {
	case e.counterpart.stream <- msg:
		return nil
	case <-e.closed:
		return protocol.ErrChannelClosed
	case <-e.counterpart.closed:
		return protocol.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetReceiveDeadline bounds every following Receive.
// A zero value means no deadline.
func (e *End) SetReceiveDeadline(t time.Time) { e.rdeadline.set(t) }

func (e *End) checkOK() error {
	switch {
	case isClosed(e.closed), isClosed(e.counterpart.closed):
		return protocol.ErrChannelClosed
	}
	return nil
}

type chanDeadline struct {
	clock clock.Clock

	t *clock.Timer
	m sync.Mutex

	fired chan struct{}
}

func newChanDeadline(clock clock.Clock) *chanDeadline {
	return &chanDeadline{
		clock: clock,
		fired: make(chan struct{}),
	}
}

func (d *chanDeadline) set(t time.Time) {
	d.m.Lock()
	defer d.m.Unlock()

	if d.t != nil {
		d.t.Stop()
	}
	d.t = nil

	if isClosed(d.fired) {
		d.fired = make(chan struct{})
	}

	if t.IsZero() {
		return
	}

	fired := d.fired
	d.t = d.clock.AfterFunc(d.clock.Until(t), func() {
		close(fired)
	})
}

func (d *chanDeadline) wait() <-chan struct{} {
	d.m.Lock()
	defer d.m.Unlock()
	return d.fired
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c: // c will only fire at closed state.
		return true
	default:
		return false
	}
}
