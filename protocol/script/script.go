// Package script provides a channel that replays a fixed sequence of inbound
// messages and records everything sent to it.
package script

import (
	"context"
	"sync"

	"appgate/lib/ds/queue"
	"appgate/protocol"
)

type Channel struct {
	inbound *queue.FIFO[protocol.Message]

	mu        sync.Mutex
	sent      []protocol.Message
	sendLimit int // -1 means unlimited.
	received  int
}

var _ protocol.Channel = (*Channel)(nil)

// New returns a channel replaying msgs in order.
// Once they are exhausted, Receive fails with [protocol.ErrChannelClosed].
func New(msgs ...protocol.Message) *Channel {
	return &Channel{
		inbound:   queue.NewFIFO(msgs...),
		sendLimit: -1,
	}
}

// FailSendsAfter makes every send after the first n fail with [protocol.ErrChannelClosed].
func (c *Channel) FailSendsAfter(n int) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendLimit = n
	return c
}

func (c *Channel) Receive(ctx context.Context) (protocol.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg, err := c.inbound.Pop()
	if err != nil {
		return nil, protocol.ErrChannelClosed
	}

	c.mu.Lock()
	c.received++
	c.mu.Unlock()

	return msg, nil
}

func (c *Channel) Send(ctx context.Context, msg protocol.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendLimit >= 0 && len(c.sent) >= c.sendLimit {
		return protocol.ErrChannelClosed
	}
	c.sent = append(c.sent, msg)
	return nil
}

// Sent returns the messages accepted so far.
func (c *Channel) Sent() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Message(nil), c.sent...)
}

// SentTypes returns the types of messages accepted so far.
func (c *Channel) SentTypes() []protocol.Type {
	sent := c.Sent()
	types := make([]protocol.Type, 0, len(sent))
	for _, msg := range sent {
		types = append(types, msg.Type())
	}
	return types
}

// Received returns how many messages were consumed.
func (c *Channel) Received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.received
}

// Remaining returns how many scripted messages were never consumed.
func (c *Channel) Remaining() int { return c.inbound.Len() }
