package protocol

import "context"

// ReceiveFunc blocks until the next inbound message arrives.
// Messages are returned in arrival order, one per call.
type ReceiveFunc func(ctx context.Context) (Message, error)

// SendFunc blocks until msg is accepted by the transport.
// Messages are delivered in call order.
type SendFunc func(ctx context.Context, msg Message) error

type Channel interface {
	Receive(ctx context.Context) (Message, error)
	Send(ctx context.Context, msg Message) error
}

// App is the application side of the protocol.
// Serve is called once per connection and returns when the connection is done.
type App interface {
	Serve(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error
}

type AppFunc func(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error

func (f AppFunc) Serve(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) error {
	return f(ctx, scope, receive, send)
}

type connIDKey struct{}

// WithConnID attaches the connection number assigned by the server.
func WithConnID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, connIDKey{}, id)
}

// ConnID returns the connection number attached by [WithConnID].
func ConnID(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(connIDKey{}).(uint64)
	return id, ok
}
