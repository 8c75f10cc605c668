// Package protocol defines the message contract between a network-facing
// server and an application handler.
//
// A connection is described by an immutable [Scope] and carried over a pair of
// functions: [ReceiveFunc] pulls the next inbound [Message] and [SendFunc]
// pushes one outbound [Message]. Two sub-protocols run over this contract:
//
// - lifespan: process startup and shutdown handshake.
//
// - http: a single request/response exchange, with chunked bodies in both directions.
package protocol
