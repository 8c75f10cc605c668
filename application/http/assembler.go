package http

import (
	"bytes"
	"context"

	"appgate/protocol"

	"github.com/pkg/errors"
)

var ErrBodyTooLarge = errors.New("request body too large")

type BodyOptions struct {
	// MaxSize limits the assembled body. Zero means no limit.
	MaxSize uint
}

// Assembler collects request body chunks for one connection.
type Assembler struct {
	opts   BodyOptions
	chunks [][]byte
	size   uint
	done   bool
}

func NewAssembler(opts BodyOptions) *Assembler {
	return &Assembler{opts: opts}
}

// Feed consumes one inbound message.
// It returns true once the final chunk has been consumed.
func (a *Assembler) Feed(msg protocol.Message) (done bool, err error) {
	if a.done {
		return true, errors.New("body already assembled")
	}

	switch msg := msg.(type) {
	case protocol.HTTPDisconnect:
		a.Reset()
		return false, protocol.ErrClientDisconnected
	case protocol.HTTPRequest:
		a.size += uint(len(msg.Body))
		if a.opts.MaxSize > 0 && a.size > a.opts.MaxSize {
			a.Reset()
			return false, errors.Wrapf(ErrBodyTooLarge, "exceeds %d bytes", a.opts.MaxSize)
		}
		if len(msg.Body) > 0 {
			a.chunks = append(a.chunks, msg.Body)
		}
		// Absent and false both mean this was the last chunk.
		a.done = !msg.MoreBody
		return a.done, nil
	default:
		return false, protocol.Violation("reading request body", msg,
			protocol.TypeHTTPRequest, protocol.TypeHTTPDisconnect,
		)
	}
}

// Body concatenates the collected chunks.
func (a *Assembler) Body() []byte {
	return bytes.Join(a.chunks, nil)
}

// Reset discards everything collected so far.
func (a *Assembler) Reset() {
	a.chunks = nil
	a.size = 0
	a.done = false
}

// ReadBody receives messages until the request body is complete.
//
// A disconnect, or the channel closing, results in [protocol.ErrClientDisconnected].
// Any other message type results in [protocol.ErrProtocolViolation].
func ReadBody(ctx context.Context, receive protocol.ReceiveFunc, opts BodyOptions) ([]byte, error) {
	a := NewAssembler(opts)

	for {
		msg, err := receive(ctx)
		if err != nil {
			if errors.Is(err, protocol.ErrChannelClosed) {
				return nil, errors.Wrap(protocol.ErrClientDisconnected, err.Error())
			}
			return nil, errors.Wrap(err, "receiving request body")
		}

		done, err := a.Feed(msg)
		if err != nil {
			return nil, err
		}
		if done {
			return a.Body(), nil
		}
	}
}
