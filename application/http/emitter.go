package http

import (
	"context"

	"appgate/protocol"

	"github.com/pkg/errors"
)

var (
	ErrInvalidStatus   = errors.New("invalid status code")
	ErrAlreadyStarted  = errors.New("response already started")
	ErrNotStarted      = errors.New("response not started")
	ErrAlreadyFinished = errors.New("response already finished")
)

type emitterState int

const (
	emitterIdle emitterState = iota
	emitterStarted
	emitterFinished
	emitterDisconnected
)

// Emitter sends a response in two phases:
// exactly one http.response.start, then http.response.body messages
// until one has MoreBody false.
type Emitter struct {
	send  protocol.SendFunc
	state emitterState
}

func NewEmitter(send protocol.SendFunc) *Emitter {
	return &Emitter{send: send}
}

func (e *Emitter) Started() bool { return e.state != emitterIdle }

// Done reports whether no more messages will be sent.
func (e *Emitter) Done() bool {
	return e.state == emitterFinished || e.state == emitterDisconnected
}

func (e *Emitter) Start(ctx context.Context, status int, headers []protocol.Header) error {
	switch e.state {
	case emitterDisconnected:
		return protocol.ErrClientDisconnected
	case emitterStarted, emitterFinished:
		return ErrAlreadyStarted
	}

	if !ValidStatus(status) {
		return errors.Wrapf(ErrInvalidStatus, "%d", status)
	}
	if err := checkHeaders(headers); err != nil {
		return err
	}

	if err := e.doSend(ctx, protocol.HTTPResponseStart{Status: status, Headers: headers}); err != nil {
		return err
	}

	e.state = emitterStarted
	return nil
}

// Write sends one body chunk. more reports whether more chunks follow.
func (e *Emitter) Write(ctx context.Context, body []byte, more bool) error {
	switch e.state {
	case emitterDisconnected:
		return protocol.ErrClientDisconnected
	case emitterIdle:
		return ErrNotStarted
	case emitterFinished:
		return ErrAlreadyFinished
	}

	if err := e.doSend(ctx, protocol.HTTPResponseBody{Body: body, MoreBody: more}); err != nil {
		return err
	}

	if !more {
		e.state = emitterFinished
	}
	return nil
}

// Finish ends the body stream with an empty final chunk, unless it already ended.
func (e *Emitter) Finish(ctx context.Context) error {
	if e.state == emitterFinished {
		return nil
	}
	return e.Write(ctx, nil, false)
}

// Respond sends res as a start message and a single body message.
func (e *Emitter) Respond(ctx context.Context, res Response) error {
	if err := e.Start(ctx, res.Status, res.Headers); err != nil {
		return err
	}
	return e.Write(ctx, res.Body, false)
}

func (e *Emitter) doSend(ctx context.Context, msg protocol.Message) error {
	err := e.send(ctx, msg)
	if err == nil {
		return nil
	}

	if errors.Is(err, protocol.ErrChannelClosed) {
		e.state = emitterDisconnected
		return errors.Wrap(protocol.ErrClientDisconnected, err.Error())
	}
	return errors.Wrapf(err, "sending %s", msg.Type())
}
