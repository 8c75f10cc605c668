package script

import (
	"context"
	"testing"

	"appgate/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay(t *testing.T) {
	ctx := context.Background()
	ch := New(protocol.LifespanStartup{}, protocol.LifespanShutdown{})

	msg, err := ch.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.LifespanStartup{}, msg)
	assert.Equal(t, 1, ch.Remaining())

	msg, err = ch.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.LifespanShutdown{}, msg)

	_, err = ch.Receive(ctx)
	assert.ErrorIs(t, err, protocol.ErrChannelClosed)
	assert.Equal(t, 2, ch.Received())
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	ch := New()

	require.NoError(t, ch.Send(ctx, protocol.HTTPResponseStart{Status: 204}))
	require.NoError(t, ch.Send(ctx, protocol.HTTPResponseBody{}))

	assert.Equal(t, []protocol.Message{
		protocol.HTTPResponseStart{Status: 204},
		protocol.HTTPResponseBody{},
	}, ch.Sent())
	assert.Equal(t, []protocol.Type{
		protocol.TypeHTTPResponseStart,
		protocol.TypeHTTPResponseBody,
	}, ch.SentTypes())
}

func TestFailSendsAfter(t *testing.T) {
	ctx := context.Background()
	ch := New().FailSendsAfter(1)

	assert.NoError(t, ch.Send(ctx, protocol.HTTPResponseStart{Status: 200}))
	assert.ErrorIs(t, ch.Send(ctx, protocol.HTTPResponseBody{}), protocol.ErrChannelClosed)
	assert.Len(t, ch.Sent(), 1)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := New(protocol.HTTPDisconnect{})
	_, err := ch.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, ch.Send(ctx, protocol.HTTPResponseBody{}), context.Canceled)
	assert.Equal(t, 1, ch.Remaining())
}
