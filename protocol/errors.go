package protocol

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrProtocolViolation is returned when an inbound message is not valid
	// for the current state. It is fatal to the connection.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrClientDisconnected ends an HTTP connection early. No response is sent.
	ErrClientDisconnected = errors.New("client disconnected")
	// ErrChannelClosed is returned by receive and send when the transport is gone.
	ErrChannelClosed = errors.New("channel closed")
	// ErrDeadlineExceeded is returned when a deadline set by the server side passes.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
)

// Violation returns an error matching [ErrProtocolViolation]
// describing the unexpected message.
func Violation(state string, got Message, want ...Type) error {
	gotType := "<nil>"
	if got != nil {
		gotType = string(got.Type())
	}

	wants := make([]string, 0, len(want))
	for _, t := range want {
		wants = append(wants, fmt.Sprintf("%q", t))
	}

	return errors.Wrapf(ErrProtocolViolation,
		"%s: got %q, expected %s", state, gotType, strings.Join(wants, " or "),
	)
}

// IsDisconnect reports whether err means the peer went away.
func IsDisconnect(err error) bool {
	return errors.Is(err, ErrClientDisconnected) || errors.Is(err, ErrChannelClosed)
}
