package http

import (
	"appgate/protocol"

	"github.com/pkg/errors"
)

var ErrInvalidHeader = errors.New("invalid header")

// ValidHeaderName reports whether name is a non-empty token.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.2-2
func ValidHeaderName(name []byte) bool {
	if len(name) == 0 {
		return false
	}
	for _, c := range name {
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			continue
		}

		switch c {
		case '!', '#', '$', '%', '&', '\'', '*', '+',
			'-', '.', '^', '_', '`', '|', '~':
			continue
		}

		return false
	}
	return true
}

// ValidHeaderValue rejects values that could split a header line.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.5
func ValidHeaderValue(value []byte) bool {
	for _, c := range value {
		if c == '\r' || c == '\n' || c == 0 {
			return false
		}
	}
	return true
}

func checkHeaders(headers []protocol.Header) error {
	for _, h := range headers {
		if !ValidHeaderName(h.Name) {
			return errors.Wrapf(ErrInvalidHeader, "name %q", h.Name)
		}
		if !ValidHeaderValue(h.Value) {
			return errors.Wrapf(ErrInvalidHeader, "value of %q", h.Name)
		}
	}
	return nil
}
