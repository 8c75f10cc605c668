package http

import (
	"testing"

	"appgate/protocol"

	"github.com/stretchr/testify/assert"
)

func TestValidHeaderName(t *testing.T) {
	for _, name := range []string{"content-type", "X-Request-Id", "a!#$%&'*+-.^_`|~9"} {
		assert.True(t, ValidHeaderName([]byte(name)), name)
	}
	for _, name := range []string{"", "bad header", "colon:", "tab\t", "é"} {
		assert.False(t, ValidHeaderName([]byte(name)), name)
	}
}

func TestValidHeaderValue(t *testing.T) {
	assert.True(t, ValidHeaderValue(nil))
	assert.True(t, ValidHeaderValue([]byte("text/plain; charset=utf-8")))
	assert.False(t, ValidHeaderValue([]byte("a\r\nSet-Cookie: x")))
	assert.False(t, ValidHeaderValue([]byte{'a', 0}))
}

func TestCheckHeaders(t *testing.T) {
	assert.NoError(t, checkHeaders(NewResponse(200, []byte("x")).Headers))
	assert.ErrorIs(t, checkHeaders([]protocol.Header{protocol.NewHeader("bad name", "v")}), ErrInvalidHeader)
	assert.ErrorIs(t, checkHeaders([]protocol.Header{protocol.NewHeader("ok", "v\n")}), ErrInvalidHeader)
}
