package http

import (
	"strconv"

	"appgate/protocol"
)

// Request is a fully assembled request.
type Request struct {
	Scope protocol.Scope
	Body  []byte
}

func (r Request) Method() string { return r.Scope.Method }
func (r Request) Path() string   { return r.Scope.Path }

type Response struct {
	Status  int
	Headers []protocol.Header
	Body    []byte
}

// NewResponse builds a response. Content headers are added when body is non-empty.
func NewResponse(status int, body []byte) Response {
	res := Response{Status: status, Body: body}
	if len(body) > 0 {
		res.Headers = []protocol.Header{
			protocol.NewHeader("content-type", "text/plain; charset=utf-8"),
			protocol.NewHeader("content-length", strconv.Itoa(len(body))),
		}
	}
	return res
}

// ValidStatus reports whether code can be used as a response status.
func ValidStatus(code int) bool {
	return 100 <= code && code <= 599
}
