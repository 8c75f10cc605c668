// Package endpoint routes assembled requests to a small set of behaviors.
// Dispatch is pure: it maps (path, method, body) to a response and does no I/O.
package endpoint

import (
	"appgate/application/http"
)

const (
	EchoPrefix   = "echo: "
	GreetingBody = "Hello, world!"
)

// Endpoint computes the response for a request.
type Endpoint func(req http.Request) http.Response

// Echo responds 200 with the request body prefixed by [EchoPrefix].
func Echo(req http.Request) http.Response {
	body := make([]byte, 0, len(EchoPrefix)+len(req.Body))
	body = append(body, EchoPrefix...)
	body = append(body, req.Body...)
	return http.NewResponse(200, body)
}

// Status responds 204 with no body.
func Status(http.Request) http.Response {
	return http.NewResponse(204, nil)
}

// BadRequest responds 400 with no body.
func BadRequest(http.Request) http.Response {
	return http.NewResponse(400, nil)
}

// Greeting responds 200 with [GreetingBody] regardless of the request.
func Greeting(http.Request) http.Response {
	return http.NewResponse(200, []byte(GreetingBody))
}

// ContentTooLarge is used when the request body exceeds the configured limit.
func ContentTooLarge(http.Request) http.Response {
	return http.NewResponse(413, nil)
}
