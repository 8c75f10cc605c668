package endpoint

import (
	"testing"

	"appgate/application/http"
	"appgate/protocol"

	"github.com/stretchr/testify/assert"
)

func request(typ protocol.ScopeType, method, path, body string) http.Request {
	return http.Request{
		Scope: protocol.Scope{Type: typ, Method: method, Path: path},
		Body:  []byte(body),
	}
}

func TestDefault(t *testing.T) {
	testcases := []struct {
		desc   string
		req    http.Request
		status int
		body   string
	}{
		{"echo", request(protocol.ScopeHTTP, "POST", "/echo", "hi"), 200, "echo: hi"},
		{"echo empty", request(protocol.ScopeHTTP, "POST", "/echo", ""), 200, "echo: "},
		{"echo over https", request(protocol.ScopeHTTPS, "POST", "/echo", "hi"), 200, "echo: hi"},
		{"echo lower method", request(protocol.ScopeHTTP, "post", "/echo", "x"), 400, ""},
		{"echo wrong method", request(protocol.ScopeHTTP, "GET", "/echo", ""), 400, ""},
		{"status", request(protocol.ScopeHTTP, "GET", "/status", ""), 204, ""},
		{"status wrong method", request(protocol.ScopeHTTP, "POST", "/status", ""), 400, ""},
		{"unknown", request(protocol.ScopeHTTP, "GET", "/unknown", ""), 400, ""},
		{"trailing slash", request(protocol.ScopeHTTP, "GET", "/status/", ""), 400, ""},
	}

	router := Default()
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			res := router.Dispatch(tc.req)
			assert.Equal(t, tc.status, res.Status)
			assert.Equal(t, tc.body, string(res.Body))
		})
	}
}

func TestEchoHeaders(t *testing.T) {
	res := Echo(request(protocol.ScopeHTTP, "POST", "/echo", "hi"))
	assert.Equal(t, []protocol.Header{
		protocol.NewHeader("content-type", "text/plain; charset=utf-8"),
		protocol.NewHeader("content-length", "8"),
	}, res.Headers)

	assert.Empty(t, Status(http.Request{}).Headers)
}

func TestRoute(t *testing.T) {
	router := Default()
	assert.Equal(t, "/echo", router.Route(request(protocol.ScopeHTTP, "POST", "/echo", "")))
	assert.Equal(t, "/status", router.Route(request(protocol.ScopeHTTP, "GET", "/status", "")))
	assert.Equal(t, Unmatched, router.Route(request(protocol.ScopeHTTP, "post", "/echo", "")))
	assert.Equal(t, Unmatched, router.Route(request(protocol.ScopeHTTP, "GET", "/scan/1", "")))
	assert.Equal(t, Unmatched, Greeter().Route(request(protocol.ScopeHTTP, "GET", "/", "")))
}

func TestGreeter(t *testing.T) {
	router := Greeter()
	for _, path := range []string{"/", "/echo", "/anything"} {
		res := router.Dispatch(request(protocol.ScopeHTTP, "GET", path, ""))
		assert.Equal(t, 200, res.Status)
		assert.Equal(t, GreetingBody, string(res.Body))
	}
}

func TestNilFallback(t *testing.T) {
	res := NewRouter(nil).Dispatch(request(protocol.ScopeHTTP, "GET", "/", ""))
	assert.Equal(t, 400, res.Status)
}

func TestDispatchIsPure(t *testing.T) {
	req := request(protocol.ScopeHTTP, "POST", "/echo", "hi")
	router := Default()

	first := router.Dispatch(req)
	second := router.Dispatch(req)
	assert.Equal(t, first, second)
	assert.Equal(t, "hi", string(req.Body))
}
