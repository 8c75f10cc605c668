package protocol

import "strings"

type ScopeType string

const (
	ScopeLifespan ScopeType = "lifespan"
	ScopeHTTP     ScopeType = "http"
	// ScopeHTTPS is dispatched exactly like [ScopeHTTP].
	ScopeHTTPS ScopeType = "https"
)

// Header is a single header field. Order of headers is significant.
type Header struct {
	Name  []byte
	Value []byte
}

func NewHeader(name, value string) Header {
	return Header{Name: []byte(name), Value: []byte(value)}
}

// Scope describes a connection. It is created once by the server
// and must not be modified afterwards.
type Scope struct {
	Type ScopeType

	// Fields below are only set for HTTP scopes.
	HTTPVersion string
	Method      string
	Scheme      string
	Path        string
	RawQuery    string
	Headers     []Header

	Client string
	Server string

	// RequestID identifies the request for logging.
	RequestID string
}

func (s Scope) IsHTTP() bool {
	return s.Type == ScopeHTTP || s.Type == ScopeHTTPS
}

// Header returns the value of the first header named name, compared case-insensitively.
func (s Scope) Header(name string) (string, bool) {
	for _, h := range s.Headers {
		if strings.EqualFold(string(h.Name), name) {
			return string(h.Value), true
		}
	}
	return "", false
}

// LogAttrs returns key-value pairs for slog. Headers are left out.
func (s Scope) LogAttrs() []any {
	if !s.IsHTTP() {
		return []any{"type", s.Type}
	}
	return []any{
		"type", s.Type,
		"method", s.Method,
		"path", s.Path,
		"request_id", s.RequestID,
	}
}
