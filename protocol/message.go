package protocol

type Type string

const (
	TypeLifespanStartup          Type = "lifespan.startup"
	TypeLifespanStartupComplete  Type = "lifespan.startup.complete"
	TypeLifespanStartupFailed    Type = "lifespan.startup.failed"
	TypeLifespanShutdown         Type = "lifespan.shutdown"
	TypeLifespanShutdownComplete Type = "lifespan.shutdown.complete"
	TypeLifespanShutdownFailed   Type = "lifespan.shutdown.failed"

	TypeHTTPRequest       Type = "http.request"
	TypeHTTPDisconnect    Type = "http.disconnect"
	TypeHTTPResponseStart Type = "http.response.start"
	TypeHTTPResponseBody  Type = "http.response.body"
)

// Message is one unit of protocol traffic.
// The set of implementations is closed; use a type switch to inspect it.
type Message interface {
	Type() Type
	message()
}

type (
	LifespanStartup         struct{}
	LifespanStartupComplete struct{}
	// LifespanStartupFailed carries a diagnostic, usually an error with its stack trace.
	LifespanStartupFailed struct{ Message string }

	LifespanShutdown         struct{}
	LifespanShutdownComplete struct{}
	LifespanShutdownFailed   struct{ Message string }
)

// HTTPRequest is one chunk of a request body.
// MoreBody reports whether more chunks follow.
type HTTPRequest struct {
	Body     []byte
	MoreBody bool
}

type HTTPDisconnect struct{}

type HTTPResponseStart struct {
	Status  int
	Headers []Header
}

type HTTPResponseBody struct {
	Body     []byte
	MoreBody bool
}

func (LifespanStartup) Type() Type          { return TypeLifespanStartup }
func (LifespanStartupComplete) Type() Type  { return TypeLifespanStartupComplete }
func (LifespanStartupFailed) Type() Type    { return TypeLifespanStartupFailed }
func (LifespanShutdown) Type() Type         { return TypeLifespanShutdown }
func (LifespanShutdownComplete) Type() Type { return TypeLifespanShutdownComplete }
func (LifespanShutdownFailed) Type() Type   { return TypeLifespanShutdownFailed }
func (HTTPRequest) Type() Type              { return TypeHTTPRequest }
func (HTTPDisconnect) Type() Type           { return TypeHTTPDisconnect }
func (HTTPResponseStart) Type() Type        { return TypeHTTPResponseStart }
func (HTTPResponseBody) Type() Type         { return TypeHTTPResponseBody }

func (LifespanStartup) message()          {}
func (LifespanStartupComplete) message()  {}
func (LifespanStartupFailed) message()    {}
func (LifespanShutdown) message()         {}
func (LifespanShutdownComplete) message() {}
func (LifespanShutdownFailed) message()   {}
func (HTTPRequest) message()              {}
func (HTTPDisconnect) message()           {}
func (HTTPResponseStart) message()        {}
func (HTTPResponseBody) message()         {}

func (t Type) String() string { return string(t) }
