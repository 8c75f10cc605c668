// Package bridge adapts net/http to the message protocol.
//
// A [Bridge] is both an [http.Handler] and a [server.Listener]: every request
// it serves becomes one connection accepted by the server.
package bridge

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"appgate/application/server"
	iolib "appgate/lib/io"
	"appgate/protocol"
	"appgate/protocol/pipe"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const DefaultChunkSize = 64 * 1024

type Options struct {
	// ChunkSize is the largest body chunk sent in one http.request message.
	ChunkSize int
}

type Bridge struct {
	*server.PipeListener

	logger *slog.Logger
	opts   Options
}

var (
	_ http.Handler    = (*Bridge)(nil)
	_ server.Listener = (*Bridge)(nil)
)

func New(logger *slog.Logger, clock clock.Clock, opts Options) *Bridge {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Bridge{
		PipeListener: server.NewPipeListener(clock),
		logger:       logger,
		opts:         opts,
	}
}

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	scope := ScopeFrom(r)
	logger := b.logger.With("request_id", scope.RequestID)

	end, err := b.Dial(r.Context(), scope)
	if err != nil {
		if errors.Is(err, server.ErrListenerClosed) {
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		}
		return
	}
	defer end.Close()

	pumpCtx, cancelPump := context.WithCancel(context.Background())
	defer cancelPump()

	go b.pumpRequest(pumpCtx, r, end, logger)

	b.writeResponse(r.Context(), w, end, logger)
}

// pumpRequest streams the request body as http.request messages.
// After the body is sent it waits for the client to go away and reports it.
func (b *Bridge) pumpRequest(ctx context.Context, r *http.Request, end *pipe.End, logger *slog.Logger) {
	chunks := iolib.NewChunker(r.Body, b.opts.ChunkSize)
	for {
		chunk, final, err := chunks.Next()
		if err != nil {
			logger.Debug("reading request body failed", "error", err)
			_ = end.Send(ctx, protocol.HTTPDisconnect{})
			return
		}

		if err := end.Send(ctx, protocol.HTTPRequest{Body: chunk, MoreBody: !final}); err != nil {
			return
		}
		if final {
			break
		}
	}

	select {
	case <-ctx.Done():
	case <-r.Context().Done():
		_ = end.Send(ctx, protocol.HTTPDisconnect{})
	}
}

func (b *Bridge) writeResponse(ctx context.Context, w http.ResponseWriter, end *pipe.End, logger *slog.Logger) {
	started := false

	for {
		msg, err := end.Receive(ctx)
		if err != nil {
			if !started && errors.Is(err, protocol.ErrChannelClosed) {
				logger.Error("application closed connection without response")
				w.WriteHeader(http.StatusInternalServerError)
			}
			return
		}

		switch msg := msg.(type) {
		case protocol.HTTPResponseStart:
			if started {
				logger.Error("response started twice")
				return
			}
			for _, h := range msg.Headers {
				w.Header().Add(string(h.Name), string(h.Value))
			}
			w.WriteHeader(msg.Status)
			started = true

		case protocol.HTTPResponseBody:
			if !started {
				logger.Error("response body before start")
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			if len(msg.Body) > 0 {
				if _, err := w.Write(msg.Body); err != nil {
					logger.Debug("writing response body failed", "error", err)
					return
				}
			}
			if !msg.MoreBody {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}

		default:
			logger.Error("unexpected message from application", "type", msg.Type())
			if !started {
				w.WriteHeader(http.StatusInternalServerError)
			}
			return
		}
	}
}

// ScopeFrom describes r as an HTTP scope.
// Header names are lower-cased and sorted, with host first.
func ScopeFrom(r *http.Request) protocol.Scope {
	typ, scheme := protocol.ScopeHTTP, "http"
	if r.TLS != nil {
		typ, scheme = protocol.ScopeHTTPS, "https"
	}

	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make([]protocol.Header, 0, len(r.Header)+1)
	if r.Host != "" {
		headers = append(headers, protocol.NewHeader("host", r.Host))
	}
	for _, name := range names {
		for _, value := range r.Header[name] {
			headers = append(headers, protocol.NewHeader(strings.ToLower(name), value))
		}
	}

	scope := protocol.Scope{
		Type:        typ,
		HTTPVersion: strconv.Itoa(r.ProtoMajor) + "." + strconv.Itoa(r.ProtoMinor),
		Method:      r.Method,
		Scheme:      scheme,
		Path:        r.URL.Path,
		RawQuery:    r.URL.RawQuery,
		Headers:     headers,
		Client:      r.RemoteAddr,
		Server:      r.Host,
	}

	scope.RequestID, _ = scope.Header("x-request-id")
	if scope.RequestID == "" {
		scope.RequestID = uuid.NewString()
	}
	return scope
}
