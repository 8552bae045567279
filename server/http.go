package server

import (
	"context"
	"net/http"

	"github.com/viant/jsonrpc/transport/server/http/sse"
	"github.com/viant/jsonrpc/transport/server/http/streamable"
)

type httpServer struct {
	sseHandler                *sse.Handler
	streamingHandler          *streamable.Handler
	useStreamableHTTP         bool
	addr                      string
	sseURI                    string
	sseMessageURI             string
	streamableURI             string
	rootRedirect              bool
	protectedResourcesHandler http.HandlerFunc
}

// UseStreamableHTTP sets whether to use streamableHTTP or SSE for the HTTP handler.
func (s *Server) UseStreamableHTTP(flag bool) {
	s.useStreamableHTTP = flag
}

// HTTP creates and returns an HTTP server exposing the protocol transports
// behind the credential middleware, with the authorization bridge mounted on
// the same mux.
func (s *Server) HTTP(_ context.Context, addr string) *http.Server {
	if addr == "" {
		addr = s.addr
	}
	if addr == "" {
		// Default bind only to localhost to reduce DNS rebinding risk
		addr = "127.0.0.1:5000"
	}
	if s.sseURI == "" {
		s.sseURI = "/sse"
	}
	if s.sseMessageURI == "" {
		s.sseMessageURI = "/message"
	}
	if s.streamableURI == "" {
		s.streamableURI = "/mcp"
	}

	s.sseHandler = sse.New(s.NewHandler,
		sse.WithURI(s.sseURI),
		sse.WithMessageURI(s.sseMessageURI),
	)
	s.streamingHandler = streamable.New(s.NewHandler,
		streamable.WithURI(s.streamableURI),
	)
	mux := http.NewServeMux()
	if s.bridge != nil {
		s.bridge.RegisterHandlers(mux)
	}
	if s.protectedResourcesHandler != nil {
		mux.Handle("/.well-known/oauth-protected-resource", s.protectedResourcesHandler)
	}

	var middlewareHandlers []Middleware
	if s.issuer != nil {
		middlewareHandlers = append(middlewareHandlers, s.credentialMiddleware())
	}
	// Validate MCP-Protocol-Version and set response header
	middlewareHandlers = append(middlewareHandlers, protocolVersionMiddleware())
	middlewareHandlers = append(middlewareHandlers, s.corsHandler)
	// Validate Origin on all requests (uses configured CORS allowlist)
	if s.corsConfig != nil {
		middlewareHandlers = append(middlewareHandlers, originValidationMiddleware(s.corsConfig.AllowOrigins))
	}
	sseChain := ChainMiddlewareHandlers(s.sseHandler, middlewareHandlers...)
	streamChain := ChainMiddlewareHandlers(s.streamingHandler, middlewareHandlers...)

	mux.Handle(s.sseURI, sseChain)
	mux.Handle(s.sseMessageURI, sseChain)
	mux.Handle(s.streamableURI, streamChain)

	if s.rootRedirect {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			target := s.sseURI
			if s.useStreamableHTTP {
				target = s.streamableURI
			}
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		})
	}
	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}
