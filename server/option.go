package server

import (
	"log/slog"
	"net/http"

	"github.com/viant/jsonrpc/transport/server/stdio"
	"github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"

	"github.com/plexora/authbridge/bridge"
	"github.com/plexora/authbridge/credential"
	"github.com/plexora/authbridge/registry"
)

// Option is a function that configures the server.
type Option func(s *Server) error

// WithNewHandler sets the protocol handler factory.
func WithNewHandler(newHandler protoserver.NewHandler) Option {
	return func(s *Server) error {
		s.newHandler = newHandler
		return nil
	}
}

// WithImplementation sets the server implementation info.
func WithImplementation(implementation schema.Implementation) Option {
	return func(s *Server) error {
		s.info = implementation
		return nil
	}
}

// WithInstructions sets the instructions advertised on initialize.
func WithInstructions(instructions string) Option {
	return func(s *Server) error {
		s.instructions = &instructions
		return nil
	}
}

// WithBridge mounts the authorization bridge on the server's HTTP surface and
// enables the credential middleware.
func WithBridge(service *bridge.Service) Option {
	return func(s *Server) error {
		s.bridge = service
		return nil
	}
}

// WithIssuer sets the token issuer used to validate and refresh inbound
// credentials.
func WithIssuer(issuer *credential.Issuer) Option {
	return func(s *Server) error {
		s.issuer = issuer
		return nil
	}
}

// WithRegistry overrides the default connection auth registry.
func WithRegistry(connections *registry.Registry) Option {
	return func(s *Server) error {
		s.connections = connections
		return nil
	}
}

// WithCORS adds a CORS handler to the server.
func WithCORS(cors *Cors) Option {
	return func(s *Server) error {
		handler := &corsHandler{Cors: cors}
		s.corsConfig = cors
		s.corsHandler = handler.Middleware
		return nil
	}
}

// WithAddr sets the default HTTP listen address.
func WithAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithStreamableURI sets the streamable HTTP base URI.
func WithStreamableURI(uri string) Option {
	return func(s *Server) error {
		s.streamableURI = uri
		return nil
	}
}

// WithSSEURI sets the SSE base and message URIs.
func WithSSEURI(sseURI, messageURI string) Option {
	return func(s *Server) error {
		s.sseURI = sseURI
		s.sseMessageURI = messageURI
		return nil
	}
}

// WithLoggerName sets the MCP notification logger name.
func WithLoggerName(name string) Option {
	return func(s *Server) error {
		s.loggerName = name
		return nil
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithProtectedResourcesHandler mounts an RFC 9728 protected-resource
// metadata handler.
func WithProtectedResourcesHandler(handler http.HandlerFunc) Option {
	return func(s *Server) error {
		s.protectedResourcesHandler = handler
		return nil
	}
}

// WithRootRedirect redirects "/" to the active transport base URI.
func WithRootRedirect(flag bool) Option {
	return func(s *Server) error {
		s.rootRedirect = flag
		return nil
	}
}

// WithStdioOptions sets options for the stdio transport.
func WithStdioOptions(options ...stdio.Option) Option {
	return func(s *Server) error {
		s.stdioServerOption = options
		return nil
	}
}
