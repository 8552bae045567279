package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"
	"github.com/viant/mcp-protocol/syncmap"
	"golang.org/x/sync/singleflight"

	"github.com/plexora/authbridge/bridge"
	"github.com/plexora/authbridge/credential"
	"github.com/plexora/authbridge/registry"
)

// Server owns the protocol transports and the per-connection authorization
// state. It decides reuse-vs-create by the advertised session id before any
// tool logic runs, and keeps the auth registry in sync with credential
// validation outcomes.
type Server struct {
	activeContexts *syncmap.Map[int, *activeContext]
	info           schema.Implementation
	newHandler     protoserver.NewHandler

	instructions    *string
	protocolVersion string
	loggerName      string

	bridge      *bridge.Service
	issuer      *credential.Issuer
	connections *registry.Registry

	corsHandler  Middleware
	corsConfig   *Cors
	refreshGroup singleflight.Group
	logger       *slog.Logger

	stdioServer
	httpServer
}

func (s *Server) cancelOperation(id int) {
	if active, ok := s.activeContexts.Get(id); ok {
		active.CancelFunc()
		s.activeContexts.Delete(id)
	}
}

// NewHandler creates a transport handler bound to one protocol connection.
func (s *Server) NewHandler(ctx context.Context, aTransport transport.Transport) transport.Handler {
	return s.newTransportHandler(ctx, aTransport)
}

func (s *Server) newTransportHandler(ctx context.Context, aTransport transport.Transport) *Handler {
	ret := &Handler{
		Server:   s,
		Notifier: aTransport,
	}
	ret.Logger = NewLogger(s.loggerName, &ret.loggingLevel, ret.Notifier)
	clientOps := NewClient(nil, aTransport)
	ret.handler, ret.err = s.newHandler(ctx, aTransport, ret.Logger, clientOps)
	return ret
}

// New creates a server instance.
func New(options ...Option) (*Server, error) {
	s := &Server{
		info: schema.Implementation{
			Name:    "authbridge",
			Version: "0.1",
		},
		loggerName:      "server",
		protocolVersion: schema.LatestProtocolVersion,
		activeContexts:  syncmap.NewMap[int, *activeContext](),
		connections:     registry.New(),
		logger:          slog.Default(),
	}
	corsMiddleware := &corsHandler{Cors: defaultCors()}
	s.corsConfig = corsMiddleware.Cors
	s.corsHandler = corsMiddleware.Middleware

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	if s.newHandler == nil {
		return nil, errors.New("no handler specified")
	}
	return s, nil
}

// Connections exposes the per-connection auth registry consumed by tool
// handlers.
func (s *Server) Connections() *registry.Registry {
	return s.connections
}
