package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"

	"github.com/plexora/authbridge/credential"
	"github.com/plexora/authbridge/provider"
	"github.com/plexora/authbridge/registry"
)

// RefreshedCredentialHeader carries a transparently re-issued credential back
// to the client when the presented one was expired but refreshable.
const RefreshedCredentialHeader = "X-Refreshed-Credential"

// credentialMiddleware validates the inbound bearer credential before any
// tool logic runs. Valid credentials are decoded once and attached to the
// connection auth registry keyed by session id; expired ones get a single
// refresh attempt deduplicated per session; everything else collapses into
// one unauthorized outcome with a restart challenge.
func (s *Server) credentialMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionKey := sessionKeyFromRequest(r)

			// Streamable HTTP terminates a session with DELETE.
			if r.Method == http.MethodDelete {
				if sessionKey != "" {
					s.connections.Detach(sessionKey)
					s.logger.Info("session detached", "session", shortKey(sessionKey))
				}
				next.ServeHTTP(w, r)
				return
			}
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			data, request, err := peekJSONRPCRequest(r)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(strings.NewReader(string(data)))
			if !methodRequiresCredential(request.Method) {
				next.ServeHTTP(w, r)
				return
			}

			presented := bearerCredential(r)
			if presented == "" {
				s.unauthorized(w, r, sessionKey, "credential required")
				return
			}

			payload, err := s.issuer.Decode(presented)
			switch {
			case err == nil:
			case errors.Is(err, credential.ErrCredentialExpired):
				payload, presented, err = s.refreshExpired(r.Context(), sessionKey, presented)
				if err != nil {
					if provider.IsPermanentRefresh(err) || errors.Is(err, credential.ErrCredentialInvalid) {
						s.connections.Invalidate(sessionKey)
						s.unauthorized(w, r, sessionKey, "credential can no longer be refreshed")
						return
					}
					http.Error(w, "credential refresh temporarily failed", http.StatusServiceUnavailable)
					return
				}
				w.Header().Set(RefreshedCredentialHeader, presented)
			default:
				s.unauthorized(w, r, sessionKey, "invalid credential")
				return
			}

			if sessionKey != "" {
				s.connections.Attach(sessionKey, payload)
			}
			next.ServeHTTP(w, r.WithContext(registry.NewContext(r.Context(), payload)))
		})
	}
}

// refreshExpired performs one refresh per session at a time; concurrent
// requests presenting the same expired credential share the outcome.
func (s *Server) refreshExpired(ctx context.Context, sessionKey, presented string) (*credential.Payload, string, error) {
	key := sessionKey
	if key == "" {
		key = presented
	}
	reissued, err, _ := s.refreshGroup.Do(key, func() (interface{}, error) {
		return s.issuer.Refresh(ctx, presented, nil)
	})
	if err != nil {
		s.logger.Warn("credential refresh failed", "session", shortKey(sessionKey), "error", err)
		return nil, "", err
	}
	issued := reissued.(string)
	payload, err := s.issuer.Decode(issued)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("credential refreshed", "session", shortKey(sessionKey))
	return payload, issued, nil
}

// methodRequiresCredential exempts the protocol bootstrap surface so clients
// can negotiate before authorizing.
func methodRequiresCredential(method string) bool {
	switch method {
	case schema.MethodInitialize, schema.MethodPing, "":
		return false
	}
	return !strings.HasPrefix(method, "notifications/")
}

func bearerCredential(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

func peekJSONRPCRequest(r *http.Request) ([]byte, *jsonrpc.Request, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, err
	}
	defer r.Body.Close()

	// Alias suppresses the Request custom unmarshaller; only the envelope is
	// needed here.
	type jsonrpcRequest jsonrpc.Request
	request := &jsonrpcRequest{}
	if err := json.Unmarshal(data, request); err != nil {
		return nil, nil, err
	}
	return data, (*jsonrpc.Request)(request), nil
}

// unauthorized writes the single protocol-level unauthorized outcome: a 401
// with a WWW-Authenticate challenge carrying a fresh authorization entry
// point so the client can restart the handshake transparently.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, sessionKey, reason string) {
	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		proto = forwarded
	}
	metaURL := fmt.Sprintf("%s://%s/.well-known/oauth-protected-resource", proto, r.Host)
	challenge := fmt.Sprintf(`Bearer resource_metadata=%q`, metaURL)
	if s.bridge != nil {
		challenge += fmt.Sprintf(`, authorization_uri=%q`, s.bridge.AuthorizeURL(sessionKey))
	}
	w.Header().Set("MCP-Protocol-Version", schema.LatestProtocolVersion)
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(&jsonrpc.Error{
		Code:    schema.Unauthorized,
		Message: "Unauthorized: " + reason,
	})
}

func shortKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8] + "..."
}
