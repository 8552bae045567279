// Package bridge implements the authorization bridge: it accepts a protocol
// client's proof-key authorization request, drives an independent OAuth 2.0
// authorization-code exchange against the selected downstream provider, and
// resolves the handshake either by relaying the provider's authorization code
// back to the client or by exchanging it server-side and parking the issued
// credential for proof-key redemption.
package bridge

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/plexora/authbridge/credential"
	"github.com/plexora/authbridge/provider"
)

// Config configures the bridge's public surface.
type Config struct {
	// PublicURL is the externally reachable base URL of the bridge, used to
	// derive the provider-facing callback redirect URIs.
	PublicURL string `json:"publicURL"`

	// DefaultProvider is the provider offered in re-authorization challenges
	// when the client did not select one.
	DefaultProvider string `json:"defaultProvider,omitempty"`

	// CompatAuthorizeParams is appended verbatim to every provider
	// authorization URL. It exists for deployments whose clients require
	// non-standard discovery parameters; the core flow never branches on it.
	CompatAuthorizeParams url.Values `json:"compatAuthorizeParams,omitempty"`
}

// Service orchestrates the two-flow handshake. It is safe for concurrent use;
// the pending and grant stores are its only mutable state.
type Service struct {
	config    *Config
	providers *provider.Registry
	issuer    *credential.Issuer
	pending   *PendingStore
	grants    *GrantStore
	logger    *slog.Logger

	// connectionTokens, when set, supplies the token sets already attached to
	// a live connection so that a follow-up handshake for another provider
	// folds into one credential instead of replacing it.
	connectionTokens func(sessionKey string) map[string]provider.TokenSet
}

// Option configures a Service.
type Option func(*Service)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithConnectionTokens wires the lookup used to fold a new provider's tokens
// into the credential already held by the initiating connection.
func WithConnectionTokens(lookup func(sessionKey string) map[string]provider.TokenSet) Option {
	return func(s *Service) {
		s.connectionTokens = lookup
	}
}

// WithPendingStore overrides the default pending-authorization store.
func WithPendingStore(store *PendingStore) Option {
	return func(s *Service) {
		s.pending = store
	}
}

// WithGrantStore overrides the default grant store.
func WithGrantStore(store *GrantStore) Option {
	return func(s *Service) {
		s.grants = store
	}
}

// New creates a bridge service.
func New(config *Config, providers *provider.Registry, issuer *credential.Issuer, options ...Option) *Service {
	ret := &Service{
		config:    config,
		providers: providers,
		issuer:    issuer,
		logger:    slog.Default(),
	}
	for _, option := range options {
		option(ret)
	}
	if ret.pending == nil {
		ret.pending = NewPendingStore()
	}
	if ret.grants == nil {
		ret.grants = NewGrantStore()
	}
	return ret
}

// Stop terminates the background sweeps of the bridge stores.
func (s *Service) Stop() {
	s.pending.Stop()
	s.grants.Stop()
}

// redirectURI returns the bridge's own callback URI for a provider.
func (s *Service) redirectURI(providerID string) string {
	return strings.TrimSuffix(s.config.PublicURL, "/") + "/oauth/callback/" + providerID
}

// AuthorizeURL builds the authorization entry point handed to unauthorized
// clients; the client appends its own proof-key challenge and state before
// navigating.
func (s *Service) AuthorizeURL(sessionKey string) string {
	authorizeURL := strings.TrimSuffix(s.config.PublicURL, "/") + "/oauth/authorize"
	query := url.Values{}
	if s.config.DefaultProvider != "" {
		query.Set("provider", s.config.DefaultProvider)
	}
	if sessionKey != "" {
		query.Set("session", sessionKey)
	}
	if len(query) == 0 {
		return authorizeURL
	}
	return authorizeURL + "?" + query.Encode()
}

// truncateKey shortens a session key for log output.
func truncateKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8] + "..."
}
