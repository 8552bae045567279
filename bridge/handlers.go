package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/viant/scy/auth/flow"

	"github.com/plexora/authbridge/provider"
)

// RegisterHandlers mounts the bridge's OAuth surface on a mux.
func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /oauth/authorize", s.HandleAuthorize)
	mux.HandleFunc("GET /oauth/callback/{provider}", s.HandleCallback)
	mux.HandleFunc("POST /oauth/token", s.HandleToken)
}

// HandleAuthorize starts a handshake: it records the client's proof-key
// challenge, generates the bridge's own provider verifier when exchanging
// server-side, and redirects the user agent to the provider's authorization
// URL. The provider-facing state is always the session key, never the
// client's state.
func (s *Service) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	challenge := query.Get("code_challenge")
	method := query.Get("code_challenge_method")
	if method == "" {
		method = challengeMethodPlain
	}
	if challenge == "" || !recognizedChallengeMethod(method) {
		s.logger.Warn("authorize rejected", "reason", ErrMissingProofKey)
		http.Error(w, ErrMissingProofKey.Error(), http.StatusBadRequest)
		return
	}

	providerID := query.Get("provider")
	if providerID == "" {
		providerID = s.config.DefaultProvider
	}
	adapter, err := s.providers.Lookup(providerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessionKey := query.Get("session")
	if sessionKey == "" {
		sessionKey = uuid.NewString()
	}

	pending := &PendingAuthorization{
		SessionKey:                sessionKey,
		ClientCodeChallenge:       challenge,
		ClientCodeChallengeMethod: method,
		ClientState:               query.Get("state"),
		ClientRedirectURI:         query.Get("redirect_uri"),
		SelectedProvider:          providerID,
	}

	redirectURI := s.redirectURI(providerID)
	providerChallenge := challenge
	providerMethod := method
	if !s.relayMode(pending) {
		pending.ProviderCodeVerifier = flow.GenerateCodeVerifier()
		providerChallenge = computeChallenge(pending.ProviderCodeVerifier)
		providerMethod = challengeMethodS256
	}

	authorizationURL, err := adapter.AuthorizationURL(redirectURI, providerChallenge, providerMethod, sessionKey)
	if err != nil {
		s.logger.Error("authorize url", "provider", providerID, "error", err)
		http.Error(w, "failed to build authorization url", http.StatusInternalServerError)
		return
	}
	authorizationURL = s.appendCompatParams(authorizationURL)

	s.pending.Put(pending)
	s.logger.Info("handshake started",
		"session", truncateKey(sessionKey),
		"provider", providerID,
		"relay", s.relayMode(pending))
	http.Redirect(w, r, authorizationURL, http.StatusFound)
}

// relayMode reports whether a handshake relays the provider's code back to
// the client instead of exchanging it server-side. Relay requires a client
// redirect URI that is not the bridge's own callback.
func (s *Service) relayMode(pending *PendingAuthorization) bool {
	if pending.ClientRedirectURI == "" {
		return false
	}
	return pending.ClientRedirectURI != s.redirectURI(pending.SelectedProvider)
}

// appendCompatParams tacks the configured compatibility parameters onto an
// authorization URL.
func (s *Service) appendCompatParams(authorizationURL string) string {
	if len(s.config.CompatAuthorizeParams) == 0 {
		return authorizationURL
	}
	parsed, err := url.Parse(authorizationURL)
	if err != nil {
		return authorizationURL
	}
	query := parsed.Query()
	for key, values := range s.config.CompatAuthorizeParams {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// HandleCallback resolves a provider redirect: it consumes the pending
// handshake identified by the returned state (first caller wins, replays see
// an unknown handshake) and either relays the code to the client or performs
// the server-side exchange and parks the issued credential for pickup.
func (s *Service) HandleCallback(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("provider")
	adapter, err := s.providers.Lookup(providerID)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	code, state, err := adapter.ExtractCallbackParams(r)
	if err != nil {
		var callbackErr *provider.CallbackError
		if errors.As(err, &callbackErr) {
			// The provider denied authorization; the handshake is terminal.
			if state != "" {
				_, _ = s.pending.Consume(state)
			}
			s.logger.Warn("authorization denied",
				"provider", providerID,
				"error", callbackErr.Code)
			writeErrorPage(w, http.StatusBadRequest, "Authorization failed", callbackErr.Error())
			return
		}
		writeErrorPage(w, http.StatusBadRequest, "Invalid callback", err.Error())
		return
	}

	pending, err := s.pending.Consume(state)
	if err != nil {
		s.logger.Warn("callback without handshake", "provider", providerID)
		writeErrorPage(w, http.StatusBadRequest, "Unknown handshake", err.Error())
		return
	}

	if s.relayMode(pending) {
		target, err := url.Parse(pending.ClientRedirectURI)
		if err != nil {
			writeErrorPage(w, http.StatusBadRequest, "Invalid redirect", "client redirect URI is not a valid URL")
			return
		}
		query := target.Query()
		query.Set("code", code)
		query.Set("state", pending.ClientState)
		target.RawQuery = query.Encode()
		s.logger.Info("handshake relayed",
			"session", truncateKey(pending.SessionKey),
			"provider", providerID)
		http.Redirect(w, r, target.String(), http.StatusFound)
		return
	}

	tokens, err := adapter.Exchange(r.Context(), code, pending.ProviderCodeVerifier, s.redirectURI(providerID))
	if err != nil {
		s.logger.Error("token exchange failed", "provider", providerID, "error", err)
		writeErrorPage(w, http.StatusBadGateway, "Authorization failed", "the provider rejected the token exchange")
		return
	}

	merged := map[string]provider.TokenSet{}
	if s.connectionTokens != nil {
		for id, tokenSet := range s.connectionTokens(pending.SessionKey) {
			merged[id] = tokenSet
		}
	}
	merged[providerID] = *tokens

	issued, err := s.issuer.Issue(merged)
	if err != nil {
		s.logger.Error("credential issue failed", "provider", providerID, "error", err)
		writeErrorPage(w, http.StatusInternalServerError, "Authorization failed", "failed to issue credential")
		return
	}

	s.grants.Put(&Grant{
		Code:                      pending.SessionKey,
		ClientCodeChallenge:       pending.ClientCodeChallenge,
		ClientCodeChallengeMethod: pending.ClientCodeChallengeMethod,
		Credential:                issued,
	})
	s.logger.Info("handshake completed",
		"session", truncateKey(pending.SessionKey),
		"provider", providerID)
	writeSuccessPage(w, providerID)
}

// tokenResponse is the token endpoint's success body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// tokenErrorResponse is the token endpoint's RFC 6749 error body.
type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// HandleToken serves the bridge's token endpoint: proof-key redemption of a
// parked grant, and credential refresh.
func (s *Service) HandleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeTokenError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	switch grantType := r.PostFormValue("grant_type"); grantType {
	case "authorization_code":
		s.redeemGrant(w, r)
	case "refresh_token":
		s.refreshCredential(w, r)
	default:
		writeTokenError(w, http.StatusBadRequest, "unsupported_grant_type", "grant_type must be authorization_code or refresh_token")
	}
}

// redeemGrant releases a parked credential once the client proves possession
// of the code verifier matching the challenge recorded at authorize time. The
// verifier never reaches any provider.
func (s *Service) redeemGrant(w http.ResponseWriter, r *http.Request) {
	code := r.PostFormValue("code")
	verifier := r.PostFormValue("code_verifier")
	if code == "" || verifier == "" {
		writeTokenError(w, http.StatusBadRequest, "invalid_request", "code and code_verifier are required")
		return
	}
	grant, err := s.grants.Consume(code)
	if err != nil {
		writeTokenError(w, http.StatusBadRequest, "invalid_grant", "unknown or expired authorization code")
		return
	}
	if !verifyChallenge(verifier, grant.ClientCodeChallenge, grant.ClientCodeChallengeMethod) {
		s.logger.Warn("proof key mismatch", "session", truncateKey(code))
		writeTokenError(w, http.StatusBadRequest, "invalid_grant", "code verifier does not match challenge")
		return
	}
	s.writeCredential(w, grant.Credential)
}

// refreshCredential re-issues a credential after refreshing every embedded
// provider that holds a refresh token.
func (s *Service) refreshCredential(w http.ResponseWriter, r *http.Request) {
	presented := r.PostFormValue("refresh_token")
	if presented == "" {
		writeTokenError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}
	issued, err := s.issuer.Refresh(r.Context(), presented, nil)
	if err != nil {
		if provider.IsPermanentRefresh(err) {
			writeTokenError(w, http.StatusBadRequest, "invalid_grant", "credential can no longer be refreshed")
			return
		}
		s.logger.Error("credential refresh failed", "error", err)
		writeTokenError(w, http.StatusBadGateway, "server_error", "provider refresh temporarily failed")
		return
	}
	s.writeCredential(w, issued)
}

func (s *Service) writeCredential(w http.ResponseWriter, issued string) {
	response := &tokenResponse{AccessToken: issued, TokenType: "Bearer"}
	if payload, err := s.issuer.Decode(issued); err == nil {
		response.ExpiresIn = int64(time.Until(payload.ExpiresAt).Seconds())
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(response)
}

func writeTokenError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&tokenErrorResponse{Error: code, ErrorDescription: description})
}
