// Package provider defines the capability set every downstream identity
// provider integration implements. New providers are added by implementing
// Adapter and registering it; shared bridge logic never branches on a
// provider name.
package provider

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// TokenSet holds one provider's tokens inside an issued credential.
type TokenSet struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"`
}

// Expired checks whether the token set expires within the given margin.
// Token sets without expiration never expire.
func (t *TokenSet) Expired(margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).After(t.ExpiresAt)
}

// Adapter is the full surface the bridge consumes from a provider
// integration.
type Adapter interface {
	// ID returns the provider identifier used as the credential map key and
	// the callback path segment.
	ID() string

	// AuthorizationURL builds the provider's authorization URL. It is
	// deterministic and performs no network call.
	AuthorizationURL(redirectURI, codeChallenge, codeChallengeMethod, state string) (string, error)

	// ExtractCallbackParams parses the provider's callback convention. It
	// returns ErrCallbackMalformed when neither an authorization code nor an
	// error parameter is present, and a *CallbackError when the provider
	// reported an error.
	ExtractCallbackParams(r *http.Request) (code, state string, err error)

	// Exchange swaps an authorization code for tokens. Single network call,
	// bounded by the caller's context.
	Exchange(ctx context.Context, code, codeVerifier, redirectURI string) (*TokenSet, error)

	// Refresh obtains a new token set from a refresh token. Failures are
	// returned as *RefreshError so callers can distinguish permanent
	// invalidation from transient faults.
	Refresh(ctx context.Context, refreshToken string) (*TokenSet, error)
}

// FromOAuth2Token converts an oauth2 token into a TokenSet, deriving the
// absolute expiry from the library-computed Expiry (issuance time plus
// expires_in).
func FromOAuth2Token(token *oauth2.Token) *TokenSet {
	ret := &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		ret.Scope = scope
	}
	return ret
}
