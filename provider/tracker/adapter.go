// Package tracker integrates the issue-tracker identity provider. It follows
// the standard OAuth 2.0 authorization-code conventions end to end.
package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/plexora/authbridge/provider"
	"github.com/viant/scy/auth/flow"
	"golang.org/x/oauth2"
)

const exchangeTimeout = 10 * time.Second

// Config holds the OAuth client registration for the tracker provider.
type Config struct {
	ClientID     string   `json:"clientID"`
	ClientSecret string   `json:"clientSecret,omitempty"`
	AuthURL      string   `json:"authURL"`
	TokenURL     string   `json:"tokenURL"`
	Scopes       []string `json:"scopes,omitempty"`
}

// Adapter implements provider.Adapter for the issue tracker.
type Adapter struct {
	config *oauth2.Config
}

// New creates a tracker adapter.
func New(config *Config) *Adapter {
	return &Adapter{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  config.AuthURL,
				TokenURL: config.TokenURL,
			},
			Scopes: config.Scopes,
		},
	}
}

func (a *Adapter) ID() string { return "tracker" }

// AuthorizationURL builds the tracker authorization URL with the supplied
// proof-key challenge and correlation state.
func (a *Adapter) AuthorizationURL(redirectURI, codeChallenge, codeChallengeMethod, state string) (string, error) {
	authURL, err := url.Parse(a.config.Endpoint.AuthURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint: %w", err)
	}
	query := authURL.Query()
	query.Set("response_type", "code")
	query.Set("client_id", a.config.ClientID)
	query.Set("redirect_uri", redirectURI)
	query.Set("state", state)
	query.Set("code_challenge", codeChallenge)
	query.Set("code_challenge_method", codeChallengeMethod)
	if len(a.config.Scopes) > 0 {
		query.Set("scope", strings.Join(a.config.Scopes, " "))
	}
	authURL.RawQuery = query.Encode()
	return authURL.String(), nil
}

// ExtractCallbackParams parses the standard code/state callback convention.
func (a *Adapter) ExtractCallbackParams(r *http.Request) (string, string, error) {
	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		return "", query.Get("state"), &provider.CallbackError{Code: errCode, Description: query.Get("error_description")}
	}
	code := query.Get("code")
	if code == "" {
		return "", "", provider.ErrCallbackMalformed
	}
	return code, query.Get("state"), nil
}

// Exchange swaps the authorization code for tokens.
func (a *Adapter) Exchange(ctx context.Context, code, codeVerifier, redirectURI string) (*provider.TokenSet, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()
	token, err := flow.Exchange(ctx, a.config, code,
		flow.WithCodeVerifier(codeVerifier),
		flow.WithRedirectURI(redirectURI))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrTokenExchangeFailed, err)
	}
	return provider.FromOAuth2Token(token), nil
}

// Refresh obtains a new token set from a refresh token.
func (a *Adapter) Refresh(ctx context.Context, refreshToken string) (*provider.TokenSet, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()
	source := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, provider.ClassifyRefreshError(a.ID(), err)
	}
	ret := provider.FromOAuth2Token(token)
	if ret.RefreshToken == "" {
		ret.RefreshToken = refreshToken
	}
	return ret, nil
}
