// Package docvault integrates the document-store identity provider. Access
// tokens always expire and refresh tokens rotate on every refresh; the
// provider also rate-limits its token endpoint aggressively, which surfaces
// as a transient refresh failure.
package docvault

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/plexora/authbridge/provider"
	"github.com/viant/scy/auth/flow"
	"golang.org/x/oauth2"
)

const exchangeTimeout = 10 * time.Second

// Config holds the OAuth client registration for the docvault provider.
type Config struct {
	ClientID     string   `json:"clientID"`
	ClientSecret string   `json:"clientSecret,omitempty"`
	AuthURL      string   `json:"authURL"`
	TokenURL     string   `json:"tokenURL"`
	Scopes       []string `json:"scopes,omitempty"`
}

// Adapter implements provider.Adapter for the document store.
type Adapter struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// New creates a docvault adapter.
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
		httpClient: &http.Client{Timeout: exchangeTimeout},
	}
}

func (a *Adapter) ID() string { return "docvault" }

// AuthorizationURL builds the docvault authorization URL. The provider
// requires offline access to be requested explicitly for refresh tokens to
// be issued.
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
	query.Set("access_type", "offline")
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

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	ErrorCode    string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// Refresh obtains a new token set. The provider rotates refresh tokens; a
// response omitting refresh_token keeps the prior one valid.
func (a *Adapter) Refresh(ctx context.Context, refreshToken string) (*provider.TokenSet, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", a.config.ClientID)
	if a.config.ClientSecret != "" {
		data.Set("client_secret", a.config.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &provider.RefreshError{Provider: a.ID(), Reason: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &provider.RefreshError{Provider: a.ID(), Reason: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.RefreshError{Provider: a.ID(), Reason: err.Error(), Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		reason := "rate_limited"
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			reason = fmt.Sprintf("rate_limited, retry after %ss", retryAfter)
		}
		return nil, &provider.RefreshError{Provider: a.ID(), Reason: reason, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var parsed tokenResponse
	if resp.StatusCode != http.StatusOK {
		_ = json.Unmarshal(body, &parsed)
		if parsed.ErrorCode == "invalid_grant" {
			return nil, &provider.RefreshError{Provider: a.ID(), Reason: parsed.ErrorCode, Permanent: true, Err: fmt.Errorf("%s: %s", parsed.ErrorCode, parsed.ErrorDesc)}
		}
		return nil, &provider.RefreshError{Provider: a.ID(), Reason: fmt.Sprintf("status %d", resp.StatusCode), Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &provider.RefreshError{Provider: a.ID(), Reason: "malformed token response", Err: err}
	}

	ret := &provider.TokenSet{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		Scope:        parsed.Scope,
	}
	if parsed.ExpiresIn > 0 {
		ret.ExpiresAt = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	}
	if ret.RefreshToken == "" {
		ret.RefreshToken = refreshToken
	}
	return ret, nil
}
