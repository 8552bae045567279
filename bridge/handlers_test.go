package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plexora/authbridge/credential"
	"github.com/plexora/authbridge/provider"
	"github.com/plexora/authbridge/provider/tracker"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

// newTokenEndpoint stubs a provider token endpoint and records the exchange
// parameters it received.
func newTokenEndpoint(t *testing.T, received url.Values) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Nil(t, r.ParseForm())
		for key, values := range r.PostForm {
			received[key] = values
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "at-tracker",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "rt-tracker",
			"scope":         "read",
		})
	}))
}

func newTestService(tokenURL string, options ...Option) (*Service, *credential.Issuer, *http.ServeMux) {
	adapter := tracker.New(&tracker.Config{
		ClientID: "client-id",
		AuthURL:  "https://provider.example/authorize",
		TokenURL: tokenURL,
		Scopes:   []string{"read"},
	})
	providers := provider.NewRegistry(adapter)
	issuer := credential.New(testSigningKey, providers)
	service := New(&Config{PublicURL: "https://bridge.example"}, providers, issuer, options...)
	mux := http.NewServeMux()
	service.RegisterHandlers(mux)
	return service, issuer, mux
}

func TestHandleAuthorize_MissingProofKey(t *testing.T) {
	service, _, mux := newTestService("https://provider.example/token")
	defer service.Stop()

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/oauth/authorize?provider=tracker&state=s", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/oauth/authorize?provider=tracker&code_challenge=x&code_challenge_method=S512", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandleAuthorize_UnknownProvider(t *testing.T) {
	service, _, mux := newTestService("https://provider.example/token")
	defer service.Stop()

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/oauth/authorize?provider=unknown&code_challenge=x&code_challenge_method=S256", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestServerExchangeFlow(t *testing.T) {
	received := url.Values{}
	tokenEndpoint := newTokenEndpoint(t, received)
	defer tokenEndpoint.Close()

	service, issuer, mux := newTestService(tokenEndpoint.URL)
	defer service.Stop()

	clientVerifier := "client-verifier-value-long-enough-for-pkce"
	clientChallenge := computeChallenge(clientVerifier)

	// 1. authorize: bridge generates its own provider proof key
	authorizeURL := "/oauth/authorize?provider=tracker&session=sess-1&state=client-state" +
		"&code_challenge=" + clientChallenge + "&code_challenge_method=S256"
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, authorizeURL, nil))
	assert.Equal(t, http.StatusFound, recorder.Code)

	location, err := url.Parse(recorder.Header().Get("Location"))
	assert.Nil(t, err)
	assert.Equal(t, "provider.example", location.Host)
	query := location.Query()
	// provider-facing state is the session key, never the client's state
	assert.Equal(t, "sess-1", query.Get("state"))
	assert.Equal(t, "https://bridge.example/oauth/callback/tracker", query.Get("redirect_uri"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	// the client's challenge never reaches the provider
	assert.NotEqual(t, clientChallenge, query.Get("code_challenge"))
	assert.NotEmpty(t, query.Get("code_challenge"))

	// 2. provider callback: server-side exchange, grant parked
	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/oauth/callback/tracker?code=prov-code&state=sess-1", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Authorization complete")
	assert.Equal(t, "prov-code", received.Get("code"))
	// exchange used the bridge's verifier, not the client's
	assert.NotEmpty(t, received.Get("code_verifier"))
	assert.NotEqual(t, clientVerifier, received.Get("code_verifier"))

	// 3. callback replay loses
	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/oauth/callback/tracker?code=prov-code&state=sess-1", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	// 4. redeem the grant with the client's proof key
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", "sess-1")
	form.Set("code_verifier", clientVerifier)
	request := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "Bearer", response.TokenType)
	assert.True(t, response.ExpiresIn > 0)

	payload, err := issuer.Decode(response.AccessToken)
	assert.Nil(t, err)
	assert.Equal(t, "at-tracker", payload.Tokens["tracker"].AccessToken)
	assert.Equal(t, "rt-tracker", payload.Tokens["tracker"].RefreshToken)

	// 5. grant redemption is one-shot
	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	mux.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestServerExchange_VerifierMismatch(t *testing.T) {
	received := url.Values{}
	tokenEndpoint := newTokenEndpoint(t, received)
	defer tokenEndpoint.Close()

	service, _, mux := newTestService(tokenEndpoint.URL)
	defer service.Stop()

	clientChallenge := computeChallenge("the-real-verifier-value-long-enough")
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet,
		"/oauth/authorize?provider=tracker&session=sess-2&code_challenge="+clientChallenge+"&code_challenge_method=S256", nil))
	assert.Equal(t, http.StatusFound, recorder.Code)

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/oauth/callback/tracker?code=c&state=sess-2", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", "sess-2")
	form.Set("code_verifier", "a-different-verifier-value")
	request := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "invalid_grant")
}

func TestRelayFlow(t *testing.T) {
	service, _, mux := newTestService("https://provider.example/token")
	defer service.Stop()

	clientChallenge := computeChallenge("relay-client-verifier-value-long-enough")
	authorizeURL := "/oauth/authorize?provider=tracker&session=sess-relay&state=client-state" +
		"&code_challenge=" + clientChallenge + "&code_challenge_method=S256" +
		"&redirect_uri=" + url.QueryEscape("https://client.example/cb")
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, authorizeURL, nil))
	assert.Equal(t, http.StatusFound, recorder.Code)

	location, err := url.Parse(recorder.Header().Get("Location"))
	assert.Nil(t, err)
	// relay passes the client's own challenge through to the provider
	assert.Equal(t, clientChallenge, location.Query().Get("code_challenge"))
	assert.Equal(t, "sess-relay", location.Query().Get("state"))

	// callback relays the provider code with the client's original state
	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/oauth/callback/tracker?code=prov-code&state=sess-relay", nil))
	assert.Equal(t, http.StatusFound, recorder.Code)

	target, err := url.Parse(recorder.Header().Get("Location"))
	assert.Nil(t, err)
	assert.Equal(t, "client.example", target.Host)
	assert.Equal(t, "/cb", target.Path)
	assert.Equal(t, "prov-code", target.Query().Get("code"))
	assert.Equal(t, "client-state", target.Query().Get("state"))
}

func TestHandleCallback_ProviderError(t *testing.T) {
	service, _, mux := newTestService("https://provider.example/token")
	defer service.Stop()

	clientChallenge := computeChallenge("denied-client-verifier-value-long-enough")
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet,
		"/oauth/authorize?provider=tracker&session=sess-denied&code_challenge="+clientChallenge+"&code_challenge_method=S256", nil))
	assert.Equal(t, http.StatusFound, recorder.Code)

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet,
		"/oauth/callback/tracker?error=access_denied&error_description=user+declined&state=sess-denied", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Authorization failed")

	// handshake is terminal
	_, err := service.pending.Consume("sess-denied")
	assert.ErrorIs(t, err, ErrUnknownHandshake)
}

func TestHandleCallback_UnknownHandshake(t *testing.T) {
	service, _, mux := newTestService("https://provider.example/token")
	defer service.Stop()

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/oauth/callback/tracker?code=c&state=never-started", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Unknown handshake")
}

func TestHandleToken_UnsupportedGrantType(t *testing.T) {
	service, _, mux := newTestService("https://provider.example/token")
	defer service.Stop()

	form := url.Values{}
	form.Set("grant_type", "password")
	request := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "unsupported_grant_type")
}

func TestHandleToken_RefreshGrant(t *testing.T) {
	refreshEndpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "at-fresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "rt-fresh",
		})
	}))
	defer refreshEndpoint.Close()

	service, issuer, mux := newTestService(refreshEndpoint.URL)
	defer service.Stop()

	issued, err := issuer.Issue(map[string]provider.TokenSet{
		"tracker": {AccessToken: "at-stale", RefreshToken: "rt-stale"},
	})
	assert.Nil(t, err)

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", issued)
	request := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		AccessToken string `json:"access_token"`
	}
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	payload, err := issuer.Decode(response.AccessToken)
	assert.Nil(t, err)
	assert.Equal(t, "at-fresh", payload.Tokens["tracker"].AccessToken)
}

func TestHandleToken_RefreshInvalidGrant(t *testing.T) {
	service, _, mux := newTestService("https://provider.example/token")
	defer service.Stop()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", "not-a-credential")
	request := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "invalid_grant")
}

func TestConnectionTokensMerge(t *testing.T) {
	received := url.Values{}
	tokenEndpoint := newTokenEndpoint(t, received)
	defer tokenEndpoint.Close()

	existing := map[string]provider.TokenSet{
		"canvas": {AccessToken: "at-canvas"},
	}
	service, issuer, mux := newTestService(tokenEndpoint.URL,
		WithConnectionTokens(func(sessionKey string) map[string]provider.TokenSet {
			if sessionKey == "sess-merge" {
				return existing
			}
			return nil
		}))
	defer service.Stop()

	clientVerifier := "merge-client-verifier-value-long-enough"
	clientChallenge := computeChallenge(clientVerifier)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet,
		"/oauth/authorize?provider=tracker&session=sess-merge&code_challenge="+clientChallenge+"&code_challenge_method=S256", nil))
	assert.Equal(t, http.StatusFound, recorder.Code)

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/oauth/callback/tracker?code=c&state=sess-merge", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", "sess-merge")
	form.Set("code_verifier", clientVerifier)
	request := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		AccessToken string `json:"access_token"`
	}
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	payload, err := issuer.Decode(response.AccessToken)
	assert.Nil(t, err)
	// one credential now embeds both providers
	assert.Equal(t, "at-canvas", payload.Tokens["canvas"].AccessToken)
	assert.Equal(t, "at-tracker", payload.Tokens["tracker"].AccessToken)
}
