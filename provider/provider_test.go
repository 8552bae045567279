package provider

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestTokenSet_Expired(t *testing.T) {
	noExpiry := &TokenSet{AccessToken: "a"}
	assert.False(t, noExpiry.Expired(0))
	assert.False(t, noExpiry.Expired(time.Hour))

	soon := &TokenSet{AccessToken: "a", ExpiresAt: time.Now().Add(30 * time.Second)}
	assert.False(t, soon.Expired(0))
	assert.True(t, soon.Expired(time.Minute))

	past := &TokenSet{AccessToken: "a", ExpiresAt: time.Now().Add(-time.Second)}
	assert.True(t, past.Expired(0))
}

func TestFromOAuth2Token(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	token := (&oauth2.Token{
		AccessToken:  "at",
		RefreshToken: "rt",
		Expiry:       expiry,
	}).WithExtra(map[string]interface{}{"scope": "read write"})

	tokenSet := FromOAuth2Token(token)
	assert.Equal(t, "at", tokenSet.AccessToken)
	assert.Equal(t, "rt", tokenSet.RefreshToken)
	assert.Equal(t, "read write", tokenSet.Scope)
	assert.Equal(t, expiry, tokenSet.ExpiresAt)
}

func TestClassifyRefreshError(t *testing.T) {
	permanent := &oauth2.RetrieveError{
		Response:  &http.Response{StatusCode: http.StatusBadRequest},
		ErrorCode: "invalid_grant",
	}
	refreshErr := ClassifyRefreshError("tracker", permanent)
	assert.True(t, refreshErr.Permanent)
	assert.Equal(t, "tracker", refreshErr.Provider)
	assert.True(t, IsPermanentRefresh(refreshErr))

	transient := &oauth2.RetrieveError{
		Response: &http.Response{StatusCode: http.StatusServiceUnavailable},
	}
	refreshErr = ClassifyRefreshError("tracker", transient)
	assert.False(t, refreshErr.Permanent)
	assert.False(t, IsPermanentRefresh(refreshErr))

	refreshErr = ClassifyRefreshError("tracker", errors.New("connection refused"))
	assert.False(t, refreshErr.Permanent)
}

func TestRefreshError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("status 400")
	refreshErr := &RefreshError{Provider: "canvas", Reason: "invalid_grant", Permanent: true, Err: cause}
	assert.ErrorIs(t, refreshErr, cause)
	assert.Contains(t, refreshErr.Error(), "canvas")
	assert.Contains(t, refreshErr.Error(), "permanent")
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Lookup("tracker")
	assert.NotNil(t, err)
	assert.Empty(t, registry.IDs())
}
