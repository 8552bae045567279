package provider

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

var (
	// ErrCallbackMalformed indicates a provider callback carried neither an
	// authorization code nor an error parameter.
	ErrCallbackMalformed = errors.New("callback malformed")

	// ErrTokenExchangeFailed indicates a non-2xx response to a code exchange.
	ErrTokenExchangeFailed = errors.New("token exchange failed")
)

// CallbackError carries an error the provider reported on its callback.
type CallbackError struct {
	Code        string
	Description string
}

func (e *CallbackError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("provider returned error %q", e.Code)
	}
	return fmt.Sprintf("provider returned error %q: %s", e.Code, e.Description)
}

// RefreshError reports a failed token refresh. Permanent errors signal that
// re-authorization, not retry, is required.
type RefreshError struct {
	Provider  string
	Reason    string
	Permanent bool
	Err       error
}

func (e *RefreshError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("refresh failed for provider %q (%s): %s", e.Provider, kind, e.Reason)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// IsPermanentRefresh reports whether err is a refresh failure that cannot be
// retried.
func IsPermanentRefresh(err error) bool {
	var refreshErr *RefreshError
	return errors.As(err, &refreshErr) && refreshErr.Permanent
}

// invalid_grant class error codes per RFC 6749 §5.2; any of these means the
// refresh token itself is no longer usable.
var permanentRefreshCodes = map[string]bool{
	"invalid_grant":        true,
	"invalid_client":       true,
	"unauthorized_client":  true,
	"unsupported_grant_type": true,
}

// ClassifyRefreshError wraps a raw refresh failure into a *RefreshError,
// inspecting the provider's OAuth error code when one is available.
func ClassifyRefreshError(providerID string, err error) *RefreshError {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if permanentRefreshCodes[retrieveErr.ErrorCode] {
			return &RefreshError{Provider: providerID, Reason: retrieveErr.ErrorCode, Permanent: true, Err: err}
		}
		reason := retrieveErr.ErrorCode
		if reason == "" {
			reason = fmt.Sprintf("status %d", retrieveErr.Response.StatusCode)
		}
		return &RefreshError{Provider: providerID, Reason: reason, Err: err}
	}
	return &RefreshError{Provider: providerID, Reason: err.Error(), Err: err}
}
