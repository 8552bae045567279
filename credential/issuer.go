// Package credential implements the token issuer: it packages provider token
// sets into a single signed, time-boxed credential and re-derives refreshed
// credentials from a presented one. Clients treat the credential as opaque;
// only the bridge holds the signing key.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/plexora/authbridge/provider"
)

var (
	// ErrCredentialExpired indicates a well-formed, correctly signed
	// credential past its expiry. A refresh attempt is meaningful.
	ErrCredentialExpired = errors.New("credential expired")

	// ErrCredentialInvalid indicates a bad signature or malformed payload.
	// A refresh attempt is not meaningful.
	ErrCredentialInvalid = errors.New("credential invalid")
)

const (
	// defaultExpirySkew keeps the credential expiring strictly before any
	// embedded provider token does.
	defaultExpirySkew = time.Minute

	// defaultLifetime bounds credentials whose embedded tokens carry no
	// expiry of their own.
	defaultLifetime = time.Hour
)

// Payload is the decoded content of an issued credential.
type Payload struct {
	Tokens    map[string]provider.TokenSet `json:"tokens"`
	IssuedAt  time.Time                    `json:"issuedAt"`
	ExpiresAt time.Time                    `json:"expiresAt"`
}

// TokenSet returns the embedded token set for a provider id.
func (p *Payload) TokenSet(providerID string) (*provider.TokenSet, bool) {
	tokenSet, ok := p.Tokens[providerID]
	if !ok {
		return nil, false
	}
	return &tokenSet, true
}

type claims struct {
	Tokens map[string]provider.TokenSet `json:"tokens"`
	jwt.RegisteredClaims
}

// Issuer signs and decodes credentials. The signing key is process-wide and
// read-only after construction.
type Issuer struct {
	signingKey []byte
	providers  *provider.Registry
	skew       time.Duration
	lifetime   time.Duration
	now        func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithExpirySkew overrides the gap between the earliest embedded token
// expiry and the credential expiry.
func WithExpirySkew(skew time.Duration) Option {
	return func(i *Issuer) {
		i.skew = skew
	}
}

// WithLifetime overrides the default lifetime applied when no embedded token
// carries an expiry.
func WithLifetime(lifetime time.Duration) Option {
	return func(i *Issuer) {
		i.lifetime = lifetime
	}
}

// New creates an issuer with the given signing key and adapter registry.
func New(signingKey []byte, providers *provider.Registry, options ...Option) *Issuer {
	ret := &Issuer{
		signingKey: signingKey,
		providers:  providers,
		skew:       defaultExpirySkew,
		lifetime:   defaultLifetime,
		now:        time.Now,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Issue packages token sets into a signed credential. The credential expires
// one skew interval before the earliest embedded token expiry, so the
// container never outlives any token it embeds.
func (i *Issuer) Issue(tokens map[string]provider.TokenSet) (string, error) {
	if len(tokens) == 0 {
		return "", errors.New("no token sets to issue")
	}
	now := i.now()
	expiresAt := now.Add(i.lifetime)
	for _, tokenSet := range tokens {
		if tokenSet.ExpiresAt.IsZero() {
			continue
		}
		if skewed := tokenSet.ExpiresAt.Add(-i.skew); skewed.Before(expiresAt) {
			expiresAt = skewed
		}
	}

	jwtClaims := &claims{
		Tokens: tokens,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims)
	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign credential: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry and returns the embedded payload.
// Verification and decoding are atomic and side-effect free.
func (i *Issuer) Decode(credential string) (*Payload, error) {
	return i.decode(credential, false)
}

func (i *Issuer) decode(credential string, allowExpired bool) (*Payload, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	}
	if allowExpired {
		options = append(options, jwt.WithoutClaimsValidation())
	}
	parsed, err := jwt.ParseWithClaims(credential, &claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.signingKey, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrCredentialExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCredentialInvalid, err)
	}
	jwtClaims, ok := parsed.Claims.(*claims)
	if !ok || jwtClaims.Tokens == nil {
		return nil, fmt.Errorf("%w: missing token sets", ErrCredentialInvalid)
	}
	payload := &Payload{Tokens: jwtClaims.Tokens}
	if jwtClaims.IssuedAt != nil {
		payload.IssuedAt = jwtClaims.IssuedAt.Time
	}
	if jwtClaims.ExpiresAt != nil {
		payload.ExpiresAt = jwtClaims.ExpiresAt.Time
	}
	return payload, nil
}

// Refresh re-issues a credential with fresh token sets for the requested
// providers. Providers not requested, or embedded without a refresh token,
// keep their prior token sets unchanged. An expired credential is accepted
// as long as its signature verifies.
func (i *Issuer) Refresh(ctx context.Context, credential string, providerIDs []string) (string, error) {
	payload, err := i.decode(credential, true)
	if err != nil {
		return "", &provider.RefreshError{Reason: "credential decode failed", Permanent: true, Err: err}
	}
	if len(providerIDs) == 0 {
		providerIDs = make([]string, 0, len(payload.Tokens))
		for providerID := range payload.Tokens {
			providerIDs = append(providerIDs, providerID)
		}
	}

	tokens := make(map[string]provider.TokenSet, len(payload.Tokens))
	for providerID, tokenSet := range payload.Tokens {
		tokens[providerID] = tokenSet
	}

	refreshed := 0
	for _, providerID := range providerIDs {
		tokenSet, ok := payload.Tokens[providerID]
		if !ok || tokenSet.RefreshToken == "" {
			continue
		}
		adapter, err := i.providers.Lookup(providerID)
		if err != nil {
			return "", &provider.RefreshError{Provider: providerID, Reason: "no adapter registered", Permanent: true, Err: err}
		}
		next, err := adapter.Refresh(ctx, tokenSet.RefreshToken)
		if err != nil {
			return "", err
		}
		tokens[providerID] = *next
		refreshed++
	}
	if refreshed == 0 {
		return "", &provider.RefreshError{Reason: "no requested provider holds a refresh token", Permanent: true}
	}
	return i.Issue(tokens)
}
