package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/plexora/authbridge/credential"
	"github.com/plexora/authbridge/provider"
)

func newPayload() *credential.Payload {
	return &credential.Payload{
		Tokens: map[string]provider.TokenSet{
			"tracker": {AccessToken: "at"},
		},
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestRegistry_AttachLookupDetach(t *testing.T) {
	aRegistry := New()
	payload := newPayload()

	_, err := aRegistry.Lookup("conn-1")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	aRegistry.Attach("conn-1", payload)
	assert.Equal(t, 1, aRegistry.Size())

	found, err := aRegistry.Lookup("conn-1")
	assert.Nil(t, err)
	assert.Equal(t, payload, found)

	aRegistry.Detach("conn-1")
	assert.Equal(t, 0, aRegistry.Size())
	_, err = aRegistry.Lookup("conn-1")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	// detaching an absent id is a no-op
	aRegistry.Detach("conn-1")
}

func TestRegistry_AttachOverwrites(t *testing.T) {
	aRegistry := New()
	first := newPayload()
	second := newPayload()
	second.Tokens["canvas"] = provider.TokenSet{AccessToken: "at-canvas"}

	aRegistry.Attach("conn-1", first)
	aRegistry.Attach("conn-1", second)
	assert.Equal(t, 1, aRegistry.Size())

	found, err := aRegistry.Lookup("conn-1")
	assert.Nil(t, err)
	assert.Equal(t, second, found)
}

func TestRegistry_Invalidate(t *testing.T) {
	aRegistry := New()
	aRegistry.Attach("conn-1", newPayload())
	aRegistry.Invalidate("conn-1")
	_, err := aRegistry.Lookup("conn-1")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestRegistry_Isolation(t *testing.T) {
	aRegistry := New()
	first := newPayload()
	second := newPayload()
	aRegistry.Attach("conn-1", first)
	aRegistry.Attach("conn-2", second)

	aRegistry.Detach("conn-1")
	found, err := aRegistry.Lookup("conn-2")
	assert.Nil(t, err)
	assert.Equal(t, second, found)
}

func TestRegistry_ExpiredEntryDropped(t *testing.T) {
	aRegistry := New()
	payload := newPayload()
	payload.ExpiresAt = time.Now().Add(-time.Second)
	aRegistry.Attach("conn-1", payload)

	_, err := aRegistry.Lookup("conn-1")
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Equal(t, 0, aRegistry.Size())
}

func TestContext(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrInvalidCredential)

	payload := newPayload()
	ctx := NewContext(context.Background(), payload)
	found, err := FromContext(ctx)
	assert.Nil(t, err)
	assert.Equal(t, payload, found)
}
