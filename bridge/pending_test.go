package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPendingStore_ConsumeOnce(t *testing.T) {
	store := NewPendingStoreWithTTL(time.Minute)
	defer store.Stop()

	store.Put(&PendingAuthorization{SessionKey: "sess-1", ClientState: "state-1"})

	pending, err := store.Consume("sess-1")
	assert.Nil(t, err)
	assert.Equal(t, "state-1", pending.ClientState)

	// replay loses
	_, err = store.Consume("sess-1")
	assert.ErrorIs(t, err, ErrUnknownHandshake)
}

func TestPendingStore_Isolation(t *testing.T) {
	store := NewPendingStoreWithTTL(time.Minute)
	defer store.Stop()

	store.Put(&PendingAuthorization{SessionKey: "sess-a", SelectedProvider: "tracker"})
	store.Put(&PendingAuthorization{SessionKey: "sess-b", SelectedProvider: "canvas"})
	assert.Equal(t, 2, store.Size())

	a, err := store.Consume("sess-a")
	assert.Nil(t, err)
	assert.Equal(t, "tracker", a.SelectedProvider)

	b, err := store.Consume("sess-b")
	assert.Nil(t, err)
	assert.Equal(t, "canvas", b.SelectedProvider)
}

func TestPendingStore_Overwrite(t *testing.T) {
	store := NewPendingStoreWithTTL(time.Minute)
	defer store.Stop()

	store.Put(&PendingAuthorization{SessionKey: "sess-1", SelectedProvider: "tracker"})
	store.Put(&PendingAuthorization{SessionKey: "sess-1", SelectedProvider: "canvas"})
	assert.Equal(t, 1, store.Size())

	pending, err := store.Consume("sess-1")
	assert.Nil(t, err)
	assert.Equal(t, "canvas", pending.SelectedProvider)
}

func TestPendingStore_Expiry(t *testing.T) {
	store := NewPendingStoreWithTTL(10 * time.Millisecond)
	defer store.Stop()

	store.Put(&PendingAuthorization{SessionKey: "sess-1"})
	time.Sleep(30 * time.Millisecond)

	_, err := store.Consume("sess-1")
	assert.ErrorIs(t, err, ErrUnknownHandshake)
}

func TestPendingStore_Unknown(t *testing.T) {
	store := NewPendingStoreWithTTL(time.Minute)
	defer store.Stop()

	_, err := store.Consume("missing")
	assert.ErrorIs(t, err, ErrUnknownHandshake)
}

func TestGrantStore_ConsumeOnce(t *testing.T) {
	store := NewGrantStoreWithTTL(time.Minute)
	defer store.Stop()

	store.Put(&Grant{Code: "sess-1", Credential: "cred"})

	grant, err := store.Consume("sess-1")
	assert.Nil(t, err)
	assert.Equal(t, "cred", grant.Credential)

	_, err = store.Consume("sess-1")
	assert.ErrorIs(t, err, ErrUnknownHandshake)
}

func TestGrantStore_Expiry(t *testing.T) {
	store := NewGrantStoreWithTTL(10 * time.Millisecond)
	defer store.Stop()

	store.Put(&Grant{Code: "sess-1", Credential: "cred"})
	time.Sleep(30 * time.Millisecond)

	_, err := store.Consume("sess-1")
	assert.ErrorIs(t, err, ErrUnknownHandshake)
}
