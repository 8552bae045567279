package bridge

import (
	"sync"
	"time"
)

// defaultPendingTTL bounds memory growth from abandoned handshakes.
const defaultPendingTTL = 10 * time.Minute

// PendingAuthorization holds the correlation state of one in-flight
// handshake. The client-supplied proof-key values are immutable once
// recorded and are never sent to a provider in server-exchange mode.
type PendingAuthorization struct {
	SessionKey                 string
	ClientCodeChallenge        string
	ClientCodeChallengeMethod  string
	ClientState                string
	ClientRedirectURI          string
	SelectedProvider           string
	ProviderCodeVerifier       string
	CreatedAt                  time.Time
}

// PendingStore is the thread-safe store of in-flight handshakes, keyed by
// session key. Consume is linearizable per key: one caller wins, later
// callers observe an unknown handshake.
type PendingStore struct {
	mu      sync.Mutex
	entries map[string]*PendingAuthorization

	ttl         time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewPendingStore creates a pending store with the default TTL and starts
// its background sweep.
func NewPendingStore() *PendingStore {
	return NewPendingStoreWithTTL(defaultPendingTTL)
}

// NewPendingStoreWithTTL creates a pending store with an explicit TTL.
func NewPendingStoreWithTTL(ttl time.Duration) *PendingStore {
	ret := &PendingStore{
		entries:     make(map[string]*PendingAuthorization),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}
	go ret.cleanupLoop()
	return ret
}

// Put records a pending authorization, overwriting any prior entry for the
// same session key (idempotent restart of an abandoned flow).
func (s *PendingStore) Put(pending *PendingAuthorization) {
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[pending.SessionKey] = pending
}

// Consume atomically reads and deletes the pending authorization for a
// session key. Entries past the TTL are treated as absent.
func (s *PendingStore) Consume(sessionKey string) (*PendingAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.entries[sessionKey]
	if !ok {
		return nil, ErrUnknownHandshake
	}
	delete(s.entries, sessionKey)
	if time.Since(pending.CreatedAt) > s.ttl {
		return nil, ErrUnknownHandshake
	}
	return pending, nil
}

// Size returns the number of in-flight handshakes.
func (s *PendingStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop terminates the background sweep.
func (s *PendingStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
}

func (s *PendingStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *PendingStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sessionKey, pending := range s.entries {
		if time.Since(pending.CreatedAt) > s.ttl {
			delete(s.entries, sessionKey)
		}
	}
}
