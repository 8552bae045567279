package bridge

import (
	"sync"
	"time"
)

// defaultGrantTTL bounds how long a completed server exchange waits for the
// client to redeem its credential.
const defaultGrantTTL = 2 * time.Minute

// Grant parks a completed server-exchange handshake until the client redeems
// it at the token endpoint with its proof-key verifier.
type Grant struct {
	Code                      string
	ClientCodeChallenge       string
	ClientCodeChallengeMethod string
	Credential                string
	CreatedAt                 time.Time
}

// GrantStore holds unredeemed grants keyed by code. Each grant is consumed
// at most once.
type GrantStore struct {
	mu      sync.Mutex
	entries map[string]*Grant

	ttl         time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewGrantStore creates a grant store with the default TTL and starts its
// background sweep.
func NewGrantStore() *GrantStore {
	return NewGrantStoreWithTTL(defaultGrantTTL)
}

// NewGrantStoreWithTTL creates a grant store with an explicit TTL.
func NewGrantStoreWithTTL(ttl time.Duration) *GrantStore {
	ret := &GrantStore{
		entries:     make(map[string]*Grant),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}
	go ret.cleanupLoop()
	return ret
}

// Put parks a grant, overwriting any unredeemed grant for the same code.
func (s *GrantStore) Put(grant *Grant) {
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[grant.Code] = grant
}

// Consume atomically redeems a grant. Expired or already-redeemed grants are
// treated as absent.
func (s *GrantStore) Consume(code string) (*Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.entries[code]
	if !ok {
		return nil, ErrUnknownHandshake
	}
	delete(s.entries, code)
	if time.Since(grant.CreatedAt) > s.ttl {
		return nil, ErrUnknownHandshake
	}
	return grant, nil
}

// Stop terminates the background sweep.
func (s *GrantStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
}

func (s *GrantStore) cleanupLoop() {
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

func (s *GrantStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, grant := range s.entries {
		if time.Since(grant.CreatedAt) > s.ttl {
			delete(s.entries, code)
		}
	}
}
