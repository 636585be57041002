package auth

import (
	"sync"
	"time"
)

// TokenStore tracks live token IDs (jti) so sessions can be revoked before
// they expire. Entries are swept in the background once their expiry passes.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time

	sweepInterval time.Duration
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// NewTokenStore creates a token store with the given sweep interval.
func NewTokenStore(sweepInterval time.Duration) *TokenStore {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &TokenStore{
		tokens:        make(map[string]time.Time),
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Add registers a token ID with its expiry time.
func (s *TokenStore) Add(jti string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[jti] = expiresAt
}

// IsLive reports whether a token ID is known and not yet expired.
func (s *TokenStore) IsLive(jti string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.tokens[jti]
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		delete(s.tokens, jti)
		return false
	}
	return true
}

// Revoke removes a token ID from the store.
func (s *TokenStore) Revoke(jti string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, jti)
}

// Len returns the number of tracked tokens.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Start launches the background sweep loop.
func (s *TokenStore) Start() {
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit.
func (s *TokenStore) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *TokenStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, expiresAt := range s.tokens {
		if now.After(expiresAt) {
			delete(s.tokens, jti)
		}
	}
}
