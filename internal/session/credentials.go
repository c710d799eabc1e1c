package session

import "sync"

// Credentials is the current access/refresh token pair. Either field may be
// empty; Present on the store reports whether an access token is held.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// CredentialStore holds the token pair for the one session owned by this
// process. All operations are atomic: a reader never observes a half-written
// pair. The epoch lets a refresh completion detect that a logout (or another
// writer) raced it; logout always wins.
type CredentialStore struct {
	mu    sync.Mutex
	creds Credentials
	epoch uint64
}

// NewCredentialStore returns an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

// Get returns the current pair and whether an access token is present.
func (s *CredentialStore) Get() (Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, s.creds.AccessToken != ""
}

// Snapshot returns the current pair together with the store epoch, for use
// with CompareAndSet.
func (s *CredentialStore) Snapshot() (Credentials, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, s.epoch
}

// Set stores a new pair. An empty refresh token keeps the previous one: a
// refresh response may rotate only the access token.
func (s *CredentialStore) Set(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.AccessToken = access
	if refresh != "" {
		s.creds.RefreshToken = refresh
	}
	s.epoch++
}

// CompareAndSet stores the pair only if no Set or Clear happened since the
// Snapshot that produced epoch. Returns false when the write was discarded.
func (s *CredentialStore) CompareAndSet(epoch uint64, access, refresh string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.creds.AccessToken = access
	if refresh != "" {
		s.creds.RefreshToken = refresh
	}
	s.epoch++
	return true
}

// Clear wipes both tokens.
func (s *CredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	s.epoch++
}
