package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"tendra.org/internal/ids"
)

// MemoryUsers is an in-process UserStore, used by tests and single-node
// deployments without a database.
type MemoryUsers struct {
	mu     sync.RWMutex
	users  map[string]*User
	emails map[string]string
}

var _ UserStore = (*MemoryUsers)(nil)

// NewMemoryUsers creates an empty user store.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		users:  make(map[string]*User),
		emails: make(map[string]string),
	}
}

func (s *MemoryUsers) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email == "" {
		return ErrInvalidInput
	}
	if _, ok := s.emails[email]; ok {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	stored := *u
	stored.Email = email
	s.users[stored.ID] = &stored
	s.emails[email] = stored.ID
	return nil
}

func (s *MemoryUsers) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *MemoryUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s.users[id]
	return &out, nil
}

// MemoryTokens is an in-process TokenStore.
type MemoryTokens struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

var _ TokenStore = (*MemoryTokens)(nil)

// NewMemoryTokens creates an empty refresh token store.
func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{tokens: make(map[string]*RefreshToken)}
}

func (s *MemoryTokens) Create(ctx context.Context, tok *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.ID == "" {
		return ErrInvalidInput
	}
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now().UTC()
	}
	stored := *tok
	s.tokens[stored.ID] = &stored
	return nil
}

func (s *MemoryTokens) Find(ctx context.Context, id string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *tok
	return &out, nil
}

func (s *MemoryTokens) MarkRevoked(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[id]
	if !ok {
		return ErrNotFound
	}
	tok.Revoked = true
	return nil
}

func (s *MemoryTokens) MarkRevokedByUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tok := range s.tokens {
		if tok.UserID == userID {
			tok.Revoked = true
		}
	}
	return nil
}
