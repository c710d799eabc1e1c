package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *MemoryUsers, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	users := NewMemoryUsers()
	tokens := NewMemoryTokens()
	opts = append([]ServiceOption{WithClock(clock.Now)}, opts...)
	svc, err := NewService("test-secret", users, tokens, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, users, clock
}

func seedUser(t *testing.T, users *MemoryUsers, password string) *User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &User{
		ID:           "u-1",
		Email:        "u@example.com",
		PasswordHash: hash,
		Role:         RoleClient,
		AccountType:  AccountClient,
	}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestServiceLogin(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "pw")

	pair, principal, err := svc.Login(context.Background(), "u@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("login returned empty tokens")
	}
	if principal.UserID != "u-1" || principal.Role != RoleClient || principal.AccountType != AccountClient {
		t.Fatalf("principal = %+v", principal)
	}

	got, err := svc.Authenticate(pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got != principal {
		t.Fatalf("authenticated principal = %+v, want %+v", got, principal)
	}
}

func TestServiceLoginRejections(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "pw")

	cases := []struct {
		name            string
		email, password string
	}{
		{"wrong password", "u@example.com", "nope"},
		{"unknown email", "ghost@example.com", "pw"},
		{"empty password", "u@example.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := svc.Login(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestServiceLoginDisabledUser(t *testing.T) {
	svc, users, _ := newTestService(t)
	hash, _ := HashPassword("pw")
	if err := users.Create(context.Background(), &User{
		ID:           "u-2",
		Email:        "off@example.com",
		PasswordHash: hash,
		Role:         RoleClient,
		AccountType:  AccountClient,
		Status:       UserStatusDisabled,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "off@example.com", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestServiceRefreshRotation(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "pw")

	pair, _, err := svc.Login(context.Background(), "u@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, principal, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if principal.UserID != "u-1" {
		t.Fatalf("principal = %+v", principal)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The presented token is single-use.
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reused token err = %v, want ErrInvalidToken", err)
	}

	// The rotated token still works.
	if _, _, err := svc.Refresh(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("rotated refresh: %v", err)
	}
}

func TestServiceRefreshTamperedSecret(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "pw")

	pair, _, err := svc.Login(context.Background(), "u@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	id, _, err := splitRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("split token: %v", err)
	}
	forged := id + ".forged-secret"
	if _, _, err := svc.Refresh(context.Background(), forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("forged token err = %v, want ErrInvalidToken", err)
	}

	// A forgery attempt burns the stored record: the real token dies too.
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("post-forgery refresh err = %v, want ErrInvalidToken", err)
	}
}

func TestServiceRefreshExpired(t *testing.T) {
	svc, users, clock := newTestService(t, WithRefreshTTL(time.Hour))
	seedUser(t, users, "pw")

	pair, _, err := svc.Login(context.Background(), "u@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	clock.Advance(2 * time.Hour)
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired refresh err = %v, want ErrInvalidToken", err)
	}
}

func TestServiceRefreshGarbage(t *testing.T) {
	svc, _, _ := newTestService(t)
	for _, raw := range []string{"", "no-dot", ".leading", "trailing.", "a.b.c"} {
		if _, _, err := svc.Refresh(context.Background(), raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Refresh(%q) err = %v, want ErrInvalidToken", raw, err)
		}
	}
}

func TestServiceAuthenticateExpiredAccessToken(t *testing.T) {
	svc, users, clock := newTestService(t, WithAccessTTL(time.Minute))
	seedUser(t, users, "pw")

	pair, _, err := svc.Login(context.Background(), "u@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := svc.Authenticate(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired access err = %v, want ErrInvalidToken", err)
	}
}

func TestServiceAuthenticateRejectsForeignToken(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "pw")
	pair, _, err := svc.Login(context.Background(), "u@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other, err := NewService("different-secret", users, NewMemoryTokens())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := other.Authenticate(pair.AccessToken); err == nil {
		t.Fatal("token accepted despite different signing secret")
	}

	if _, err := svc.Authenticate("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token err = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.Authenticate(strings.Repeat(" ", 4)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("blank token err = %v, want ErrInvalidToken", err)
	}
}

func TestServiceRevokeUser(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "pw")

	pair, _, err := svc.Login(context.Background(), "u@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.RevokeUser(context.Background(), "u-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("revoked refresh err = %v, want ErrInvalidToken", err)
	}

	if err := svc.RevokeUser(context.Background(), " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank user err = %v, want ErrInvalidInput", err)
	}
}
