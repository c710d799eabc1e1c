package session

import "testing"

func TestCredentialStoreSetAndGet(t *testing.T) {
	s := NewCredentialStore()

	if _, ok := s.Get(); ok {
		t.Fatal("empty store reported credentials present")
	}

	s.Set("access-1", "refresh-1")
	creds, ok := s.Get()
	if !ok {
		t.Fatal("expected credentials present")
	}
	if creds.AccessToken != "access-1" || creds.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
}

func TestCredentialStoreSetKeepsRefreshToken(t *testing.T) {
	s := NewCredentialStore()
	s.Set("access-1", "refresh-1")

	// A refresh response that rotates only the access token must not lose
	// the stored refresh token.
	s.Set("access-2", "")

	creds, _ := s.Get()
	if creds.AccessToken != "access-2" {
		t.Fatalf("access token = %q, want access-2", creds.AccessToken)
	}
	if creds.RefreshToken != "refresh-1" {
		t.Fatalf("refresh token = %q, want refresh-1", creds.RefreshToken)
	}
}

func TestCredentialStoreClear(t *testing.T) {
	s := NewCredentialStore()
	s.Set("access-1", "refresh-1")
	s.Clear()

	creds, ok := s.Get()
	if ok {
		t.Fatal("cleared store reported credentials present")
	}
	if creds.AccessToken != "" || creds.RefreshToken != "" {
		t.Fatalf("cleared store still holds %+v", creds)
	}
}

func TestCredentialStoreCompareAndSet(t *testing.T) {
	s := NewCredentialStore()
	s.Set("access-1", "refresh-1")

	_, epoch := s.Snapshot()
	if !s.CompareAndSet(epoch, "access-2", "refresh-2") {
		t.Fatal("CompareAndSet against current epoch failed")
	}
	creds, _ := s.Get()
	if creds.AccessToken != "access-2" || creds.RefreshToken != "refresh-2" {
		t.Fatalf("unexpected credentials after CAS: %+v", creds)
	}
}

func TestCredentialStoreCompareAndSetLosesToClear(t *testing.T) {
	s := NewCredentialStore()
	s.Set("access-1", "refresh-1")

	_, epoch := s.Snapshot()
	s.Clear()

	if s.CompareAndSet(epoch, "access-2", "refresh-2") {
		t.Fatal("CompareAndSet succeeded against a stale epoch")
	}
	if _, ok := s.Get(); ok {
		t.Fatal("stale CAS resurrected credentials after Clear")
	}
}
