package session

import "errors"

var (
	// ErrSessionExpired means the refresh path is exhausted: no refresh token,
	// refresh rejected by the backend, or a retried request failed again. The
	// caller must force re-authentication; nothing is retried automatically.
	ErrSessionExpired = errors.New("session: expired")

	// ErrNotAuthenticated is returned when an authentication failure arrives
	// before any login has populated the session.
	ErrNotAuthenticated = errors.New("session: not authenticated")
)
