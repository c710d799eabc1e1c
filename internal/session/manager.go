package session

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"tendra.org/internal/auth"
	"tendra.org/internal/obs"
)

// State is the lifecycle state of the process-wide session.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateRefreshing     State = "refreshing"
	StateExpired        State = "expired"
)

// TokenPair carries credentials returned by the auth backend. RefreshToken
// may be empty when the backend rotates only the access token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Authenticator is the remote auth collaborator: login and refresh endpoints.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (TokenPair, auth.Principal, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, auth.Principal, error)
}

// Manager owns the one session of this process. It injects the access token
// into outbound requests and services authentication failures with a single
// shared refresh: when several requests hit a 401 at once, exactly one
// refresh call reaches the backend and every caller waits on its result.
type Manager struct {
	store *CredentialStore
	authn Authenticator
	group singleflight.Group

	mu        sync.Mutex
	state     State
	principal *auth.Principal
}

// NewManager creates an anonymous session backed by the given store.
func NewManager(store *CredentialStore, authn Authenticator) *Manager {
	if store == nil {
		store = NewCredentialStore()
	}
	return &Manager{store: store, authn: authn, state: StateAnonymous}
}

// Store exposes the credential store (shared with persistence collaborators).
func (m *Manager) Store() *CredentialStore { return m.store }

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Principal returns the authenticated identity, if any.
func (m *Manager) Principal() (auth.Principal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.principal == nil {
		return auth.Principal{}, false
	}
	return *m.principal, true
}

// Authorize attaches the bearer credential to the request when an access
// token is present; anonymous requests pass through unchanged.
func (m *Manager) Authorize(req *http.Request) {
	creds, ok := m.store.Get()
	if !ok {
		return
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
}

// Login authenticates against the backend and populates the session.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.setState(StateAuthenticating)
	pair, principal, err := m.authn.Login(ctx, email, password)
	if err != nil {
		m.setState(StateAnonymous)
		return err
	}
	m.store.Set(pair.AccessToken, pair.RefreshToken)
	m.mu.Lock()
	m.state = StateAuthenticated
	m.principal = &principal
	m.mu.Unlock()
	return nil
}

// Logout clears the session. The epoch bump inside Clear guarantees that an
// in-flight refresh completing afterwards cannot resurrect the credentials.
func (m *Manager) Logout() {
	m.store.Clear()
	m.mu.Lock()
	m.state = StateAnonymous
	m.principal = nil
	m.mu.Unlock()
}

type retryMarker struct{}

// markRetried clones the request with the retry marker so a second 401 on the
// same logical call is surfaced instead of looping.
func markRetried(req *http.Request) *http.Request {
	return req.Clone(context.WithValue(req.Context(), retryMarker{}, true))
}

func isRetried(req *http.Request) bool {
	v, _ := req.Context().Value(retryMarker{}).(bool)
	return v
}

// HandleUnauthorized services an authentication failure for req. do replays
// the request against the transport. The request is retried at most once,
// with a token no older than the one obtained by the shared refresh.
func (m *Manager) HandleUnauthorized(req *http.Request, do func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	if isRetried(req) {
		m.expire()
		return nil, ErrSessionExpired
	}

	access, err := m.refreshShared(req.Context())
	if err != nil {
		return nil, err
	}

	retry := markRetried(req)
	retry.Header.Set("Authorization", "Bearer "+access)
	return do(retry)
}

// refreshShared funnels all concurrent callers through one refresh operation
// and hands each of them the resulting access token.
func (m *Manager) refreshShared(ctx context.Context) (string, error) {
	v, err, _ := m.group.Do("refresh", func() (any, error) {
		creds, epoch := m.store.Snapshot()
		if creds.AccessToken == "" && creds.RefreshToken == "" {
			// Nothing was ever stored; this 401 is not an expiry.
			return nil, ErrNotAuthenticated
		}
		if creds.RefreshToken == "" {
			m.expire()
			return nil, ErrSessionExpired
		}
		m.setState(StateRefreshing)

		// The refresh serves every waiter, not just the caller that happened
		// to arrive first; its lifetime must not end with that caller's.
		pair, principal, err := m.authn.Refresh(context.WithoutCancel(ctx), creds.RefreshToken)
		if err != nil {
			obs.ObserveSessionRefresh("failed")
			m.expire()
			return nil, ErrSessionExpired
		}
		if !m.store.CompareAndSet(epoch, pair.AccessToken, pair.RefreshToken) {
			// A logout (or competing login) won the store; discard the result.
			obs.ObserveSessionRefresh("failed")
			return nil, ErrSessionExpired
		}
		obs.ObserveSessionRefresh("ok")
		m.mu.Lock()
		m.state = StateAuthenticated
		m.principal = &principal
		m.mu.Unlock()
		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) expire() {
	m.store.Clear()
	m.mu.Lock()
	m.state = StateExpired
	m.principal = nil
	m.mu.Unlock()
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
