package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tendra.org/internal/auth"
)

// Client is the HTTP Authenticator talking to the marketplace auth endpoints.
// It uses a plain transport: login and refresh are public calls and must not
// recurse into the session retry path.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ Authenticator = (*Client)(nil)

// NewClient creates an auth client for the given API base URL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type tokenEnvelope struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Principal    struct {
		UserID      string `json:"user_id"`
		Role        string `json:"role"`
		AccountType string `json:"account_type"`
	} `json:"principal"`
}

func (c *Client) Login(ctx context.Context, email, password string) (TokenPair, auth.Principal, error) {
	body := map[string]string{"email": email, "password": password}
	env, err := c.post(ctx, "/v1/auth/login", body)
	if err != nil {
		return TokenPair{}, auth.Principal{}, err
	}
	return env.pair(), env.principal(), nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, auth.Principal, error) {
	body := map[string]string{"refresh_token": refreshToken}
	env, err := c.post(ctx, "/v1/auth/refresh", body)
	if err != nil {
		return TokenPair{}, auth.Principal{}, err
	}
	return env.pair(), env.principal(), nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*tokenEnvelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, auth.ErrInvalidToken
	default:
		return nil, fmt.Errorf("auth endpoint %s: unexpected status %d", path, resp.StatusCode)
	}

	var env tokenEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if env.AccessToken == "" {
		return nil, auth.ErrInvalidToken
	}
	return &env, nil
}

func (e *tokenEnvelope) pair() TokenPair {
	return TokenPair{AccessToken: e.AccessToken, RefreshToken: e.RefreshToken}
}

func (e *tokenEnvelope) principal() auth.Principal {
	return auth.Principal{
		UserID:      e.Principal.UserID,
		Role:        auth.Role(e.Principal.Role),
		AccountType: auth.AccountType(e.Principal.AccountType),
	}
}
