package session

import (
	"bytes"
	"io"
	"net/http"
)

// Transport is an http.RoundTripper that authenticates outbound requests via
// the session manager and funnels 401 responses through its single-retry
// refresh path. Wrap an http.Client with it and every call becomes resilient
// to access token expiry.
type Transport struct {
	Base    http.RoundTripper
	Manager *Manager
}

var _ http.RoundTripper = (*Transport)(nil)

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if err := bufferBody(r); err != nil {
		return nil, err
	}
	t.Manager.Authorize(r)

	resp, err := t.base().RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	return t.Manager.HandleUnauthorized(r, func(retry *http.Request) (*http.Response, error) {
		if retry.GetBody != nil {
			body, err := retry.GetBody()
			if err != nil {
				return nil, err
			}
			retry.Body = body
		}
		resp, err := t.base().RoundTrip(retry)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			// The refreshed token was rejected too. Hand the retried request
			// back to the manager, which expires the session instead of
			// looping.
			drain(resp)
			return t.Manager.HandleUnauthorized(retry, nil)
		}
		return resp, nil
	})
}

// drain finishes a response body so the underlying connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// bufferBody makes the request body replayable. Requests built with
// http.NewRequest already carry GetBody for common body types.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}
