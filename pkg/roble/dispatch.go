package roble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Request describes a single API call. It is immutable once constructed; the
// dispatcher marshals Body afresh for every attempt so a resend carries an
// identical payload.
type Request struct {
	Method string
	Path   string // relative to the service root, e.g. "/database/p1/read"
	Query  url.Values
	Header http.Header
	Body   any // marshalled as JSON when non-nil
}

// Response is the final HTTP response of a successful dispatch.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("roble: decode response: %w", err)
	}
	return nil
}

// Do dispatches req with the session's access token attached.
//
// The flow is strictly bounded: an absent session fails immediately with
// AuthError(NotAuthenticated); an expired token triggers exactly one refresh
// before the request; a 401/403 response triggers one refresh-and-resend
// only if no refresh happened yet during this call. The request is therefore
// sent at most twice, with at most one refresh in between, no matter how
// many times the service rejects the token.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	access, refreshed, err := c.sess.accessToken(ctx, c.refreshGrant)
	if err != nil {
		return nil, err
	}

	resp, err := c.attempt(ctx, req, access)
	if err != nil {
		return nil, err
	}

	if isAuthRejection(resp.Status) && !refreshed && c.cfg.MaxRetries > 0 {
		c.log.Debug("token rejected, refreshing and resending",
			"status", resp.Status, "path", req.Path)

		access, err = c.sess.retryToken(ctx, access, c.refreshGrant)
		if err != nil {
			return nil, err
		}
		resp, err = c.attempt(ctx, req, access)
		if err != nil {
			return nil, err
		}
	}

	if err := classify(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// isAuthRejection reports whether the status signals a stale or revoked
// token. The service answers 401 for expired tokens and 403 for tokens it no
// longer recognizes; both are candidates for the single refresh-and-resend.
func isAuthRejection(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// attempt performs one HTTP call. access may be empty for unauthenticated
// endpoints (login, signup). Transport-level failures come back as
// APIError(Unreachable); HTTP responses of any status come back as *Response
// for the caller to interpret.
func (c *Client) attempt(ctx context.Context, req Request, access string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &APIError{Kind: APIUnreachable, Err: err}
		}
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("roble: encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	u := c.cfg.BaseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("roble: build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &APIError{Kind: APIUnreachable, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &APIError{Kind: APIUnreachable, Err: err}
	}

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   respBody,
	}, nil
}
