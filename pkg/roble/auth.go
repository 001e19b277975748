package roble

import (
	"context"
	"net/http"
	"time"
)

// Credentials identify a user against the auth endpoints. They are sent on
// login only and never stored by the client.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the body of the login and refresh endpoints.
type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Authenticate logs in with the given credentials and establishes the
// client's session. A previous session, if any, is replaced.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) error {
	resp, err := c.attempt(ctx, Request{
		Method: http.MethodPost,
		Path:   c.authPath("login"),
		Body:   creds,
	}, "")
	if err != nil {
		return &AuthError{Kind: AuthUnreachable, Err: err}
	}

	switch {
	case resp.Status >= 200 && resp.Status < 300:
		// fall through to token parsing
	case resp.Status >= 400 && resp.Status < 500:
		return &AuthError{Kind: AuthInvalidCredentials, Description: serviceMessage(resp.Body)}
	default:
		return &AuthError{Kind: AuthUnreachable, Description: serviceMessage(resp.Body)}
	}

	var tr tokenResponse
	if err := resp.Decode(&tr); err != nil {
		return &AuthError{Kind: AuthUnreachable, Description: "malformed login response", Err: err}
	}
	if tr.AccessToken == "" {
		return &AuthError{Kind: AuthUnreachable, Description: "login response carried no access token"}
	}

	tok := newToken(tr.AccessToken, tr.RefreshToken, time.Now())
	c.sess.set(tok)
	c.log.Debug("session established", "expires_at", tok.ExpiresAt)
	return nil
}

// AuthenticateWithRefreshToken establishes a session from a previously
// issued refresh token, without re-submitting user credentials.
func (c *Client) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) error {
	tok, err := c.refreshGrant(ctx, Token{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	c.sess.set(tok)
	return nil
}

// Signup registers a new user via the direct-signup endpoint. It does not
// authenticate; call Authenticate afterwards to establish a session.
func (c *Client) Signup(ctx context.Context, email, password, name string) error {
	resp, err := c.attempt(ctx, Request{
		Method: http.MethodPost,
		Path:   c.authPath("signup-direct"),
		Body: map[string]string{
			"email":    email,
			"password": password,
			"name":     name,
		},
	}, "")
	if err != nil {
		return err
	}
	return classify(resp)
}

// Logout tears the session down. The server-side logout call is best-effort:
// its failure never blocks clearing the local token store.
func (c *Client) Logout(ctx context.Context) {
	if tok, ok := c.sess.current(); ok {
		resp, err := c.attempt(ctx, Request{
			Method: http.MethodPost,
			Path:   c.authPath("logout"),
		}, tok.AccessToken)
		if err != nil {
			c.log.Debug("server logout failed", "err", err)
		} else if resp.Status >= 300 {
			c.log.Debug("server logout refused", "status", resp.Status)
		}
	}
	c.sess.clear()
}

// refreshGrant exchanges tok's refresh token for a fresh token pair. It is
// the session's refreshFunc; the session itself decides when to call it and
// commits the result.
func (c *Client) refreshGrant(ctx context.Context, tok Token) (Token, error) {
	if tok.RefreshToken == "" {
		return Token{}, &AuthError{Kind: AuthRefreshUnsupported}
	}

	resp, err := c.attempt(ctx, Request{
		Method: http.MethodPost,
		Path:   c.authPath("refresh-token"),
		Body:   map[string]string{"refreshToken": tok.RefreshToken},
	}, "")
	if err != nil {
		return Token{}, &AuthError{Kind: AuthUnreachable, Err: err}
	}

	switch {
	case resp.Status >= 200 && resp.Status < 300:
		// fall through to token parsing
	case resp.Status >= 400 && resp.Status < 500:
		return Token{}, &AuthError{Kind: AuthRefreshRejected, Description: serviceMessage(resp.Body)}
	default:
		return Token{}, &AuthError{Kind: AuthUnreachable, Description: serviceMessage(resp.Body)}
	}

	var tr tokenResponse
	if err := resp.Decode(&tr); err != nil {
		return Token{}, &AuthError{Kind: AuthUnreachable, Description: "malformed refresh response", Err: err}
	}
	if tr.AccessToken == "" {
		return Token{}, &AuthError{Kind: AuthUnreachable, Description: "refresh response carried no access token"}
	}

	// The service may rotate the refresh token; keep the old one when the
	// response omits it.
	refresh := tr.RefreshToken
	if refresh == "" {
		refresh = tok.RefreshToken
	}

	fresh := newToken(tr.AccessToken, refresh, time.Now())
	c.log.Debug("access token refreshed", "expires_at", fresh.ExpiresAt)
	return fresh, nil
}
