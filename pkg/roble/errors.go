package roble

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ============================================================================
// Authentication errors
// ============================================================================

// AuthErrorKind classifies authentication failures.
type AuthErrorKind string

const (
	// AuthNotAuthenticated: no session exists; the caller must Authenticate
	// before dispatching requests.
	AuthNotAuthenticated AuthErrorKind = "not_authenticated"

	// AuthInvalidCredentials: the login endpoint rejected the credentials.
	AuthInvalidCredentials AuthErrorKind = "invalid_credentials"

	// AuthRefreshRejected: the refresh endpoint rejected the refresh token.
	// The session is cleared; the caller must re-authenticate.
	AuthRefreshRejected AuthErrorKind = "refresh_rejected"

	// AuthRefreshUnsupported: the session holds no refresh token, so an
	// expired access token cannot be renewed without a fresh login.
	AuthRefreshUnsupported AuthErrorKind = "refresh_unsupported"

	// AuthUnreachable: the auth endpoint could not be reached or failed
	// server-side.
	AuthUnreachable AuthErrorKind = "unreachable"
)

// AuthError reports a failure in the session/authentication flow.
type AuthError struct {
	Kind        AuthErrorKind
	Description string
	Err         error // underlying cause, if any
}

func (e *AuthError) Error() string {
	var b strings.Builder
	b.WriteString("roble: auth ")
	b.WriteString(string(e.Kind))
	if e.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Description)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any *AuthError of the same kind, so callers can compare against
// the package sentinels with errors.Is.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotAuthenticated   = &AuthError{Kind: AuthNotAuthenticated}
	ErrInvalidCredentials = &AuthError{Kind: AuthInvalidCredentials}
	ErrRefreshRejected    = &AuthError{Kind: AuthRefreshRejected}
	ErrRefreshUnsupported = &AuthError{Kind: AuthRefreshUnsupported}
	ErrAuthUnreachable    = &AuthError{Kind: AuthUnreachable}
)

// ============================================================================
// API errors
// ============================================================================

// APIErrorKind classifies request-dispatch failures.
type APIErrorKind string

const (
	// APIClientError: the service returned a non-auth 4xx, or kept rejecting
	// the token after the bounded refresh-and-resend cycle.
	APIClientError APIErrorKind = "client_error"

	// APIServerError: the service returned a 5xx.
	APIServerError APIErrorKind = "server_error"

	// APIUnreachable: the request never produced an HTTP response.
	APIUnreachable APIErrorKind = "unreachable"
)

// APIError reports a failed API call. Status and Body carry the final
// response for ClientError/ServerError kinds; Err carries the transport
// cause for Unreachable.
type APIError struct {
	Kind   APIErrorKind
	Status int
	Body   []byte
	Err    error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case APIUnreachable:
		if e.Err != nil {
			return fmt.Sprintf("roble: api unreachable: %v", e.Err)
		}
		return "roble: api unreachable"
	default:
		msg := serviceMessage(e.Body)
		if msg == "" {
			msg = http.StatusText(e.Status)
		}
		return fmt.Sprintf("roble: api %s (status %d): %s", e.Kind, e.Status, msg)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// Is matches any *APIError of the same kind.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrClientError = &APIError{Kind: APIClientError}
	ErrServerError = &APIError{Kind: APIServerError}
	ErrUnreachable = &APIError{Kind: APIUnreachable}
)

// classify maps a final HTTP response to nil (2xx) or a typed *APIError.
func classify(resp *Response) error {
	switch {
	case resp.Status >= 200 && resp.Status < 300:
		return nil
	case resp.Status >= 500:
		return &APIError{Kind: APIServerError, Status: resp.Status, Body: resp.Body}
	default:
		// Everything else, including auth rejections that survived the
		// single refresh-and-resend cycle and unexpected 3xx.
		return &APIError{Kind: APIClientError, Status: resp.Status, Body: resp.Body}
	}
}

// serviceMessage extracts a human-readable message from a Roble error body.
// The service wraps errors as {"message": ...} where message is a string or,
// for validation failures, an array of strings; some endpoints use "error".
func serviceMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Message) > 0 {
		var s string
		if err := json.Unmarshal(payload.Message, &s); err == nil {
			return s
		}
		var list []string
		if err := json.Unmarshal(payload.Message, &list); err == nil {
			return strings.Join(list, "; ")
		}
	}

	return payload.Error
}
