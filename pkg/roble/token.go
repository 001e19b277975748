package roble

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenSkew is the safety margin subtracted from a token's expiry
	// so a token that would expire mid-flight is treated as already expired.
	DefaultTokenSkew = 5 * time.Second

	// DefaultTokenTTL applies when the access token carries no parseable
	// expiry claim.
	DefaultTokenTTL = 15 * time.Minute
)

// Token is the session credential pair issued by the auth endpoints.
type Token struct {
	AccessToken  string
	RefreshToken string // empty when the service issued no refresh token
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Valid reports whether the token can still be attached to a request at now,
// leaving skew as a margin before the actual expiry.
func (t Token) Valid(now time.Time, skew time.Duration) bool {
	return t.AccessToken != "" && now.Add(skew).Before(t.ExpiresAt)
}

// newToken builds a Token from the raw endpoint values, deriving the
// lifetime from the access JWT's claims.
func newToken(access, refresh string, now time.Time) Token {
	issued, expires := tokenLifetime(access, now)
	return Token{
		AccessToken:  access,
		RefreshToken: refresh,
		IssuedAt:     issued,
		ExpiresAt:    expires,
	}
}

// tokenLifetime reads the unverified iat/exp claims of the access JWT. The
// client has no signing keys, so the signature is not (and cannot be)
// checked here; the service remains the source of truth and expired or
// tampered tokens are rejected server-side anyway. Tokens without a usable
// exp claim fall back to DefaultTokenTTL.
func tokenLifetime(access string, now time.Time) (issued, expires time.Time) {
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(access, &claims); err == nil && claims.ExpiresAt != nil {
		issued = now
		if claims.IssuedAt != nil {
			issued = claims.IssuedAt.Time
		}
		expires = claims.ExpiresAt.Time
		if expires.After(issued) {
			return issued, expires
		}
	}
	return now, now.Add(DefaultTokenTTL)
}

// tokenStore holds the session's current token. In-process only; the zero
// value is an empty store.
type tokenStore struct {
	mu  sync.RWMutex
	tok Token
	ok  bool
}

func (s *tokenStore) set(t Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = t
	s.ok = true
}

func (s *tokenStore) get() (Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tok, s.ok
}

func (s *tokenStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = Token{}
	s.ok = false
}

// valid reports whether a token is present and still usable under skew.
func (s *tokenStore) valid(skew time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ok && s.tok.Valid(time.Now(), skew)
}
