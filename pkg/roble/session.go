package roble

import (
	"context"
	"errors"
	"sync"
	"time"
)

// refreshFunc exchanges the current token for a fresh one over the wire.
type refreshFunc func(context.Context, Token) (Token, error)

// session owns the token state for one Client. It is created with the Client
// and cleared on logout or an unrecoverable refresh failure; it is never
// shared across Client instances.
type session struct {
	store tokenStore
	skew  time.Duration

	// refreshMu serializes refresh attempts so concurrent callers hitting an
	// expired token coalesce into a single in-flight refresh. Waiters
	// re-check the store after acquiring the lock and reuse the winner's
	// token instead of refreshing again.
	refreshMu sync.Mutex
}

func newSession(skew time.Duration) *session {
	if skew <= 0 {
		skew = DefaultTokenSkew
	}
	return &session{skew: skew}
}

// accessToken returns a usable access token, refreshing first when the
// stored one is expired. The second return reports whether a refresh was
// performed during this call, which bounds the dispatcher's retry budget.
func (s *session) accessToken(ctx context.Context, refresh refreshFunc) (string, bool, error) {
	tok, ok := s.store.get()
	if !ok {
		return "", false, &AuthError{Kind: AuthNotAuthenticated}
	}
	if tok.Valid(time.Now(), s.skew) {
		return tok.AccessToken, false, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have refreshed (or logged out) while we waited.
	tok, ok = s.store.get()
	if !ok {
		return "", false, &AuthError{Kind: AuthNotAuthenticated}
	}
	if tok.Valid(time.Now(), s.skew) {
		return tok.AccessToken, false, nil
	}

	fresh, err := s.doRefresh(ctx, tok, refresh)
	if err != nil {
		return "", false, err
	}
	return fresh.AccessToken, true, nil
}

// retryToken refreshes after the service rejected staleAccess with 401/403.
// If the stored token already differs from the rejected one, another caller
// refreshed in the meantime and its token is returned without a network call.
func (s *session) retryToken(ctx context.Context, staleAccess string, refresh refreshFunc) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	tok, ok := s.store.get()
	if !ok {
		return "", &AuthError{Kind: AuthNotAuthenticated}
	}
	if tok.AccessToken != staleAccess {
		return tok.AccessToken, nil
	}

	fresh, err := s.doRefresh(ctx, tok, refresh)
	if err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

// doRefresh runs the network refresh and commits the result. The store is
// only mutated on success, so a cancelled or failed refresh leaves the
// previous token in place; a rejected refresh tears the session down since
// re-authentication is the only way forward.
func (s *session) doRefresh(ctx context.Context, tok Token, refresh refreshFunc) (Token, error) {
	fresh, err := refresh(ctx, tok)
	if err != nil {
		if errors.Is(err, ErrRefreshRejected) {
			s.store.clear()
		}
		return Token{}, err
	}
	s.store.set(fresh)
	return fresh, nil
}

func (s *session) set(tok Token) { s.store.set(tok) }

func (s *session) clear() { s.store.clear() }

func (s *session) current() (Token, bool) { return s.store.get() }
