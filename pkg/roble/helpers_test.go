package roble_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/openlab-dev/roble-go/pkg/roble"
	"github.com/openlab-dev/roble-go/pkg/slogx"
)

const (
	testProject  = "proj_test"
	testEmail    = "user@example.com"
	testPassword = "secret"
)

// signedJWT returns an HS256 token whose exp claim lies ttl from now. The
// client only reads the unverified claims, so any signing key works.
func signedJWT(t *testing.T, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

// fakeService emulates the Roble auth and database endpoints and counts
// every network call so tests can assert the dispatcher's retry bounds.
type fakeService struct {
	t *testing.T

	mu           sync.Mutex
	loginCalls   int
	refreshCalls int
	logoutCalls  int
	dataCalls    int

	accessTTL     time.Duration // lifetime of issued access tokens
	omitRefresh   bool          // login response carries no refresh token
	rejectRefresh bool          // refresh endpoint answers 400
	rejectData    bool          // database endpoints answer 401 regardless of token
	failData      bool          // database endpoints answer 500
	bareInsert    bool          // insert confirms without a row list
	refreshDelay  time.Duration // simulated refresh latency

	validAccess map[string]bool // access tokens the database endpoints accept

	lastMethod string
	lastQuery  url.Values
	lastBody   map[string]any

	readRows []map[string]any

	srv *httptest.Server
}

func newFakeService(t *testing.T) *fakeService {
	f := &fakeService{
		t:           t,
		accessTTL:   time.Minute,
		validAccess: make(map[string]bool),
		readRows: []map[string]any{
			{"_id": "p1", "name": "Widget", "quantity": float64(3)},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/"+testProject+"/login", f.handleLogin)
	mux.HandleFunc("/auth/"+testProject+"/refresh-token", f.handleRefresh)
	mux.HandleFunc("/auth/"+testProject+"/signup-direct", f.handleSignup)
	mux.HandleFunc("/auth/"+testProject+"/logout", f.handleLogout)
	mux.HandleFunc("/database/"+testProject+"/", f.handleData)

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// client builds a Client against the fake service.
func (f *fakeService) client(t *testing.T) *roble.Client {
	t.Helper()

	c, err := roble.New(roble.Config{
		BaseURL: f.srv.URL,
		Project: testProject,
		Logger:  slogx.Discard(),
	})
	require.NoError(t, err)
	return c
}

// login authenticates the client against the fake, failing the test on error.
func (f *fakeService) login(t *testing.T, c *roble.Client) {
	t.Helper()
	require.NoError(t, c.Authenticate(context.Background(), roble.Credentials{
		Email:    testEmail,
		Password: testPassword,
	}))
}

// issue mints an access token the database endpoints will accept.
func (f *fakeService) issue() string {
	access := signedJWT(f.t, f.accessTTL)
	f.validAccess[access] = true
	return access
}

// setAccessTTL changes the lifetime of subsequently issued tokens.
func (f *fakeService) setAccessTTL(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessTTL = d
}

// set mutates fake behavior flags under the lock so flag flips between
// requests never race with in-flight handlers.
func (f *fakeService) set(mutate func(*fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mutate(f)
}

// invalidateAll makes the database endpoints reject every token issued so
// far, as if the server revoked them.
func (f *fakeService) invalidateAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validAccess = make(map[string]bool)
}

func (f *fakeService) counts() (login, refresh, data int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.refreshCalls, f.dataCalls
}

func (f *fakeService) logouts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutCalls
}

func (f *fakeService) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.loginCalls++
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&creds)

	if creds.Email != testEmail || creds.Password != testPassword {
		f.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid email or password"})
		return
	}

	body := map[string]any{"accessToken": f.issue()}
	if !f.omitRefresh {
		body["refreshToken"] = "refresh-1"
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, body)
}

func (f *fakeService) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.refreshCalls++
	delay := f.refreshDelay
	reject := f.rejectRefresh
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	if reject || body.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid refresh token"})
		return
	}

	f.mu.Lock()
	access := f.issue()
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{
		"accessToken":  access,
		"refreshToken": "refresh-2",
	})
}

func (f *fakeService) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	if body.Email == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": []string{"email must not be empty", "password must not be empty"},
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "user created"})
}

func (f *fakeService) handleLogout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.logoutCalls++
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

func (f *fakeService) handleData(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.dataCalls++

	if f.failData {
		f.mu.Unlock()
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "internal server error"})
		return
	}

	access, ok := bearer(r)
	if f.rejectData || !ok || !f.validAccess[access] {
		f.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid or expired token"})
		return
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.lastMethod = r.Method
	f.lastQuery = r.URL.Query()
	f.lastBody = body
	rows := f.readRows
	bare := f.bareInsert
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/database/"+testProject+"/read":
		writeJSON(w, http.StatusOK, rows)
	case r.URL.Path == "/database/"+testProject+"/insert":
		if bare {
			writeJSON(w, http.StatusCreated, "created")
			return
		}
		records, _ := body["records"].([]any)
		inserted := make([]any, 0, len(records))
		for i, rec := range records {
			m, _ := rec.(map[string]any)
			m["_id"] = "generated-" + string(rune('a'+i))
			inserted = append(inserted, m)
		}
		writeJSON(w, http.StatusCreated, map[string]any{"inserted": inserted, "skipped": []any{}})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"message": "ok"})
	}
}

func bearer(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return "", false
	}
	return h[len(prefix):], true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
