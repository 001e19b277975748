package roble

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/openlab-dev/roble-go/pkg/slogx"
)

const (
	// DefaultTimeout bounds each HTTP call unless the config overrides it.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of refresh-and-resend cycles allowed
	// after the service rejects a token mid-call. Values above one are
	// capped; the dispatcher never loops.
	DefaultMaxRetries = 1
)

// Config describes a Roble deployment and how the client talks to it.
type Config struct {
	// BaseURL is the service root, e.g. "https://roble.example.com".
	BaseURL string

	// Project scopes every request; auth endpoints live under
	// /auth/{project} and database endpoints under /database/{project}.
	Project string

	// TokenSkew is the margin before expiry at which a token is treated as
	// expired. Defaults to DefaultTokenSkew.
	TokenSkew time.Duration

	// Timeout bounds each HTTP call. Defaults to DefaultTimeout.
	Timeout time.Duration

	// MaxRetries caps refresh-and-resend cycles per dispatch. Zero means
	// DefaultMaxRetries; a negative value disables the resend entirely.
	// Values above one are capped, the dispatcher never loops.
	MaxRetries int

	// RateLimit caps outgoing requests per second; zero means unlimited.
	RateLimit float64

	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper

	// Logger receives session and request events. Defaults to a discard
	// logger so the library stays quiet unless asked.
	Logger *slog.Logger
}

// Client is the user-facing entry point. It owns exactly one session and is
// safe for concurrent use across many calls.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger

	limiter *rate.Limiter
	sess    *session
}

// New validates cfg, applies defaults and returns a Client with an empty
// session. Call Authenticate (or RestoreSession) before dispatching requests.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("roble: config BaseURL is required")
	}
	if cfg.Project == "" {
		return nil, errors.New("roble: config Project is required")
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	case cfg.MaxRetries > 1:
		cfg.MaxRetries = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slogx.Discard()
	}

	c := &Client{
		cfg: cfg,
		log: cfg.Logger,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &slogx.Transport{
				Base:   cfg.Transport,
				Logger: cfg.Logger,
			},
		},
		sess: newSession(cfg.TokenSkew),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c, nil
}

// Tokens returns a snapshot of the current session token. The second return
// is false when no session exists.
func (c *Client) Tokens() (Token, bool) {
	return c.sess.current()
}

// RestoreSession seeds the session from previously obtained tokens, e.g.
// tokens exported by an earlier process. The access token's lifetime is
// re-derived from its claims, so an already-expired token simply triggers a
// refresh on the next dispatch.
func (c *Client) RestoreSession(accessToken, refreshToken string) {
	c.sess.set(newToken(accessToken, refreshToken, time.Now()))
}

func (c *Client) authPath(op string) string {
	return "/auth/" + c.cfg.Project + "/" + op
}

func (c *Client) databasePath(op string) string {
	return "/database/" + c.cfg.Project + "/" + op
}
