// Package config loads CLI configuration for connecting to a Roble
// deployment. Sources, later overriding earlier: defaults, an optional YAML
// file, then ROBLE_* environment variables. CLI flags override everything
// and are merged by the command layer.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the environment variable prefix, e.g. ROBLE_BASE_URL.
const EnvPrefix = "ROBLE_"

// Config holds everything the CLI needs to build a client and authenticate.
type Config struct {
	BaseURL string `koanf:"base_url"`
	Project string `koanf:"project"`

	// Credential login.
	Email    string `koanf:"email"`
	Password string `koanf:"password"`

	// Token-based session restore, for scripting without stored passwords.
	AccessToken  string `koanf:"access_token"`
	RefreshToken string `koanf:"refresh_token"`

	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

// Defaults returns the baseline configuration before any source is applied.
func Defaults() Config {
	return Config{
		Timeout:   30 * time.Second,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads the optional YAML file at path (empty means no file) and the
// environment on top of Defaults.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// ROBLE_BASE_URL -> base_url; keys are flat, so underscores survive.
	transform := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
