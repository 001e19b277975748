// Package command provides CLI command definitions for the roble tool.
//
// It uses urfave/cli/v2 for command parsing. Flags override environment
// variables, which override the optional config file.
package command

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/openlab-dev/roble-go/internal/cli/config"
	"github.com/openlab-dev/roble-go/internal/cli/output"
	"github.com/openlab-dev/roble-go/pkg/roble"
	"github.com/openlab-dev/roble-go/pkg/slogx"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "roble",
		Usage:   "Roble backend command-line client",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			AuthCommand(),
			DataCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML config file",
			EnvVars: []string{"ROBLE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Roble backend base URL (e.g., https://roble.openlab.uninorte.edu.co)",
			EnvVars: []string{"ROBLE_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "project",
			Aliases: []string{"p"},
			Usage:   "Roble project identifier",
			EnvVars: []string{"ROBLE_PROJECT"},
		},
		&cli.StringFlag{
			Name:    "email",
			Usage:   "Account email for credential login",
			EnvVars: []string{"ROBLE_EMAIL"},
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "Account password for credential login",
			EnvVars: []string{"ROBLE_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "access-token",
			Usage:   "Access token to restore a session without logging in",
			EnvVars: []string{"ROBLE_ACCESS_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "refresh-token",
			Usage:   "Refresh token paired with --access-token",
			EnvVars: []string{"ROBLE_REFRESH_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging of HTTP requests",
		},
	}
}

// resolveConfig merges CLI flags on top of the file/env configuration.
func resolveConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	if v := c.String("base-url"); v != "" {
		cfg.BaseURL = v
	}
	if v := c.String("project"); v != "" {
		cfg.Project = v
	}
	if v := c.String("email"); v != "" {
		cfg.Email = v
	}
	if v := c.String("password"); v != "" {
		cfg.Password = v
	}
	if v := c.String("access-token"); v != "" {
		cfg.AccessToken = v
	}
	if v := c.String("refresh-token"); v != "" {
		cfg.RefreshToken = v
	}
	if c.Bool("verbose") {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newClient builds a roble client from the resolved configuration. No
// session is established yet.
func newClient(c *cli.Context) (*roble.Client, config.Config, error) {
	cfg, err := resolveConfig(c)
	if err != nil {
		return nil, config.Config{}, err
	}

	log := slogx.New(slogx.Config{
		Service: "roble-cli",
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	client, err := roble.New(roble.Config{
		BaseURL:   cfg.BaseURL,
		Project:   cfg.Project,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		Logger:    log,
	})
	if err != nil {
		return nil, config.Config{}, err
	}
	return client, cfg, nil
}

// authenticatedClient builds a client with a live session, preferring
// restored tokens over a credential login.
func authenticatedClient(ctx context.Context, c *cli.Context) (*roble.Client, error) {
	client, cfg, err := newClient(c)
	if err != nil {
		return nil, err
	}

	switch {
	case cfg.AccessToken != "":
		client.RestoreSession(cfg.AccessToken, cfg.RefreshToken)
	case cfg.Email != "" && cfg.Password != "":
		creds := roble.Credentials{Email: cfg.Email, Password: cfg.Password}
		if err := client.Authenticate(ctx, creds); err != nil {
			return nil, fmt.Errorf("login failed: %w", err)
		}
	default:
		return nil, fmt.Errorf("no credentials: set --email/--password or --access-token")
	}
	return client, nil
}

// formatter returns the output formatter selected by --output.
func formatter(c *cli.Context) output.Formatter {
	return output.NewFormatter(output.Format(c.String("output")))
}

// render writes data to stdout with the selected formatter.
func render(c *cli.Context, data any) error {
	return formatter(c).Format(os.Stdout, data)
}

// recordRows converts service records into the formatter's row type.
func recordRows(records []roble.Record) []map[string]any {
	rows := make([]map[string]any, len(records))
	for i, rec := range records {
		rows[i] = rec
	}
	return rows
}
