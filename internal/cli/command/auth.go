package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/openlab-dev/roble-go/pkg/roble"
)

// AuthCommand returns the auth subcommand group.
func AuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication and sessions",
		Subcommands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Log in with email and password and print the session tokens",
				Action: authLogin,
			},
			{
				Name:  "signup",
				Usage: "Create an account with direct activation",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Display name for the new account",
						Required: true,
					},
				},
				Action: authSignup,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the configured refresh token for fresh tokens",
				Action: authRefresh,
			},
			{
				Name:   "tokens",
				Usage:  "Show the configured tokens and their derived expiry",
				Action: authTokens,
			},
			{
				Name:   "logout",
				Usage:  "Invalidate the session on the server",
				Action: authLogout,
			},
		},
	}
}

func authLogin(c *cli.Context) error {
	client, cfg, err := newClient(c)
	if err != nil {
		return err
	}
	if cfg.Email == "" || cfg.Password == "" {
		return fmt.Errorf("login requires --email and --password")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	creds := roble.Credentials{Email: cfg.Email, Password: cfg.Password}
	if err := client.Authenticate(ctx, creds); err != nil {
		return err
	}

	tok, _ := client.Tokens()
	return render(c, tokenView(tok))
}

func authSignup(c *cli.Context) error {
	client, cfg, err := newClient(c)
	if err != nil {
		return err
	}
	if cfg.Email == "" || cfg.Password == "" {
		return fmt.Errorf("signup requires --email and --password")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := client.Signup(ctx, cfg.Email, cfg.Password, c.String("name")); err != nil {
		return err
	}

	fmt.Printf("Account %s created.\n", cfg.Email)
	return nil
}

func authRefresh(c *cli.Context) error {
	client, cfg, err := newClient(c)
	if err != nil {
		return err
	}
	if cfg.RefreshToken == "" {
		return fmt.Errorf("refresh requires --refresh-token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := client.AuthenticateWithRefreshToken(ctx, cfg.RefreshToken); err != nil {
		return err
	}

	tok, _ := client.Tokens()
	return render(c, tokenView(tok))
}

func authTokens(c *cli.Context) error {
	client, cfg, err := newClient(c)
	if err != nil {
		return err
	}
	if cfg.AccessToken == "" {
		return fmt.Errorf("tokens requires --access-token")
	}

	client.RestoreSession(cfg.AccessToken, cfg.RefreshToken)
	tok, _ := client.Tokens()
	return render(c, tokenView(tok))
}

func authLogout(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := authenticatedClient(ctx, c)
	if err != nil {
		return err
	}

	client.Logout(ctx)
	fmt.Println("Session closed.")
	return nil
}

// tokenView flattens a token for display. Expiry comes from the access
// token's own claims, so it is worth surfacing next to the raw strings.
func tokenView(tok roble.Token) map[string]any {
	return map[string]any{
		"access_token":  tok.AccessToken,
		"refresh_token": tok.RefreshToken,
		"expires_at":    tok.ExpiresAt.Format(time.RFC3339),
	}
}
