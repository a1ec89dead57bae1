package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/nerrad567/gray-logic-devices/internal/auth"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/config"
)

// runToken mints an access token signed with the configured secret, for
// provisioning panels and admin tools:
//
//	graylogic token -subject kitchen-panel -role user
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	subject := fs.String("subject", "", "token subject (required)")
	role := fs.String("role", string(auth.RoleUser), "role: user or admin")
	ttl := fs.Int("ttl", 0, "lifetime in minutes (default security.jwt.access_token_ttl)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("-subject is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	minutes := cfg.Security.JWT.AccessTokenTTL
	if *ttl > 0 {
		minutes = *ttl
	}
	token, err := auth.GenerateAccessToken(*subject, auth.Role(*role), cfg.Security.JWT.Secret, minutes)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Fprintln(out, token) //nolint:errcheck // best-effort CLI output
	return nil
}
