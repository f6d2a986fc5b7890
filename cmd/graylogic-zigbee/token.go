package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/auth"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/config"
)

// runToken implements "graylogic-zigbee token": it signs an access token
// with the configured JWT secret and prints it.
//
// There is no user database; operators mint tokens for installers and
// tooling from the gateway host.
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	subject := fs.String("subject", "", "token subject, recorded in the audit trail")
	role := fs.String("role", string(auth.RoleViewer), "viewer, installer or owner")
	ttl := fs.Duration("ttl", 0, "token lifetime (default security.jwt.access_token_ttl)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *subject == "" {
		return errors.New("-subject is required")
	}
	r := auth.Role(*role)
	if !auth.IsValidRole(r) {
		return fmt.Errorf("unknown role %q", *role)
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Security.JWT.Secret == "" {
		return errors.New("security.jwt.secret is not set; API authentication is disabled")
	}

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
	}

	token, err := auth.GenerateAccessToken(*subject, r, cfg.Security.JWT.Secret, lifetime)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
