package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"promptvault/internal/middleware"
)

func newTokenCommand() *cobra.Command {
	var (
		secret  string
		subject string
		scope   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(secret) == "" {
				return errors.New("a signing secret is required (--secret or JWT_SECRET)")
			}
			if strings.TrimSpace(subject) == "" {
				return errors.New("--sub must not be empty")
			}
			now := time.Now()
			claims := middleware.TokenClaims{
				Sub:      subject,
				Scope:    scope,
				IssuedAt: now.Unix(),
				Issuer:   "promptctl",
			}
			if ttl > 0 {
				claims.Exp = now.Add(ttl).Unix()
			}
			token, err := middleware.SignJWT(secret, claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret")
	cmd.Flags().StringVar(&subject, "sub", "dev", "Token subject")
	cmd.Flags().StringVar(&scope, "scope", "prompts", "Token scope claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime; 0 never expires")
	return cmd
}
