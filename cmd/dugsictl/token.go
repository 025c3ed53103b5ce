package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/auth"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/models"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/tokens"
)

func newTokenCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Session token utilities",
	}
	cmd.AddCommand(newTokenIssueCmd(e))
	return cmd
}

// newTokenIssueCmd mints an access token signed with AUTH_SECRET. Intended
// for local development and smoke tests.
func newTokenIssueCmd(e *env) *cobra.Command {
	var (
		sub   string
		email string
		role  string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Print a signed access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if auth.ParseRole(role) == "" {
				return fmt.Errorf("unknown role %q (want superadmin, admin or student)", role)
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive")
			}
			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			tok, err := tokens.GenerateAccessToken(cfg, &models.User{Sub: sub, Email: email, Role: string(auth.ParseRole(role))}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "dev-user", "token subject")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", "student", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
