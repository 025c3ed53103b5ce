package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/users"
)

func newSuperadminCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "superadmin",
		Short: "Manage superadmin accounts",
	}
	cmd.AddCommand(newSuperadminCreateCmd(e))
	return cmd
}

func newSuperadminCreateCmd(e *env) *cobra.Command {
	var (
		email         string
		password      string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a superadmin, or promote an existing account and reset its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("--email is required")
			}
			if passwordStdin {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = strings.TrimSpace(string(b))
			}
			if password == "" {
				return fmt.Errorf("--password or --password-stdin is required")
			}

			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			repo, closeFn, err := e.openUsers(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			u, created, err := users.NewService(repo).EnsureSuperadmin(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			verb := "promoted"
			if created {
				verb = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s superadmin %s (sub %s)\n", verb, u.Email, u.Sub)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", os.Getenv("SUPERADMIN_PASSWORD"), "account password (min 8 characters)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	return cmd
}
