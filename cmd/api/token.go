package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"call-receptionist/internal/auth"
	"call-receptionist/internal/rbac"
)

func newTokenCmd(a *app) *cobra.Command {
	var userID, tenantID, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator API access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rbac.IsKnownRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			if tenantID == "" {
				return errors.New("--tenant is required")
			}
			m, err := auth.NewManager(a.cfg.Auth)
			if err != nil {
				return err
			}
			tok, err := m.Issue(time.Now(), userID, tenantID, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "operator", "user id claim")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id the token is scoped to")
	cmd.Flags().StringVar(&role, "role", rbac.RoleOwner, "role: owner, staff or super_admin")
	return cmd
}
