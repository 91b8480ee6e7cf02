package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"call-receptionist/internal/tenants"
)

func newTenantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Manage tenant configurations",
	}
	cmd.AddCommand(newTenantsImportCmd(a))
	cmd.AddCommand(newTenantsListCmd(a))
	return cmd
}

func newTenantsImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Upsert tenants from a YAML file, keyed by dialed number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			list, err := tenants.LoadYAML(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			repo := tenants.NewPostgresRepo(db)

			for _, t := range list {
				saved, err := repo.Upsert(cmd.Context(), t)
				if err != nil {
					return fmt.Errorf("upsert %s: %w", t.DialedNumber, err)
				}
				a.log.Info("tenant imported", "tenant_id", saved.ID, "dialed_number", saved.DialedNumber, "mode", saved.Mode)
			}
			return nil
		},
	}
}

func newTenantsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			list, err := tenants.NewPostgresRepo(db).List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNUMBER\tBUSINESS\tMODE\tACTIVE")
			for _, t := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", t.ID, t.DialedNumber, t.BusinessName, t.Mode, t.Active)
			}
			return w.Flush()
		},
	}
}
