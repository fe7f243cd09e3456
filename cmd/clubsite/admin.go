package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warpclub/clubsite"
)

func (c *cli) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(c.adminCreateCmd())
	return cmd
}

func (c *cli) adminCreateCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		Long: `create adds an admin account. Email and password default to
admin_email and admin_password from the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				email = c.cfg.AdminEmail
			}
			if password == "" {
				password = c.cfg.AdminPassword
			}
			if email == "" {
				return errors.New("an email is required (--email or admin_email)")
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer store.Close()

			created, err := clubsite.EnsureAdmin(ctx, store, email, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s\n", email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s already exists\n", email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (at least 6 characters)")
	return cmd
}
