package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	seedEmail    string
	seedPassword string
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the admin account if none exists",
	Long: `Create the first admin account. Admins cannot self-register through the API.

Flags override SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := openContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer container.Close()
		defer container.Logger.Sync() //nolint:errcheck

		email := container.Config.Auth.SeedAdminEmail
		if seedEmail != "" {
			email = seedEmail
		}
		password := container.Config.Auth.SeedAdminPassword
		if seedPassword != "" {
			password = seedPassword
		}

		admin, created, err := container.Auth.SeedAdmin(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(cmd.OutOrStdout(), "admin already exists: %s\n", admin.Email)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", admin.Email, admin.ID)
		return nil
	},
}

func init() {
	seedAdminCmd.Flags().StringVar(&seedEmail, "email", "", "Admin email")
	seedAdminCmd.Flags().StringVar(&seedPassword, "password", "", "Admin password")
	rootCmd.AddCommand(seedAdminCmd)
}
