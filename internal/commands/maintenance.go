package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskhub/internal/config"
	"taskhub/internal/mailer"
	"taskhub/internal/repository"
	"taskhub/internal/service"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// NewDB migrates on open.
		_, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Schema is up to date.")
		return nil
	},
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		first, _ := cmd.Flags().GetString("first-name")
		last, _ := cmd.Flags().GetString("last-name")

		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()

		users := service.NewUserService(repository.NewUserRepository(db))
		u, err := users.CreateAdmin(cmd.Context(), service.NewUser{
			Email:     email,
			Password:  password,
			FirstName: first,
			LastName:  last,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "👤 Created admin #%d: %s\n", u.ID, u.Email)
		return nil
	},
}

var purgeCodesCmd = &cobra.Command{
	Use:   "purge-codes",
	Short: "Delete used and expired password reset codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadStorage()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		applyFlags(&cfg)
		db, closeDB, err := connect(cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		resets := service.NewPasswordResetService(
			repository.NewUserRepository(db),
			repository.NewResetCodeRepository(db),
			mailer.Log{},
			service.NewActivityService(repository.NewActivityRepository(db)),
			cfg.ResetCodeTTL,
			service.UTC,
		)
		n, err := resets.Purge(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🗑 Removed %d reset codes.\n", n)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().String("email", "", "admin email (required)")
	createAdminCmd.Flags().String("password", "", "admin password, at least 8 characters (required)")
	createAdminCmd.Flags().String("first-name", "", "first name")
	createAdminCmd.Flags().String("last-name", "", "last name")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}
