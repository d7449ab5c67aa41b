package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"taskhub/internal/config"
	"taskhub/internal/repository"
)

var (
	version = "dev"
	dbFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "taskhub",
	Short: "Role-based project and task management API",
	Long: `taskhub serves a JSON API for projects, tasks, comments and notifications,
with visibility scoped by role (admin, manager, collaborator, client).`,
	SilenceUsage: true,
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "database DSN (overrides DATABASE_URL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(purgeCodesCmd)
}

// applyFlags lets command line flags win over the environment.
func applyFlags(cfg *config.Config) {
	if dbFlag != "" {
		cfg.DatabaseURL = dbFlag
	}
}

// openDB loads storage settings and opens the migrated database.
func openDB() (*gorm.DB, func(), error) {
	cfg, err := config.LoadStorage()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	applyFlags(&cfg)
	return connect(cfg)
}

func connect(cfg config.Config) (*gorm.DB, func(), error) {
	db, err := repository.NewDB(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	closeFn := func() {}
	if sqlDB, err := db.DB(); err == nil {
		closeFn = func() { sqlDB.Close() }
	}
	return db, closeFn, nil
}
