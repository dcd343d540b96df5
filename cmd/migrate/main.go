package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	migrateV4 "github.com/golang-migrate/migrate/v4"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/yourusername/vehicle-api/internal/config"
	"github.com/yourusername/vehicle-api/pkg/database"
)

var (
	configPath string
	sourceURL  string
)

// rootCmd: утилита управления схемой базы данных
var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the vehicle-api database schema",
	Long: `The 'migrate' command applies or reverts the SQL migrations in ./migrations:
  - up: apply all pending migrations
  - down N: revert the last N migrations
  - force V: mark version V as clean after a failed migration
  - version: print the current schema version`,
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrateV4.Migrate) error {
			err := m.Up()
			if errors.Is(err, migrateV4.ErrNoChange) {
				fmt.Println("No pending migrations.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			fmt.Println("Migrations applied.")
			return nil
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Revert the last N migrations (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}
		return withMigrator(func(m *migrateV4.Migrate) error {
			if err := m.Steps(-steps); err != nil && !errors.Is(err, migrateV4.ErrNoChange) {
				return fmt.Errorf("failed to revert migrations: %w", err)
			}
			fmt.Printf("Reverted %d migration(s).\n", steps)
			return nil
		})
	},
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Set the schema version without running migrations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return withMigrator(func(m *migrateV4.Migrate) error {
			if err := m.Force(version); err != nil {
				return fmt.Errorf("failed to force version %d: %w", version, err)
			}
			fmt.Printf("Schema version forced to %d.\n", version)
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migrateV4.Migrate) error {
			version, dirty, err := m.Version()
			if errors.Is(err, migrateV4.ErrNilVersion) {
				fmt.Println("No migrations applied.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			fmt.Printf("Version: %d (dirty: %t)\n", version, dirty)
			return nil
		})
	},
}

// withMigrator открывает соединение через lib/pq и передает migrate в fn
func withMigrator(fn func(m *migrateV4.Migrate) error) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.PostgresURL())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer sqlDB.Close()
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	m, err := database.NewMigrator(sqlDB, sourceURL)
	if err != nil {
		return err
	}
	return fn(m)
}

func main() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config/config.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "path to the config file")
	rootCmd.PersistentFlags().StringVar(&sourceURL, "source", database.DefaultMigrationsSource, "migrations source URL")
	rootCmd.AddCommand(upCmd, downCmd, forceCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Printf("[Migrate] %v", err)
		os.Exit(1)
	}
}
