package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bol-invoice-api/internal/config"
	"bol-invoice-api/internal/database"
	"bol-invoice-api/internal/repositories/sqlite"
)

var (
	dbPath  string
	verbose bool
	logger  = logrus.New()
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the invoice database schema and reference data",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}
		},
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "", "Database file path (defaults to DB_PATH)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withManager(func(ctx context.Context, m *database.Manager, _ []string) error {
				return m.MigrationManager().RunMigrations()
			}),
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (one step by default)",
			Args:  cobra.MaximumNArgs(1),
			RunE: withManager(func(ctx context.Context, m *database.Manager, args []string) error {
				steps := 1
				if len(args) == 1 {
					parsed, err := strconv.Atoi(args[0])
					if err != nil || parsed < 1 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[0])
					}
					steps = parsed
				}
				return m.MigrationManager().RollbackMigration(steps)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied schema version",
			Args:  cobra.NoArgs,
			RunE: withManager(func(ctx context.Context, m *database.Manager, _ []string) error {
				info, err := m.MigrationManager().GetMigrationStatus()
				if err != nil {
					return err
				}
				fmt.Printf("Version: %d\nApplied: %t\nDirty: %t\n", info.Version, info.Applied, info.Dirty)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Mark the schema as VERSION without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withManager(func(ctx context.Context, m *database.Manager, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("version must be an integer, got %q", args[0])
				}
				return m.MigrationManager().ForceVersion(version)
			}),
		},
		&cobra.Command{
			Use:   "seed-vat-rules",
			Short: "Insert the bundled EU VAT rules when the table is empty",
			Args:  cobra.NoArgs,
			RunE: withManager(func(ctx context.Context, m *database.Manager, _ []string) error {
				if err := m.MigrationManager().RunMigrations(); err != nil {
					return err
				}
				inserted, err := database.SeedVatRules(ctx, sqlite.NewRepositoryContainer(m.GetDB(), logger), logger)
				if err != nil {
					return err
				}
				fmt.Printf("Inserted %d VAT rules\n", inserted)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "backup PATH",
			Short: "Write a consistent copy of the database to PATH",
			Args:  cobra.ExactArgs(1),
			RunE: withManager(func(ctx context.Context, m *database.Manager, args []string) error {
				return m.CreateBackup(ctx, args[0])
			}),
		},
	)

	return root
}

// withManager connects to the configured database without auto-migrating and runs fn
func withManager(fn func(ctx context.Context, m *database.Manager, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}

		connConfig := cfg.Database.ToConnectionConfig(logger)
		connConfig.AutoMigrate = false

		logger.WithFields(logrus.Fields{
			"db_path": connConfig.DatabasePath,
			"command": cmd.Name(),
		}).Info("Starting migration tool")

		manager := database.NewManager(connConfig)
		if err := manager.Connect(cmd.Context()); err != nil {
			return err
		}
		defer manager.Close()

		return fn(cmd.Context(), manager, args)
	}
}
