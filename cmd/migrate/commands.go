package main

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/garage-erp/backend/internal/infrastructure/migration"
	"github.com/garage-erp/backend/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migration.Migrator) error {
			return m.Up()
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down [n]",
	Short: "Roll back the last n migrations, or all of them",
	Example: `  # Roll back the last migration
  migrate down 1`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 0
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v <= 0 {
				return fmt.Errorf("step count must be a positive integer, got %q", args[0])
			}
			n = v
		}
		return withMigrator(func(m *migration.Migrator) error {
			return m.Down(n)
		})
	},
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate up or down to a specific version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[0])
		}
		return withMigrator(func(m *migration.Migrator) error {
			return m.GoTo(uint(version))
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current migration version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *migration.Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if version == 0 {
				log.Info("No migrations applied")
				return nil
			}
			log.Info("Current migration version",
				zap.Uint("version", version),
				zap.Bool("dirty", dirty),
			)
			return nil
		})
	},
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Set the version without running migrations, clearing the dirty flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[0])
		}
		log.Warn("Forcing migration version", zap.Int("version", version))
		return withMigrator(func(m *migration.Migrator) error {
			return m.Force(version)
		})
	},
}

var createCmd = &cobra.Command{
	Use:     "create <name> [description]",
	Short:   "Create a new numbered up/down migration pair",
	Example: `  migrate create add_vehicle_plates "Vehicle plate numbers on documents"`,
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := migrationsPath
		if dir == "" {
			dir = "migrations"
		}
		description := ""
		if len(args) == 2 {
			description = args[1]
		}
		mf, err := migration.CreateMigration(dir, args[0], description)
		if err != nil {
			return err
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		found, err := migration.ListMigrations(source())
		if err != nil {
			return err
		}
		if len(found) == 0 {
			log.Info("No migrations found")
			return nil
		}
		for _, m := range found {
			fmt.Fprintf(cmd.OutOrStdout(), "  %06d  %-40s up=%t down=%t\n", m.Version, m.Name, m.HasUp, m.HasDown)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every migration has both directions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := migration.Validate(source()); err != nil {
			return err
		}
		log.Info("Migrations are valid")
		return nil
	},
}

func source() fs.FS {
	if migrationsPath != "" {
		return os.DirFS(migrationsPath)
	}
	return migrations.FS
}

func init() {
	rootCmd.AddCommand(upCmd, downCmd, gotoCmd, versionCmd, forceCmd, createCmd, listCmd, validateCmd)
}
