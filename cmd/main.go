package main

import (
	"context"
	"fmt"
	"os"

	"clinic-appointment-service/cmd/bootstrap"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-appointment-service",
		Short: "Clinic doctor availability and appointment booking API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")

			ctx := context.Background()

			// Initialize application with all dependencies
			app, err := bootstrap.New(ctx, bootstrap.Options{Migrate: migrate})
			if err != nil {
				logrus.Errorf("Failed to initialize application: %v", err)
				return err
			}

			// Run the application
			app.Run(ctx)
			return nil
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closeDB, err := bootstrap.NewMigrator()
			if err != nil {
				return err
			}
			defer closeDB()

			return migrator.Up()
		},
	})

	// migrate down
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration(s)",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")

			migrator, closeDB, err := bootstrap.NewMigrator()
			if err != nil {
				return err
			}
			defer closeDB()

			return migrator.Down(steps)
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(downCmd)

	// migrate version
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closeDB, err := bootstrap.NewMigrator()
			if err != nil {
				return err
			}
			defer closeDB()

			version, dirty, err := migrator.Version()
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			fmt.Printf("version=%d dirty=%t\n", version, dirty)
			return nil
		},
	})

	return cmd
}
