package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/safar/go-sql-shop/internal/config"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/service"
	"github.com/safar/go-sql-shop/migrations"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Database operations for the shop",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(directionCmd(migrations.Up, "Apply every migration"))
	rootCmd.AddCommand(directionCmd(migrations.Down, "Revert every migration, newest first"))
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB() (*sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return database.NewConnection(&cfg.Database)
}

func directionCmd(direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   direction,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := migrations.Run(cmd.Context(), db, direction)
			if err != nil {
				return err
			}

			log.Printf("Successfully ran %d migration(s) %s", n, direction)
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a user with the admin role",
		Long: `Create a user with the admin role. Admin users may manage the catalog,
list users and drive order status and payment updates over HTTP.

Example:
  migrate create-admin --email ops@example.com --name "Shop Ops"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := service.NewAccountService(db).CreateAdmin(cmd.Context(), email, name)
			if err != nil {
				return err
			}

			fmt.Printf("Created admin %s (id %d)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email address")
	cmd.Flags().StringVar(&name, "name", "", "admin display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
