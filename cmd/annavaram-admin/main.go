package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/annavaram/internal/database"
)

var databaseURL string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "annavaram-admin",
		Short:        "Operator tasks for the Annavaram storefront",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(promoteCmd())
	rootCmd.AddCommand(deactivateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := openDB(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var fullName, password string

	cmd := &cobra.Command{
		Use:   "create-admin [email]",
		Short: "Create a verified admin account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			user, err := createAdmin(cmd.Context(), db, args[0], fullName, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&fullName, "name", "n", "Administrator", "Full name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (min 8 characters)")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func promoteCmd() *cobra.Command {
	var demote bool

	cmd := &cobra.Command{
		Use:   "promote [email]",
		Short: "Grant the admin role to an existing account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			role, err := setRole(cmd.Context(), db, args[0], !demote)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], role)
			return nil
		},
	}

	cmd.Flags().BoolVar(&demote, "demote", false, "revoke the admin role instead")
	return cmd
}

func deactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate [email]",
		Short: "Disable an account and revoke its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			revoked, err := deactivate(cmd.Context(), db, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deactivated, %d session(s) revoked\n", args[0], revoked)
			return nil
		},
	}
}

func openDB() (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or --database-url is required")
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return database.Connect(databaseURL, logger)
}
