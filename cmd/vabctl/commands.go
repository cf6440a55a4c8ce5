package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"vabboost/internal/database"
	"vabboost/internal/domain"
	"vabboost/internal/pkg/logger"
	"vabboost/internal/repository"
)

const minPasswordLen = 8

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	var (
		username string
		password string
		update   bool
	)
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an operator account",
		Long: `Create an operator account for the admin API.

With --update an existing account gets the new password instead.

Examples:
  vabctl seed-admin --username root --password 'long-secret'
  vabctl seed-admin --username root --password 'rotated' --update`,
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			if username == "" {
				return errors.New("--username is required")
			}
			hash, err := hashPassword(password)
			if err != nil {
				return err
			}

			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			admins := repository.NewAdminRepository(db)

			err = admins.Create(cmd.Context(), &domain.Admin{Username: username, PasswordHash: hash, IsActive: true})
			switch {
			case err == nil:
				fmt.Fprintf(cmd.OutOrStdout(), "admin %q created\n", username)
				return nil
			case errors.Is(err, repository.ErrDuplicateAdminUsername) && update:
				if err := admins.UpdatePassword(cmd.Context(), username, hash); err != nil {
					return fmt.Errorf("update password: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %q password updated\n", username)
				return nil
			case errors.Is(err, repository.ErrDuplicateAdminUsername):
				return fmt.Errorf("admin %q already exists (use --update to reset the password)", username)
			default:
				return fmt.Errorf("create admin: %w", err)
			}
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "operator login")
	cmd.Flags().StringVar(&password, "password", "", "operator password")
	cmd.Flags().BoolVar(&update, "update", false, "reset the password if the account exists")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for manual provisioning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := hashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func openDB(cmd *cobra.Command) (*gorm.DB, error) {
	dsn, _ := cmd.Flags().GetString("database-url")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	logger.Init(os.Getenv("LOG_LEVEL"), true)
	db, err := database.Connect(dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return db, nil
}
