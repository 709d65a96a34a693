package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agro-herders-service/internal/auth"
	"agro-herders-service/internal/db"
	"agro-herders-service/internal/logger"
	"agro-herders-service/internal/repository"
	"agro-herders-service/internal/service"
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create an officer or admin account",
	Example: `  agroherders create-user --email officer@connexxion.gov --name "Officer One" --password secret123
  AGRO_NEW_USER_PASSWORD=secret123 agroherders create-user --email admin@connexxion.gov --name Admin --role admin`,
	RunE: runCreateUser,
}

func init() {
	rootCmd.AddCommand(createUserCmd)

	createUserCmd.Flags().String("email", "", "Login email")
	createUserCmd.Flags().String("name", "", "Full name")
	createUserCmd.Flags().String("password", "", "Password (or AGRO_NEW_USER_PASSWORD)")
	createUserCmd.Flags().String("role", service.RoleOfficer, "Role: officer or admin")
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	password := mustGetString(cmd, "password")
	if password == "" {
		password = os.Getenv("AGRO_NEW_USER_PASSWORD")
	}
	if password == "" {
		return errors.New("--password or AGRO_NEW_USER_PASSWORD is required")
	}

	gdb, err := db.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	users := repository.NewUserRepository(gdb, repository.Options{
		QueryTimeout: cfg.Store.QueryTimeout,
		MaxRetries:   cfg.Store.MaxRetries,
	})
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(users, tokens, nil, log, nil)

	user, err := authService.CreateUser(cmd.Context(),
		mustGetString(cmd, "email"), password, mustGetString(cmd, "name"), mustGetString(cmd, "role"))
	if err != nil {
		return err
	}
	fmt.Printf("Created %s %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
