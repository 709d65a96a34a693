package main

import (
	"github.com/spf13/cobra"

	"agro-herders-service/internal/db"
	"agro-herders-service/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	gdb, err := db.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	return db.Migrate(gdb, log)
}
