package cmd

import (
	"context"
	"log"

	"github.com/frahmantamala/shopbot-engine/internal/core/datamodel"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations directory",
	}
	migrateRollback bool
	migrateAuto     bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.Flags().BoolVar(&migrateAuto, "auto", false, "sync the schema from the gorm models instead of sql files (local development only)")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	if migrateAuto {
		db, gdb, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("auto migrate: %v", err)
		}
		defer db.Close()

		if err := gdb.WithContext(ctx).AutoMigrate(datamodel.Models()...); err != nil {
			log.Fatalf("auto migrate: %v", err)
		}
		log.Println("auto migrate complete")
		return nil
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		log.Fatalf("goose: failed to open DB: %v\n", err)
	}
	defer db.Close()
	goose.SetTableName("schema_migrations")

	command := "up"
	if migrateRollback {
		command = "down"
	}

	if err := goose.RunContext(ctx, command, db, migrateDir); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}

	return nil
}
