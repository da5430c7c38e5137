// Command migrate runs schema operations for the claims database.
//
//	migrate up            apply pending SQL migrations
//	migrate auto          run GORM AutoMigrate regardless of DB_SCHEMA_MODE
//	migrate status        print the schema policy and pending migrations
//	migrate verify        fail if a model table or column is missing
//	migrate down VERSION  roll back one migration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"claimpro/internal/config"
	"claimpro/internal/database"

	"gorm.io/gorm"
)

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":     migrateUp,
	"auto":   migrateAuto,
	"status": migrateStatus,
	"verify": migrateVerify,
	"down":   migrateDown,
}

var errUsage = errors.New("usage: migrate <up|auto|status|verify|down> [version]")

func main() {
	flag.Parse()
	if err := run(context.Background(), flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[strings.ToLower(strings.TrimSpace(args[0]))]
	if !ok {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	return cmd(ctx, db, cfg, args[1:])
}

func migrateUp(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("sql migrations: %w", err)
	}
	version, err := database.LatestAppliedVersion(ctx, db)
	if err != nil {
		return err
	}
	log.Printf("schema at version %d", version)
	return nil
}

func migrateAuto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Println("automigrate complete")
	return nil
}

func migrateStatus(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status: %w", err)
	}
	log.Printf("driver=%s env=%s mode=%s sql=%t auto=%t applied=%v",
		status.Driver, status.Environment, status.Mode,
		status.WillRunSQL, status.WillRunAutoMigrate, status.AppliedVersions)
	for _, m := range status.PendingMigrations {
		log.Printf("pending %s", m.String())
	}
	return nil
}

func migrateVerify(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	missing, err := database.VerifySchema(ctx, db)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema is missing: %s", strings.Join(missing, ", "))
	}
	log.Println("schema matches models")
	return nil
}

func migrateDown(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("rollback %d: %w", version, err)
	}
	log.Printf("rolled back migration %d", version)
	return nil
}
