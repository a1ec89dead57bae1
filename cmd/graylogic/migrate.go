package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/database"
)

// runMigrate manages the device schema without starting the service:
//
//	graylogic migrate           apply pending migrations
//	graylogic migrate -down     roll back the latest migration
//	graylogic migrate -status   list applied and pending versions
func runMigrate(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(out)
	down := fs.Bool("down", false, "roll back the most recent migration")
	status := fs.Bool("status", false, "print applied and pending migrations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *down && *status {
		return fmt.Errorf("-down and -status cannot be combined")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // process exits next

	switch {
	case *status:
		return printMigrationStatus(ctx, db, out)
	case *down:
		err = db.MigrateDown(ctx)
	default:
		err = db.Migrate(ctx)
	}
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	fmt.Fprintf(out, "schema version: %s\n", versionOrNone(version)) //nolint:errcheck // best-effort CLI output
	return nil
}

func printMigrationStatus(ctx context.Context, db *database.DB, out io.Writer) error {
	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	for _, r := range applied {
		fmt.Fprintf(out, "applied  %s  %s\n", r.Version, r.AppliedAt.Format("2006-01-02 15:04:05")) //nolint:errcheck // best-effort CLI output
	}
	for _, m := range pending {
		fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name) //nolint:errcheck // best-effort CLI output
	}
	return nil
}

func versionOrNone(version string) string {
	if version == "" {
		return "none"
	}
	return version
}
