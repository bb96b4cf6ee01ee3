// Command sequences-import loads drip sequence definitions from a YAML file
// into the database. Existing triggers are replaced.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"nurture_backend/internal/sequences"
	"nurture_backend/platform/db"
	"nurture_backend/platform/logger"

	"github.com/joho/godotenv"
)

type databaseURL string

func (u databaseURL) GetDatabaseURL() string { return string(u) }

func main() {
	_ = godotenv.Load()

	path := flag.String("file", "sequences.yaml", "YAML file with sequence definitions")
	dsn := flag.String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	dryRun := flag.Bool("dry-run", false, "validate the file without writing")
	flag.Parse()

	log := logger.New(os.Getenv("APP_ENV"))

	if err := run(context.Background(), log, *path, *dsn, *dryRun); err != nil {
		log.Error("sequence import failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, path, dsn string, dryRun bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	defs, err := sequences.Parse(f)
	if err != nil {
		return err
	}
	log.Info("sequence file valid", "file", path, "sequences", len(defs))
	if dryRun {
		return nil
	}

	if dsn == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := db.NewPool(ctx, databaseURL(dsn))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool); err != nil {
		return err
	}

	repo := sequences.NewRepository(pool)
	for _, def := range defs {
		if err := repo.Upsert(ctx, def); err != nil {
			return fmt.Errorf("upsert %s: %w", def.Trigger, err)
		}
		log.Info("sequence imported", "trigger", def.Trigger, "steps", len(def.Steps))
	}

	stored, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list stored sequences: %w", err)
	}
	for _, def := range stored {
		log.Info("sequence stored", "trigger", def.Trigger, "steps", len(def.Steps))
	}
	return nil
}
