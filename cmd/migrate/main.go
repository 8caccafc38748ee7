package main

import (
	"flag"
	"fmt"

	"ms-engagement/internal/config"
	"ms-engagement/internal/database"
	"ms-engagement/internal/database/migrations"
	"ms-engagement/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	var (
		down    = flag.Bool("down", false, "roll back every migration")
		to      = flag.Uint("to", 0, "migrate to a specific version")
		seed    = flag.Bool("seed", false, "also apply demo attendees and bonus codes")
		version = flag.Bool("version", false, "print the current version and exit")
		dir     = flag.String("dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	)
	flag.Parse()

	log := logger.NewLogger("migrate")
	defer log.Close()

	_ = godotenv.Load()
	cfg := config.Load()
	if *dir != "" {
		cfg.Migrations.Dir = *dir
	}

	bunDB, err := database.Connect(cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		MigrationsDir: cfg.Migrations.Dir,
		SeedData:      *seed || cfg.Migrations.Seed,
	}, log)
	defer runner.Close()

	switch {
	case *version:
		v, dirty, err := runner.Version()
		if err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		log.Info("MIGRATE", fmt.Sprintf("version %d (dirty=%t)", v, dirty))
		return
	case *down:
		err = runner.MigrateDown()
	case *to > 0:
		err = runner.MigrateTo(*to)
	default:
		err = runner.RunMigrations()
	}
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	log.Info("MIGRATE", "✅ Done")
}
