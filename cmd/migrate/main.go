package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/obinna-okoro1/convozo/pkg/config"
	"github.com/obinna-okoro1/convozo/pkg/db"
	"github.com/obinna-okoro1/convozo/pkg/logger"
	"github.com/obinna-okoro1/convozo/pkg/migrate"
)

// dbCommands need a live connection; create and validate work offline.
var dbCommands = map[string]bool{
	"up":      true,
	"down":    true,
	"status":  true,
	"redo":    true,
	"version": true,
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|redo|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory on disk; the embedded set is used when empty")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		var err error
		if *dir == "" {
			err = migrate.ValidateFS(migrate.Embedded())
		} else {
			err = migrate.ValidateDir(*dir)
		}
		if err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	if !dbCommands[*cmd] {
		fail("unknown -cmd value: %s", *cmd)
	}
	if *cmd == "version" && *version == "" {
		fail("missing -version for version command")
	}

	cfg, err := config.LoadDatabase()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.ForApp("migrate", cfg.App)
	source := *dir
	if source == "" {
		source = "embedded"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"cmd":    *cmd,
		"source": source,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")
	if err := execute(ctx, sqlDB, *cmd, *dir, *version); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}

func execute(ctx context.Context, sqlDB *sql.DB, cmd, dir, version string) error {
	if cmd == "version" {
		return migrate.MigrateToVersion(ctx, sqlDB, dir, version)
	}
	return migrate.Run(ctx, sqlDB, dir, cmd)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
