package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded exposes the migrations compiled into the binary, rooted at the
// migrations directory.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("migrations sub fs: %v", err))
	}
	return sub
}

// Run executes a goose command against dir on disk, or against the embedded
// migrations when dir is empty.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	return withSource(db, dir, func(root string) error {
		if err := goose.RunContext(ctx, command, db, root, args...); err != nil {
			return fmt.Errorf("goose %s: %w", command, err)
		}
		return nil
	})
}

// RunEmbedded executes a goose command against the migrations built into the binary.
func RunEmbedded(ctx context.Context, db *sql.DB, command string, args ...string) error {
	return Run(ctx, db, "", command, args...)
}

func withSource(db *sql.DB, dir string, fn func(root string) error) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	root := dir
	if dir == "" {
		goose.SetBaseFS(Embedded())
		defer goose.SetBaseFS(nil)
		root = "."
	}
	return fn(root)
}

// MigrateToVersion migrates up or down to the requested version. An empty
// dir selects the embedded migrations.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	return withSource(db, dir, func(root string) error {
		return migrateTo(ctx, db, root, target)
	})
}

func migrateTo(ctx context.Context, db *sql.DB, dir string, target int64) error {
	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
