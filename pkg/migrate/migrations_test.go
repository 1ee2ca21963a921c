package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/obinna-okoro1/convozo/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPaymentsMigrationFencesCheckoutSessions(t *testing.T) {
	assertContains(t, readMigration(t, "create_payments"), []string{
		"CREATE TABLE IF NOT EXISTS payments",
		"CONSTRAINT payments_stripe_checkout_session_id_key UNIQUE (stripe_checkout_session_id)",
		"CONSTRAINT payments_split_balances CHECK (platform_fee + creator_amount = amount)",
		"message_id uuid REFERENCES messages(id)",
		"call_booking_id uuid REFERENCES call_bookings(id)",
	})
}

func TestMessagesMigrationBoundsContent(t *testing.T) {
	assertContains(t, readMigration(t, "create_messages_and_call_bookings"), []string{
		"CHECK (char_length(message_content) BETWEEN 1 AND 1000)",
		"CHECK (message_type IN ('message', 'call'))",
		"CONSTRAINT call_bookings_stripe_checkout_session_id_key UNIQUE (stripe_checkout_session_id)",
	})
}

func TestCreatorsMigrationConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_creators"), []string{
		"CONSTRAINT creators_slug_key UNIQUE (slug)",
		"CONSTRAINT creator_settings_creator_id_key UNIQUE (creator_id)",
		"creator_settings_calls_configured",
	})
	assertContains(t, readMigration(t, "create_stripe_accounts"), []string{
		"CONSTRAINT stripe_accounts_creator_id_key UNIQUE (creator_id)",
	})
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Embedded()); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
	embeddedNames, err := fs.Glob(migrate.Embedded(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	diskNames, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embeddedNames) != len(diskNames) {
		t.Fatalf("embedded has %d migrations, disk has %d", len(embeddedNames), len(diskNames))
	}
}

func TestValidateFSRejectsBadNames(t *testing.T) {
	bad := fstest.MapFS{
		"001_init.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	if err := migrate.ValidateFS(bad); err == nil {
		t.Fatal("expected invalid filename to fail")
	}

	missingDown := fstest.MapFS{
		"20250101000000_init.sql": {Data: []byte("-- +goose Up\n")},
	}
	if err := migrate.ValidateFS(missingDown); err == nil {
		t.Fatal("expected missing down section to fail")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Payments Index")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_payments_index.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestCreateSQLMigrationNeverReusesVersion(t *testing.T) {
	dir := t.TempDir()
	first, err := migrate.CreateSQLMigration(dir, "first")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := migrate.CreateSQLMigration(dir, "second")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if filepath.Base(first)[:14] == filepath.Base(second)[:14] {
		t.Fatalf("versions collided: %s and %s", first, second)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("both migrations should validate: %v", err)
	}
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	if _, err := migrate.CreateSQLMigration(t.TempDir(), " !! "); err == nil {
		t.Fatal("expected empty sanitized name to fail")
	}
}
