package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCreateSQLMigrationSortsAfterExistingVersions(t *testing.T) {
	dir := t.TempDir()
	seeded := filepath.Join(dir, "20260301090400_create_outbox.sql")
	if err := os.WriteFile(seeded, []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	skewed := func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	path, err := createSQLMigration(dir, "Add store logo!", skewed)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260301090401_add_store_logo.sql" {
		t.Fatalf("unexpected file %q", filepath.Base(path))
	}

	next, err := createSQLMigration(dir, "index orders by store", skewed)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if filepath.Base(next) != "20260301090402_index_orders_by_store.sql" {
		t.Fatalf("unexpected file %q", filepath.Base(next))
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "-- revert add_store_logo") {
		t.Fatalf("unexpected template %s", body)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migrations should validate: %v", err)
	}
}

func TestCreateSQLMigrationUsesClock(t *testing.T) {
	dir := t.TempDir()
	clock := func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.FixedZone("GST", 4*3600)) }

	path, err := createSQLMigration(dir, "coupons_per_user_limit", clock)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20261015053000_coupons_per_user_limit.sql" {
		t.Fatalf("unexpected file %q", filepath.Base(path))
	}
}

func TestCreateSQLMigrationRejectsBadInput(t *testing.T) {
	if _, err := createSQLMigration("", "x", time.Now); err == nil {
		t.Fatal("expected missing dir to fail")
	}
	if _, err := createSQLMigration(t.TempDir(), " !! ", time.Now); err == nil {
		t.Fatal("expected unusable name to fail")
	}
}
