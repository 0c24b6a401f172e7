package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/marketplace-backend/pkg/migrate"
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

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_orders")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CHECK (payment_method IN ('COD', 'STRIPE'))",
		"PRIMARY KEY (order_id, product_id)",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS order_items",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestReturnRequestsAreUniquePerOrder(t *testing.T) {
	content := readMigration(t, "create_guest_users_return_requests")
	checks := []string{
		"CONSTRAINT return_requests_order_id_key UNIQUE (order_id)",
		"CONSTRAINT guest_users_email_key UNIQUE (email)",
		"CHECK (type IN ('RETURN', 'REPLACEMENT'))",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCouponsAreStoredUppercase(t *testing.T) {
	content := readMigration(t, "create_coupons_shipping_settings")
	if !strings.Contains(content, "CHECK (code = upper(code))") {
		t.Fatal("expected uppercase code check on coupons")
	}
}

func TestGuestSentinelUserSeeded(t *testing.T) {
	content := readMigration(t, "create_users_stores_products")
	if !strings.Contains(content, "VALUES ('guest', 'Guest User', 'guest@system.local')") {
		t.Fatal("expected guest sentinel user seed")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Store Logo!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_store_logo.sql") {
		t.Fatalf("unexpected filename %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}
