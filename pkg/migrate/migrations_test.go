package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gamevault/gamevault-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestListingsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_listings.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no listings migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE listings",
		"CHECK (stock_qty >= 0)",
		"DROP TABLE listings",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestInvoicesMigrationContainsStatusTimestamps(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_invoices.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no invoices migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	for _, column := range []string{
		"ship_to",
		"payment_id",
		"description_snapshot",
		"declined_at",
		"awaiting_shipment_at",
		"shipped_at",
		"completed_at",
		"cancelled_at",
		"pending_return_at",
		"awaiting_return_at",
		"return_msg",
	} {
		if !strings.Contains(content, column) {
			t.Errorf("missing invoice column %q", column)
		}
	}
}
