// internal/store/sql_test.go
package store

import (
	"strings"
	"testing"
)

func TestRebindPostgres(t *testing.T) {
	got := postgresDialect{}.rebind("INSERT INTO t (a, b) VALUES (?, ?)")
	want := "INSERT INTO t (a, b) VALUES ($1, $2)"
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr bool
	}{
		{"postgres", false},
		{"sqlite3", false},
		{"mysql", false},
		{"oracle", true},
		{"", true},
	}
	for _, tt := range tests {
		d, err := dialectFor(tt.driver)
		if tt.wantErr {
			if err == nil {
				t.Errorf("dialectFor(%q): expected error", tt.driver)
			}
			continue
		}
		if err != nil {
			t.Errorf("dialectFor(%q): %v", tt.driver, err)
			continue
		}
		if d.name() != tt.driver {
			t.Errorf("dialect name = %q, want %q", d.name(), tt.driver)
		}
	}
}

func TestUpsertStatements(t *testing.T) {
	pg := postgresDialect{}.upsertProduct()
	if !strings.Contains(pg, "ON CONFLICT (site_id, url) DO UPDATE SET") {
		t.Errorf("postgres upsert missing conflict clause:\n%s", pg)
	}

	my := mysqlDialect{}.upsertProduct()
	if !strings.Contains(my, "ON DUPLICATE KEY UPDATE") {
		t.Errorf("mysql upsert missing duplicate key clause:\n%s", my)
	}
	if strings.Contains(my, "excluded.") {
		t.Errorf("mysql upsert uses postgres excluded syntax:\n%s", my)
	}

	// The key pair is never part of the update set.
	for _, stmt := range []string{pg, my} {
		updates := stmt[strings.Index(stmt, "UPDATE"):]
		if strings.Contains(updates, " site_id =") || strings.Contains(updates, " url =") {
			t.Errorf("upsert rewrites key columns:\n%s", stmt)
		}
	}
}

func TestUpsertPlaceholderCount(t *testing.T) {
	// 15 columns in the insert list.
	stmt := sqliteDialect{}.upsertProduct()
	if got := strings.Count(stmt, "?"); got != 15 {
		t.Errorf("placeholders = %d, want 15", got)
	}
}
