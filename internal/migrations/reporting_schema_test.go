package migrations

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/reportbot/reportbot/internal/sqlguard"
)

func TestReportingMigrationContainsRequiredTables(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000001_reporting.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	sql := string(body)
	requiredSnippets := []string{
		"CREATE TABLE IF NOT EXISTS properties",
		"CREATE TABLE IF NOT EXISTS bookings",
		"CREATE TABLE IF NOT EXISTS financials",
		"CREATE TABLE IF NOT EXISTS feedbacks",
		"PRIMARY KEY (property_id, month)",
		"CREATE OR REPLACE VIEW monthly_consolidated AS",
	}
	for _, snippet := range requiredSnippets {
		if !strings.Contains(sql, snippet) {
			t.Fatalf("migration missing required snippet: %s", snippet)
		}
	}
}

func TestReportingViewExposesExactlyThePolicyColumns(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000001_reporting.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	sql := string(body)
	start := strings.Index(sql, "CREATE OR REPLACE VIEW monthly_consolidated AS")
	if start < 0 {
		t.Fatal("view definition not found")
	}
	view := sql[start:]
	selectList := view[strings.Index(view, "SELECT")+len("SELECT") : strings.Index(view, "FROM properties")]

	var columns []string
	for _, line := range strings.Split(selectList, "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), ",")
		if line == "" {
			continue
		}
		if idx := strings.LastIndex(line, " AS "); idx >= 0 {
			line = line[idx+len(" AS "):]
		}
		if idx := strings.LastIndex(line, "."); idx >= 0 {
			line = line[idx+1:]
		}
		columns = append(columns, line)
	}
	sort.Strings(columns)

	want := sqlguard.DefaultPolicy().Columns()
	if !reflect.DeepEqual(columns, want) {
		t.Fatalf("view columns = %v, want %v", columns, want)
	}
}

func TestReportingDownMigrationDropsViewFirst(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000001_reporting.down.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(body), "DROP VIEW IF EXISTS monthly_consolidated;") {
		t.Fatalf("down migration must drop the view first: %q", string(body))
	}
}
