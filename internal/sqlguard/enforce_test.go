package sqlguard

import (
	"errors"
	"testing"
)

func TestEnforceAcceptsAllowedReferences(t *testing.T) {
	refs := Extract("SELECT property_id, city FROM monthly_consolidated WHERE margin_pct < 0")
	if err := Enforce(refs, DefaultPolicy()); err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
}

func TestEnforceReducesSchemaQualifiedTable(t *testing.T) {
	refs := Extract("SELECT city FROM Public.MONTHLY_CONSOLIDATED")
	if err := Enforce(refs, DefaultPolicy()); err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
}

func TestEnforceRejectsWildcardByDefault(t *testing.T) {
	err := Enforce(Extract("SELECT * FROM monthly_consolidated"), DefaultPolicy())
	if reason, _ := ReasonOf(err); reason != ReasonUnauthorizedColumn {
		t.Fatalf("reason = %q, want %q", reason, ReasonUnauthorizedColumn)
	}
}

func TestEnforceAcceptsWildcardWhenPolicyAllows(t *testing.T) {
	policy, err := NewPolicy([]string{"monthly_consolidated"}, []string{"city"}, true)
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}
	if err := Enforce(Extract("SELECT * FROM monthly_consolidated"), policy); err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}
}

func TestEnforceRejectsUnauthorizedTable(t *testing.T) {
	err := Enforce(Extract("SELECT owner_name FROM other_table"), DefaultPolicy())
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("error = %v, want RejectedError", err)
	}
	if rejected.Reason != ReasonUnauthorizedTable || rejected.Identifier != "other_table" {
		t.Fatalf("rejection = %+v", rejected)
	}
}

func TestEnforceRejectsJoinToUnauthorizedTable(t *testing.T) {
	err := Enforce(Extract("SELECT city FROM monthly_consolidated JOIN pg_shadow ON true"), DefaultPolicy())
	if reason, _ := ReasonOf(err); reason != ReasonUnauthorizedTable {
		t.Fatalf("reason = %q, want %q", reason, ReasonUnauthorizedTable)
	}
}

func TestEnforceRejectsUnauthorizedColumn(t *testing.T) {
	err := Enforce(Extract("SELECT secret_column FROM monthly_consolidated"), DefaultPolicy())
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("error = %v, want RejectedError", err)
	}
	if rejected.Reason != ReasonUnauthorizedColumn || rejected.Identifier != "secret_column" {
		t.Fatalf("rejection = %+v", rejected)
	}
}

func TestEnforceColumnsAreCaseSensitive(t *testing.T) {
	err := Enforce(Extract("SELECT CITY FROM monthly_consolidated"), DefaultPolicy())
	if reason, _ := ReasonOf(err); reason != ReasonUnauthorizedColumn {
		t.Fatalf("reason = %q, want %q", reason, ReasonUnauthorizedColumn)
	}
}

func TestEnforceRejectsEmptyTableSet(t *testing.T) {
	err := Enforce(References{Columns: []string{"city"}}, DefaultPolicy())
	if reason, _ := ReasonOf(err); reason != ReasonUnauthorizedTable {
		t.Fatalf("reason = %q, want %q", reason, ReasonUnauthorizedTable)
	}
}

func TestEnforceRejectsFunctionCallsInSelectList(t *testing.T) {
	err := Enforce(Extract("SELECT SUM(gross_revenue) AS total FROM monthly_consolidated"), DefaultPolicy())
	if reason, _ := ReasonOf(err); reason != ReasonUnauthorizedColumn {
		t.Fatalf("reason = %q, want %q", reason, ReasonUnauthorizedColumn)
	}
}

func TestCheckShapeRejectsNestedAndSetQueries(t *testing.T) {
	for _, sql := range []string{
		"SELECT city FROM monthly_consolidated WHERE city IN (SELECT city FROM monthly_consolidated)",
		"SELECT city FROM monthly_consolidated UNION SELECT owner_name FROM monthly_consolidated",
		"SELECT city FROM monthly_consolidated except all",
	} {
		if reason, _ := ReasonOf(CheckShape(sql)); reason != ReasonUnsupportedShape {
			t.Fatalf("CheckShape(%q) reason = %q", sql, reason)
		}
	}
	if err := CheckShape("SELECT selected_city FROM monthly_consolidated"); err != nil {
		t.Fatalf("CheckShape() error = %v", err)
	}
}

func TestCheckShapeRejectsUncapturedRelations(t *testing.T) {
	for _, sql := range []string{
		"SELECT city FROM monthly_consolidated, pg_user",
		"SELECT city FROM monthly_consolidated m , pg_user WHERE m.city = 'Recife'",
		`SELECT city FROM monthly_consolidated JOIN "pg_shadow" ON true`,
		"SELECT city FROM monthly_consolidated CROSS JOIN(pg_roles)",
		"SELECT city FROM monthly_consolidated JOIN relação ON true",
		"SELECT city FROM monthly_consolidatedç",
		`SELECT city FROM public."pg_user"`,
	} {
		if reason, _ := ReasonOf(CheckShape(sql)); reason != ReasonUnsupportedShape {
			t.Fatalf("CheckShape(%q) reason = %q, want %q", sql, reason, ReasonUnsupportedShape)
		}
	}
}

func TestCheckShapeAllowsCommasOutsideFromClause(t *testing.T) {
	for _, sql := range []string{
		"SELECT city, region FROM monthly_consolidated",
		"SELECT city FROM monthly_consolidated WHERE city IN ('Recife', 'Natal') ORDER BY city, region",
		"SELECT city FROM monthly_consolidated AS m\nWHERE m.margin_pct < 0",
	} {
		if err := CheckShape(sql); err != nil {
			t.Fatalf("CheckShape(%q) error = %v", sql, err)
		}
	}
}

func TestNewPolicyRequiresTable(t *testing.T) {
	if _, err := NewPolicy(nil, []string{"city"}, false); err == nil {
		t.Fatal("expected error for empty table list")
	}
}

func TestPolicyFromSettingsFallsBackToDefaultColumns(t *testing.T) {
	policy, err := PolicyFromSettings("Monthly_Consolidated", nil, false)
	if err != nil {
		t.Fatalf("PolicyFromSettings() error = %v", err)
	}
	if !policy.AllowsTable("monthly_consolidated") {
		t.Fatal("AllowsTable(monthly_consolidated) = false")
	}
	if got := len(policy.Columns()); got != 16 {
		t.Fatalf("Columns() = %d, want 16", got)
	}

	narrow, err := PolicyFromSettings("monthly_consolidated", []string{"city"}, false)
	if err != nil {
		t.Fatalf("PolicyFromSettings() error = %v", err)
	}
	if narrow.AllowsColumn("state") {
		t.Fatal("AllowsColumn(state) = true for narrowed policy")
	}
}
