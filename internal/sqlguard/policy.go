package sqlguard

import (
	"fmt"
	"sort"
	"strings"
)

const DefaultTable = "monthly_consolidated"

var defaultColumns = []string{
	"property_id", "owner_name", "city", "state", "region", "month",
	"num_reservations", "occupied_days", "gross_revenue", "platform_fee_pct",
	"extra_cost", "net_revenue", "margin_pct", "avg_rating", "complaint_categories", "summary_ai",
}

// Policy is the allowlist a statement must stay inside. The zero value allows
// nothing. Build it once with NewPolicy and pass it by value; there is no
// mutation path after construction.
type Policy struct {
	tables        map[string]struct{}
	columns       map[string]struct{}
	allowWildcard bool
}

// NewPolicy builds a policy. Table names are compared lower-cased, column
// names exactly as declared.
func NewPolicy(tables, columns []string, allowWildcard bool) (Policy, error) {
	policy := Policy{
		tables:        make(map[string]struct{}, len(tables)),
		columns:       make(map[string]struct{}, len(columns)),
		allowWildcard: allowWildcard,
	}
	for _, table := range tables {
		table = strings.ToLower(strings.TrimSpace(table))
		if table == "" {
			continue
		}
		policy.tables[table] = struct{}{}
	}
	for _, column := range columns {
		column = strings.TrimSpace(column)
		if column == "" {
			continue
		}
		policy.columns[column] = struct{}{}
	}
	if len(policy.tables) == 0 {
		return Policy{}, fmt.Errorf("policy requires at least one table")
	}
	if len(policy.columns) == 0 && !allowWildcard {
		return Policy{}, fmt.Errorf("policy requires at least one column")
	}
	return policy, nil
}

// DefaultPolicy allows the sixteen reporting columns of monthly_consolidated.
func DefaultPolicy() Policy {
	policy, err := NewPolicy([]string{DefaultTable}, defaultColumns, false)
	if err != nil {
		panic(err)
	}
	return policy
}

// PolicyFromSettings builds the policy for one table. A nil column list
// falls back to the built-in reporting columns.
func PolicyFromSettings(table string, columns []string, allowWildcard bool) (Policy, error) {
	if columns == nil {
		columns = DefaultColumns()
	}
	return NewPolicy([]string{table}, columns, allowWildcard)
}

func DefaultColumns() []string {
	return append([]string(nil), defaultColumns...)
}

func (p Policy) AllowsTable(name string) bool {
	_, ok := p.tables[name]
	return ok
}

func (p Policy) AllowsColumn(name string) bool {
	_, ok := p.columns[name]
	return ok
}

func (p Policy) AllowsWildcard() bool {
	return p.allowWildcard
}

func (p Policy) Tables() []string {
	return sortedKeys(p.tables)
}

func (p Policy) Columns() []string {
	return sortedKeys(p.columns)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
