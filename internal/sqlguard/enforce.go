package sqlguard

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	selectKeywordPattern   = regexp.MustCompile(`(?i)\bSELECT\b`)
	setOperatorPattern     = regexp.MustCompile(`(?i)\b(UNION|INTERSECT|EXCEPT)\b`)
	relationKeywordPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\b`)
	relationTargetPattern  = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+[\w.]+`)
	fromClauseEndPattern   = regexp.MustCompile(`(?i)\b(?:WHERE|GROUP|ORDER|HAVING|LIMIT|OFFSET|FETCH|WINDOW)\b`)
)

// Enforce checks extracted references against the policy. It fails closed: no
// table, an unreadable select list, or a wildcard are all rejections unless the
// policy says otherwise.
func Enforce(refs References, policy Policy) error {
	if len(refs.Tables) == 0 {
		return reject(ReasonUnauthorizedTable, "")
	}
	for _, table := range refs.Tables {
		name := table
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}
		if !policy.AllowsTable(strings.ToLower(name)) {
			return reject(ReasonUnauthorizedTable, table)
		}
	}

	if (refs.Wildcard || len(refs.Columns) == 0) && !policy.AllowsWildcard() {
		return reject(ReasonUnauthorizedColumn, "*")
	}
	for _, column := range refs.Columns {
		if column == "" {
			continue
		}
		if !policy.AllowsColumn(column) {
			return reject(ReasonUnauthorizedColumn, column)
		}
	}
	return nil
}

// CheckShape refuses statements the extractor cannot analyse: a second SELECT
// (subquery, CTE body), a set operation, or a relation named in a form the
// extractor does not capture.
func CheckShape(sql string) error {
	if len(selectKeywordPattern.FindAllStringIndex(sql, -1)) > 1 {
		return reject(ReasonUnsupportedShape, "SELECT")
	}
	if match := setOperatorPattern.FindString(sql); match != "" {
		return reject(ReasonUnsupportedShape, strings.ToUpper(match))
	}
	return checkRelations(sql)
}

// checkRelations requires every FROM and JOIN to be followed by a plain
// identifier that ends at whitespace or the end of the text, and forbids
// comma joins in the FROM clause. Quoted names, parenthesised targets and
// non-ASCII identifiers never match the extractor, so they are rejected here.
func checkRelations(sql string) error {
	keywords := relationKeywordPattern.FindAllStringIndex(sql, -1)
	targets := relationTargetPattern.FindAllStringIndex(sql, -1)
	if len(keywords) != len(targets) {
		return reject(ReasonUnsupportedShape, "FROM")
	}
	for _, target := range targets {
		rest := sql[target[1]:]
		if rest == "" {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(rest); !unicode.IsSpace(r) {
			return reject(ReasonUnsupportedShape, "FROM")
		}
		if loc := fromClauseEndPattern.FindStringIndex(rest); loc != nil {
			rest = rest[:loc[0]]
		}
		if strings.Contains(rest, ",") {
			return reject(ReasonUnsupportedShape, ",")
		}
	}
	return nil
}
