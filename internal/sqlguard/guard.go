// Package sqlguard decides whether model-generated SQL may reach the reporting
// database. Every function here is pure; nothing touches a connection.
package sqlguard

// Statement is a candidate that passed every gate.
type Statement struct {
	SQL        string
	References References
}

// Validate runs sanitize, extract, enforce and the shape check in order and
// stops at the first rejection. The references are returned even on an
// enforcement failure so callers can report what was seen.
func Validate(candidate string, policy Policy) (Statement, error) {
	sql, err := Sanitize(candidate)
	if err != nil {
		return Statement{}, err
	}
	refs := Extract(sql)
	if err := Enforce(refs, policy); err != nil {
		return Statement{References: refs}, err
	}
	if err := CheckShape(sql); err != nil {
		return Statement{References: refs}, err
	}
	return Statement{SQL: sql, References: refs}, nil
}
