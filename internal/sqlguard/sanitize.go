package sqlguard

import "strings"

// forbiddenKeywords are matched as substrings of the upper-cased statement, not
// as tokens. A column such as updated_at is therefore rejected too.
var forbiddenKeywords = []string{"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "CREATE"}

// Sanitize removes statement terminators and refuses anything that is not a
// single plain SELECT. The returned text keeps the caller's casing.
func Sanitize(text string) (string, error) {
	sql := strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(text), ";", ""))
	upper := strings.ToUpper(sql)

	if !strings.HasPrefix(upper, "SELECT") {
		return "", reject(ReasonNotSelect, "")
	}
	for _, keyword := range forbiddenKeywords {
		if strings.Contains(upper, keyword) {
			return "", reject(ReasonForbiddenOperation, keyword)
		}
	}
	if strings.Contains(sql, "--") || strings.Contains(sql, "/*") {
		return "", reject(ReasonCommentNotAllowed, "")
	}
	return sql, nil
}
