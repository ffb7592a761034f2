package sqlguard

import (
	"regexp"
	"sort"
	"strings"
)

var (
	fromPattern       = regexp.MustCompile(`(?i)FROM\s+([\w.]+)`)
	joinPattern       = regexp.MustCompile(`(?i)JOIN\s+([\w.]+)`)
	selectListPattern = regexp.MustCompile(`(?is)SELECT\s+(.*?)\s+FROM`)
	aliasPattern      = regexp.MustCompile(`(?i)\s+AS\s+\w+`)
)

// References is what a statement touches, as far as pattern matching can tell.
// Only the first SELECT list is inspected; nested queries are not understood.
type References struct {
	Tables   []string
	Columns  []string
	Wildcard bool
}

// Extract never fails. A statement it cannot read yields empty sets, which the
// enforcer treats as unverifiable.
func Extract(sql string) References {
	tables := map[string]struct{}{}
	for _, pattern := range []*regexp.Regexp{fromPattern, joinPattern} {
		for _, match := range pattern.FindAllStringSubmatch(sql, -1) {
			tables[match[1]] = struct{}{}
		}
	}

	refs := References{Tables: setToSorted(tables)}
	match := selectListPattern.FindStringSubmatch(sql)
	if match == nil {
		refs.Columns = []string{}
		return refs
	}

	columns := map[string]struct{}{}
	for _, fragment := range strings.Split(match[1], ",") {
		name := aliasPattern.ReplaceAllString(strings.TrimSpace(fragment), "")
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}
		name = strings.TrimSpace(name)
		switch name {
		case "":
			continue
		case "*":
			refs.Wildcard = true
			continue
		}
		columns[name] = struct{}{}
	}
	refs.Columns = setToSorted(columns)
	return refs
}

func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
