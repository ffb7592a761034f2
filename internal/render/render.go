// Package render turns bounded query results into the short text reply sent
// back to the person who asked.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/reportbot/reportbot/internal/query"
)

const (
	DefaultPreviewRows = 5
	DefaultMaxChars    = 1900

	EmptyMessage    = "Nenhum resultado encontrado."
	TruncatedMarker = "\n..."
)

// Format renders the first previewRows rows as "column: value" pairs joined
// by "; ", one row per line. Output longer than maxChars runes is cut and
// suffixed with TruncatedMarker.
func Format(result query.Result, previewRows, maxChars int) string {
	if len(result.Rows) == 0 {
		return EmptyMessage
	}
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	rows := result.Rows
	if len(rows) > previewRows {
		rows = rows[:previewRows]
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		pairs := make([]string, 0, len(row))
		for i, value := range row {
			pairs = append(pairs, columnName(result.Columns, i)+": "+formatValue(value))
		}
		lines = append(lines, strings.Join(pairs, "; "))
	}

	text := strings.Join(lines, "\n")
	runes := []rune(text)
	if len(runes) > maxChars {
		return string(runes[:maxChars]) + TruncatedMarker
	}
	return text
}

func columnName(columns []string, index int) string {
	if index < len(columns) {
		return columns[index]
	}
	return fmt.Sprintf("col%d", index+1)
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case string:
		return typed
	case []byte:
		return string(typed)
	case time.Time:
		return typed.Format(time.RFC3339)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
