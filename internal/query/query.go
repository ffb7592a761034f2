package query

import (
	"context"
	"time"
)

// DefaultRowLimit caps how many rows a single statement may hand back.
const DefaultRowLimit = 20

type Request struct {
	SQL      string
	RowLimit int
}

// Result holds ordered columns and at most RowLimit rows. Truncated reports
// that the database had more rows than were fetched.
type Result struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
	Duration  time.Duration
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}

func EffectiveRowLimit(limit int) int {
	if limit <= 0 {
		return DefaultRowLimit
	}
	return limit
}

// Rows is the subset of *sql.Rows a bounded reader needs.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// ReadBounded scans at most limit rows and reports whether another row was
// available. It never scans the extra row.
func ReadBounded(rows Rows, limit int) ([]string, [][]any, bool, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, false, err
	}
	limit = EffectiveRowLimit(limit)

	resultRows := make([][]any, 0)
	truncated := false
	for rows.Next() {
		if len(resultRows) == limit {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, false, err
		}
		resultRows = append(resultRows, NormalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, err
	}
	return columns, resultRows, truncated, nil
}

func NormalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
