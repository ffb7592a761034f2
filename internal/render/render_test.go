package render

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/reportbot/reportbot/internal/query"
)

func TestFormatEmptyResult(t *testing.T) {
	if got := Format(query.Result{Columns: []string{"city"}}, 5, 1900); got != EmptyMessage {
		t.Fatalf("Format() = %q, want %q", got, EmptyMessage)
	}
}

func TestFormatRendersRowsAsPairs(t *testing.T) {
	result := query.Result{
		Columns: []string{"city", "gross_revenue", "avg_rating"},
		Rows: [][]any{
			{"Recife", 1200.5, nil},
			{[]byte("Natal"), int64(800), 4.5},
		},
	}
	want := "city: Recife; gross_revenue: 1200.5; avg_rating: NULL\ncity: Natal; gross_revenue: 800; avg_rating: 4.5"
	if got := Format(result, 5, 1900); got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormatPreviewsFirstRowsOnly(t *testing.T) {
	result := query.Result{Columns: []string{"n"}}
	for i := 0; i < 20; i++ {
		result.Rows = append(result.Rows, []any{i})
	}
	got := Format(result, 5, 1900)
	if lines := strings.Split(got, "\n"); len(lines) != 5 {
		t.Fatalf("lines = %d, want 5", len(lines))
	}
	if !strings.HasPrefix(got, "n: 0\n") || !strings.HasSuffix(got, "n: 4") {
		t.Fatalf("Format() = %q", got)
	}
}

func TestFormatTruncatesLongOutput(t *testing.T) {
	result := query.Result{
		Columns: []string{"summary_ai"},
		Rows: [][]any{
			{strings.Repeat("a", 1000)},
			{strings.Repeat("b", 1000)},
			{strings.Repeat("c", 1000)},
		},
	}
	got := Format(result, 5, 1900)
	if !strings.HasSuffix(got, TruncatedMarker) {
		t.Fatalf("Format() missing marker: %q", got[len(got)-10:])
	}
	if n := utf8.RuneCountInString(got); n != 1900+utf8.RuneCountInString(TruncatedMarker) {
		t.Fatalf("rune count = %d", n)
	}
}

func TestFormatCountsRunesNotBytes(t *testing.T) {
	result := query.Result{Columns: []string{"city"}, Rows: [][]any{{strings.Repeat("ã", 10)}}}
	got := Format(result, 5, 8)
	if got != "city: ãã"+TruncatedMarker {
		t.Fatalf("Format() = %q", got)
	}
}

func TestFormatTimeAsRFC3339(t *testing.T) {
	month := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	result := query.Result{Columns: []string{"month"}, Rows: [][]any{{month}}}
	if got := Format(result, 5, 1900); got != "month: 2025-03-01T00:00:00Z" {
		t.Fatalf("Format() = %q", got)
	}
}
