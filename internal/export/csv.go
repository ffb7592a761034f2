package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/reportbot/reportbot/internal/monthly"
)

var csvHeader = []string{
	"property_id", "owner_name", "city", "state", "region", "month",
	"num_reservations", "occupied_days", "gross_revenue", "platform_fee_pct",
	"extra_cost", "net_revenue", "margin_pct", "occupancy_pct", "avg_rating",
	"complaint_categories", "summary_ai",
}

// EncodeCSV writes a header plus one line per row. Missing values are empty
// cells.
func EncodeCSV(rows []monthly.Consolidated) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range rows {
		complaints, err := complaintsJSON(row.ComplaintCategories)
		if err != nil {
			return nil, err
		}
		summary := ""
		if row.SummaryAI != nil {
			summary = *row.SummaryAI
		}
		record := []string{
			row.PropertyID,
			row.OwnerName,
			row.City,
			row.State,
			row.Region,
			row.Month,
			strconv.Itoa(row.NumReservations),
			strconv.Itoa(row.OccupiedDays),
			formatFloat(row.GrossRevenue),
			formatOptional(row.PlatformFeePct),
			formatOptional(row.ExtraCost),
			formatOptional(row.NetRevenue),
			formatOptional(row.MarginPct),
			formatFloat(row.OccupancyPct),
			formatOptional(row.AvgRating),
			complaints,
			summary,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", row.PropertyID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func formatOptional(value *float64) string {
	if value == nil {
		return ""
	}
	return formatFloat(*value)
}
