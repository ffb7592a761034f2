// Package export encodes consolidated months and publishes them to the
// object store.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/reportbot/reportbot/internal/monthly"
)

// parquetRow mirrors the monthly_consolidated view so the snapshot can be
// queried under the same column policy.
type parquetRow struct {
	PropertyID          string   `parquet:"property_id"`
	OwnerName           string   `parquet:"owner_name"`
	City                string   `parquet:"city"`
	State               string   `parquet:"state"`
	Region              string   `parquet:"region"`
	Month               string   `parquet:"month"`
	NumReservations     int64    `parquet:"num_reservations"`
	OccupiedDays        int64    `parquet:"occupied_days"`
	GrossRevenue        float64  `parquet:"gross_revenue"`
	PlatformFeePct      *float64 `parquet:"platform_fee_pct"`
	ExtraCost           *float64 `parquet:"extra_cost"`
	NetRevenue          *float64 `parquet:"net_revenue"`
	MarginPct           *float64 `parquet:"margin_pct"`
	AvgRating           *float64 `parquet:"avg_rating"`
	ComplaintCategories string   `parquet:"complaint_categories"`
	SummaryAI           *string  `parquet:"summary_ai"`
}

func EncodeParquet(rows []monthly.Consolidated) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("rows are required")
	}

	out := make([]parquetRow, 0, len(rows))
	for _, row := range rows {
		complaints, err := complaintsJSON(row.ComplaintCategories)
		if err != nil {
			return nil, err
		}
		out = append(out, parquetRow{
			PropertyID:          row.PropertyID,
			OwnerName:           row.OwnerName,
			City:                row.City,
			State:               row.State,
			Region:              row.Region,
			Month:               row.Month,
			NumReservations:     int64(row.NumReservations),
			OccupiedDays:        int64(row.OccupiedDays),
			GrossRevenue:        row.GrossRevenue,
			PlatformFeePct:      row.PlatformFeePct,
			ExtraCost:           row.ExtraCost,
			NetRevenue:          row.NetRevenue,
			MarginPct:           row.MarginPct,
			AvgRating:           row.AvgRating,
			ComplaintCategories: complaints,
			SummaryAI:           row.SummaryAI,
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetRow](buf)
	if _, err := writer.Write(out); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func complaintsJSON(categories map[string]int) (string, error) {
	if categories == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(categories)
	if err != nil {
		return "", fmt.Errorf("marshal complaint categories: %w", err)
	}
	return string(raw), nil
}
