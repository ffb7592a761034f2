// Package postgres persists simulated months into the reporting tables.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/reportbot/reportbot/internal/monthly"
)

type dbTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertDataset writes every record of the month in one transaction. Rerunning
// a month overwrites its rows.
func (r *Repository) UpsertDataset(ctx context.Context, dataset monthly.Dataset) error {
	return r.WithTx(ctx, func(tx *TxRepository) error {
		for _, property := range dataset.Properties {
			if err := tx.UpsertProperty(ctx, property); err != nil {
				return err
			}
		}
		for _, booking := range dataset.Bookings {
			if err := tx.UpsertBooking(ctx, booking); err != nil {
				return err
			}
		}
		for _, financial := range dataset.Financials {
			if err := tx.UpsertFinancial(ctx, financial); err != nil {
				return err
			}
		}
		for _, feedback := range dataset.Feedbacks {
			if err := tx.UpsertFeedback(ctx, feedback); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx *TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&TxRepository{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type TxRepository struct {
	q dbTX
}

func (r *TxRepository) UpsertProperty(ctx context.Context, in monthly.Property) error {
	query := `
INSERT INTO properties (property_id, owner_name, city, state, region, status)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (property_id)
DO UPDATE SET owner_name = EXCLUDED.owner_name,
    city = EXCLUDED.city,
    state = EXCLUDED.state,
    region = EXCLUDED.region,
    status = EXCLUDED.status,
    updated_at = NOW()`
	if _, err := r.q.ExecContext(ctx, query, in.PropertyID, in.OwnerName, in.City, in.State, in.Region, in.Status); err != nil {
		return fmt.Errorf("upsert property %s: %w", in.PropertyID, err)
	}
	return nil
}

func (r *TxRepository) UpsertBooking(ctx context.Context, in monthly.Booking) error {
	query := `
INSERT INTO bookings (property_id, month, num_reservations, occupied_days, gross_revenue)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (property_id, month)
DO UPDATE SET num_reservations = EXCLUDED.num_reservations,
    occupied_days = EXCLUDED.occupied_days,
    gross_revenue = EXCLUDED.gross_revenue`
	if _, err := r.q.ExecContext(ctx, query, in.PropertyID, in.Month, in.NumReservations, in.OccupiedDays, in.GrossRevenue); err != nil {
		return fmt.Errorf("upsert booking %s/%s: %w", in.PropertyID, in.Month, err)
	}
	return nil
}

func (r *TxRepository) UpsertFinancial(ctx context.Context, in monthly.Financial) error {
	query := `
INSERT INTO financials (property_id, month, platform_fee_pct, extra_cost, gross_revenue, net_revenue, margin_pct)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (property_id, month)
DO UPDATE SET platform_fee_pct = EXCLUDED.platform_fee_pct,
    extra_cost = EXCLUDED.extra_cost,
    gross_revenue = EXCLUDED.gross_revenue,
    net_revenue = EXCLUDED.net_revenue,
    margin_pct = EXCLUDED.margin_pct`
	if _, err := r.q.ExecContext(ctx, query,
		in.PropertyID, in.Month, in.PlatformFeePct, in.ExtraCost, in.GrossRevenue, in.NetRevenue, nullableFloat(in.MarginPct),
	); err != nil {
		return fmt.Errorf("upsert financial %s/%s: %w", in.PropertyID, in.Month, err)
	}
	return nil
}

func (r *TxRepository) UpsertFeedback(ctx context.Context, in monthly.Feedback) error {
	complaints := in.ComplaintCategories
	if complaints == nil {
		complaints = map[string]int{}
	}
	complaintsJSON, err := json.Marshal(complaints)
	if err != nil {
		return fmt.Errorf("marshal complaint categories: %w", err)
	}

	query := `
INSERT INTO feedbacks (property_id, month, avg_rating, complaint_categories, summary_ai)
VALUES ($1, $2, $3, $4::jsonb, $5)
ON CONFLICT (property_id, month)
DO UPDATE SET avg_rating = EXCLUDED.avg_rating,
    complaint_categories = EXCLUDED.complaint_categories,
    summary_ai = COALESCE(EXCLUDED.summary_ai, feedbacks.summary_ai)`
	if _, err := r.q.ExecContext(ctx, query,
		in.PropertyID, in.Month, nullableFloat(in.AvgRating), string(complaintsJSON), nullableString(in.SummaryAI),
	); err != nil {
		return fmt.Errorf("upsert feedback %s/%s: %w", in.PropertyID, in.Month, err)
	}
	return nil
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
