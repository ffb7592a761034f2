package monthly

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/reportbot/reportbot/internal/observability"
)

type Repository interface {
	UpsertDataset(ctx context.Context, dataset Dataset) error
}

// Publisher writes the consolidated rows somewhere durable and returns the
// object keys it wrote.
type Publisher interface {
	Publish(ctx context.Context, month string, rows []Consolidated) ([]string, error)
}

type Notifier interface {
	Notify(ctx context.Context, content string) error
}

type Report struct {
	Month      string
	Rows       []Consolidated
	KPIs       KPIs
	ExportKeys []string
	Notified   bool
}

type Job struct {
	generator  *Generator
	repository Repository
	publisher  Publisher
	notifier   Notifier
	log        *slog.Logger
}

func NewJob(generator *Generator, repository Repository, publisher Publisher, notifier Notifier, logger *slog.Logger) (*Job, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Job{
		generator:  generator,
		repository: repository,
		publisher:  publisher,
		notifier:   notifier,
		log:        logger,
	}, nil
}

// Run closes one month: simulate, persist, export, then notify. A failed
// notification is logged and does not fail the close.
func (j *Job) Run(ctx context.Context, month string) (Report, error) {
	report, err := j.run(ctx, month)
	if err != nil {
		observability.ObserveMonthlyClose("failed")
		j.log.Error("monthly close failed", slog.String("month", month), slog.Any("error", err))
		return report, err
	}
	observability.ObserveMonthlyClose("success")
	j.log.Info(
		"monthly close completed",
		slog.String("month", report.Month),
		slog.Int("properties", len(report.Rows)),
		slog.Float64("total_gross_revenue", report.KPIs.TotalGrossRevenue),
		slog.Float64("total_net_revenue", report.KPIs.TotalNetRevenue),
		slog.Int("export_objects", len(report.ExportKeys)),
		slog.Bool("notified", report.Notified),
	)
	return report, nil
}

func (j *Job) run(ctx context.Context, month string) (Report, error) {
	report := Report{Month: month}

	dataset, err := j.generator.Simulate(month)
	if err != nil {
		return report, err
	}
	if err := j.repository.UpsertDataset(ctx, dataset); err != nil {
		return report, fmt.Errorf("persist month %s: %w", month, err)
	}

	report.Rows = Consolidate(dataset)
	report.KPIs = ComputeKPIs(report.Rows)

	keys, err := j.publisher.Publish(ctx, month, report.Rows)
	if err != nil {
		return report, fmt.Errorf("export month %s: %w", month, err)
	}
	report.ExportKeys = keys

	if j.notifier != nil {
		if err := j.notifier.Notify(ctx, NotificationText(month, report.KPIs)); err != nil {
			j.log.Warn("monthly close notification failed", slog.String("month", month), slog.Any("error", err))
		} else {
			report.Notified = true
		}
	}
	return report, nil
}

func NotificationText(month string, kpis KPIs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fechamento mensal %s concluído.", month)
	fmt.Fprintf(&b, " Receita bruta total: R$ %.2f.", kpis.TotalGrossRevenue)
	fmt.Fprintf(&b, " Receita líquida total: R$ %.2f.", kpis.TotalNetRevenue)
	fmt.Fprintf(&b, " Ocupação média: %.2f%%.", kpis.AverageOccupancyPct)
	if len(kpis.TopByGrossRevenue) > 0 {
		parts := make([]string, 0, len(kpis.TopByGrossRevenue))
		for _, top := range kpis.TopByGrossRevenue {
			parts = append(parts, fmt.Sprintf("%s (R$ %.2f)", top.PropertyID, top.GrossRevenue))
		}
		fmt.Fprintf(&b, " Top %d por receita: %s.", len(parts), strings.Join(parts, ", "))
	}
	return b.String()
}
