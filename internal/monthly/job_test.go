package monthly

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRepository struct {
	datasets []Dataset
	err      error
}

func (f *fakeRepository) UpsertDataset(_ context.Context, dataset Dataset) error {
	f.datasets = append(f.datasets, dataset)
	return f.err
}

type fakePublisher struct {
	months []string
	rows   int
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, month string, rows []Consolidated) ([]string, error) {
	f.months = append(f.months, month)
	f.rows = len(rows)
	if f.err != nil {
		return nil, f.err
	}
	return []string{"monthly_consolidated/month=" + month + "/monthly_consolidated_" + month + ".parquet"}, nil
}

type fakeNotifier struct {
	contents []string
	err      error
}

func (f *fakeNotifier) Notify(_ context.Context, content string) error {
	f.contents = append(f.contents, content)
	return f.err
}

func TestJobRunPersistsExportsAndNotifies(t *testing.T) {
	repo := &fakeRepository{}
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}
	job, err := NewJob(NewGenerator(3, 30), repo, publisher, notifier, nil)
	if err != nil {
		t.Fatalf("NewJob() error = %v", err)
	}

	report, err := job.Run(context.Background(), "2025-03")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(repo.datasets) != 1 || repo.datasets[0].Month != "2025-03" {
		t.Fatalf("repository calls = %+v", repo.datasets)
	}
	if publisher.rows != 30 || len(report.Rows) != 30 {
		t.Fatalf("published rows = %d, report rows = %d, want 30", publisher.rows, len(report.Rows))
	}
	if len(report.ExportKeys) != 1 {
		t.Fatalf("ExportKeys = %v", report.ExportKeys)
	}
	if !report.Notified || len(notifier.contents) != 1 {
		t.Fatalf("notified = %v, contents = %v", report.Notified, notifier.contents)
	}
	if !strings.HasPrefix(notifier.contents[0], "Fechamento mensal 2025-03 concluído.") {
		t.Fatalf("notification = %q", notifier.contents[0])
	}
}

func TestJobRunStopsWhenPersistenceFails(t *testing.T) {
	repo := &fakeRepository{err: errors.New("db down")}
	publisher := &fakePublisher{}
	job, err := NewJob(NewGenerator(3, 5), repo, publisher, nil, nil)
	if err != nil {
		t.Fatalf("NewJob() error = %v", err)
	}

	if _, err := job.Run(context.Background(), "2025-03"); err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("Run() error = %v, want persistence failure", err)
	}
	if len(publisher.months) != 0 {
		t.Fatalf("publisher called %d times, want 0", len(publisher.months))
	}
}

func TestJobRunToleratesNotificationFailure(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("webhook 500")}
	job, err := NewJob(NewGenerator(3, 5), &fakeRepository{}, &fakePublisher{}, notifier, nil)
	if err != nil {
		t.Fatalf("NewJob() error = %v", err)
	}

	report, err := job.Run(context.Background(), "2025-03")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Notified {
		t.Fatalf("Notified = true, want false after webhook failure")
	}
}

func TestNewJobRequiresDependencies(t *testing.T) {
	if _, err := NewJob(nil, &fakeRepository{}, &fakePublisher{}, nil, nil); err == nil {
		t.Fatalf("NewJob(nil generator) error = nil")
	}
	if _, err := NewJob(NewGenerator(1, 1), nil, &fakePublisher{}, nil, nil); err == nil {
		t.Fatalf("NewJob(nil repository) error = nil")
	}
	if _, err := NewJob(NewGenerator(1, 1), &fakeRepository{}, nil, nil, nil); err == nil {
		t.Fatalf("NewJob(nil publisher) error = nil")
	}
}

func TestNotificationText(t *testing.T) {
	text := NotificationText("2025-03", KPIs{
		TotalGrossRevenue:   1234.5,
		TotalNetRevenue:     1000,
		AverageOccupancyPct: 42.1,
		TopByGrossRevenue:   []RankedProperty{{PropertyID: "P0001", GrossRevenue: 900}},
	})
	want := "Fechamento mensal 2025-03 concluído. Receita bruta total: R$ 1234.50. Receita líquida total: R$ 1000.00. Ocupação média: 42.10%. Top 1 por receita: P0001 (R$ 900.00)."
	if text != want {
		t.Fatalf("NotificationText() = %q, want %q", text, want)
	}
}
