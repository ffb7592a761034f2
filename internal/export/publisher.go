package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/reportbot/reportbot/internal/monthly"
	"github.com/reportbot/reportbot/internal/storage"
)

const (
	DefaultDataset = "monthly_consolidated"

	// Object metadata keys set on every export upload.
	MetadataMonth = "month"
	MetadataRows  = "rows"

	parquetContentType = "application/vnd.apache.parquet"
	csvContentType     = "text/csv"
)

type Publisher struct {
	store   storage.ObjectStore
	dataset string
	log     *slog.Logger
}

func NewPublisher(store storage.ObjectStore, dataset string, logger *slog.Logger) (*Publisher, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if dataset == "" {
		dataset = DefaultDataset
	}
	if _, err := storage.BuildSnapshotPath(dataset); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Publisher{store: store, dataset: dataset, log: logger}, nil
}

// Publish uploads the month as parquet and CSV, then replaces the latest
// snapshot with the same parquet payload. It returns the keys in write order.
func (p *Publisher) Publish(ctx context.Context, month string, rows []monthly.Consolidated) ([]string, error) {
	parquetKey, err := storage.BuildMonthExportPath(p.dataset, month, "parquet")
	if err != nil {
		return nil, err
	}
	csvKey, err := storage.BuildMonthExportPath(p.dataset, month, "csv")
	if err != nil {
		return nil, err
	}
	snapshotKey, err := storage.BuildSnapshotPath(p.dataset)
	if err != nil {
		return nil, err
	}

	parquetData, err := EncodeParquet(rows)
	if err != nil {
		return nil, err
	}
	csvData, err := EncodeCSV(rows)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		MetadataMonth: month,
		MetadataRows:  strconv.Itoa(len(rows)),
	}
	uploads := []struct {
		key         string
		payload     []byte
		contentType string
	}{
		{key: parquetKey, payload: parquetData, contentType: parquetContentType},
		{key: csvKey, payload: csvData, contentType: csvContentType},
		{key: snapshotKey, payload: parquetData, contentType: parquetContentType},
	}

	keys := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		info, err := storage.PutBytes(ctx, p.store, upload.key, upload.payload, storage.PutOptions{
			ContentType: upload.contentType,
			Metadata:    metadata,
		})
		if err != nil {
			return keys, fmt.Errorf("upload %s: %w", upload.key, err)
		}
		p.log.Info("uploaded export object", slog.String("key", upload.key), slog.Int64("size", info.Size))
		keys = append(keys, upload.key)
	}
	return keys, nil
}
