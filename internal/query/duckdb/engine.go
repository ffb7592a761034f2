package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/reportbot/reportbot/internal/query"
	"github.com/reportbot/reportbot/internal/storage"
)

// Engine answers validated statements from the latest parquet snapshot of
// the reporting table. Each call builds a private in-memory database and
// tears it down afterwards.
type Engine struct {
	Store            storage.ObjectStore
	SnapshotKey      string
	Table            string
	StatementTimeout time.Duration
}

func NewEngine(store storage.ObjectStore, snapshotKey, table string, statementTimeout time.Duration) *Engine {
	return &Engine{Store: store, SnapshotKey: snapshotKey, Table: table, StatementTimeout: statementTimeout}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	if strings.TrimSpace(request.SQL) == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if e.Store == nil {
		return query.Result{}, fmt.Errorf("object store is required")
	}
	if strings.TrimSpace(e.SnapshotKey) == "" || strings.TrimSpace(e.Table) == "" {
		return query.Result{}, fmt.Errorf("snapshot key and table are required")
	}
	if e.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.StatementTimeout)
		defer cancel()
	}

	start := time.Now()
	workDir, err := os.MkdirTemp("", "reportbot-query-")
	if err != nil {
		return query.Result{}, fmt.Errorf("create query temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	localPath := filepath.Join(workDir, sanitizeFileComponent(e.Table)+".parquet")
	if err := e.download(ctx, localPath); err != nil {
		return query.Result{}, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return query.Result{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	conn, err := db.Conn(ctx)
	if err != nil {
		return query.Result{}, fmt.Errorf("acquire duckdb connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	setup := []string{
		fmt.Sprintf(`CREATE TABLE %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(e.Table), quoteString(localPath)),
		`SET enable_external_access = false`,
		`SET lock_configuration = true`,
	}
	for _, statement := range setup {
		if _, err := conn.ExecContext(ctx, statement); err != nil {
			return query.Result{}, fmt.Errorf("prepare snapshot database: %w", err)
		}
	}

	rows, err := conn.QueryContext(ctx, request.SQL)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, resultRows, truncated, err := query.ReadBounded(rows, request.RowLimit)
	if err != nil {
		return query.Result{}, fmt.Errorf("read rows: %w", err)
	}

	return query.Result{
		Columns:   columns,
		Rows:      resultRows,
		Truncated: truncated,
		Duration:  time.Since(start),
	}, nil
}

// download copies the snapshot object to localPath. A partial file is never
// left behind for read_parquet to pick up.
func (e *Engine) download(ctx context.Context, localPath string) (err error) {
	reader, err := e.Store.Get(ctx, e.SnapshotKey)
	if err != nil {
		return fmt.Errorf("get snapshot %q: %w", e.SnapshotKey, err)
	}
	defer func() { _ = reader.Close() }()

	file, err := os.OpenFile(localPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create local snapshot %q: %w", localPath, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(localPath)
		}
	}()

	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write local snapshot %q: %w", localPath, err)
	}
	if written == 0 {
		return fmt.Errorf("snapshot %q is empty", e.SnapshotKey)
	}
	return nil
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "snapshot"
	}
	return value
}
