package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reportbot/reportbot/internal/query"
)

// Engine runs validated statements against Postgres inside a read-only
// transaction on a connection it owns for the duration of the call.
type Engine struct {
	DB               *sql.DB
	StatementTimeout time.Duration
}

func NewEngine(db *sql.DB, statementTimeout time.Duration) *Engine {
	return &Engine{DB: db, StatementTimeout: statementTimeout}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (result query.Result, err error) {
	if e.DB == nil {
		return query.Result{}, fmt.Errorf("database is required")
	}
	if strings.TrimSpace(request.SQL) == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if e.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.StatementTimeout)
		defer cancel()
	}

	start := time.Now()
	conn, err := e.DB.Conn(ctx)
	if err != nil {
		return query.Result{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("release connection: %w", closeErr)
		}
	}()

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return query.Result{}, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) && err == nil {
			err = fmt.Errorf("rollback read-only transaction: %w", rollbackErr)
		}
	}()

	rows, err := tx.QueryContext(ctx, request.SQL)
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
