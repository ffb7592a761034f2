// Package migrations applies the embedded reporting schema (source tables
// plus the monthly_consolidated view) to Postgres and keeps a ledger of what
// was applied, including a checksum of each up script.
package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const ledgerTable = "reportbot_schema_migrations"

var scriptNamePattern = regexp.MustCompile(`^([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// ErrChecksumMismatch is returned when an applied up script no longer
// matches the embedded one.
var ErrChecksumMismatch = errors.New("applied migration was modified")

type Runner struct {
	fsys   fs.FS
	logger *slog.Logger
}

// NewRunner returns a runner over the embedded scripts. A nil logger
// discards progress lines.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{fsys: embeddedFS, logger: logger}
}

type migration struct {
	Version  int64
	Name     string
	Checksum string
	UpSQL    string
	DownSQL  string
}

type ledgerEntry struct {
	Version  int64
	Name     string
	Checksum string
}

// Status describes one embedded migration against the ledger.
type Status struct {
	Version int64
	Name    string
	Applied bool
	Drifted bool
}

func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	source, ledger, err := r.prepare(ctx, db)
	if err != nil {
		return 0, err
	}
	if err := verifyLedger(source, ledger); err != nil {
		return 0, err
	}

	applied := make(map[int64]struct{}, len(ledger))
	for _, entry := range ledger {
		applied[entry.Version] = struct{}{}
	}

	runCount := 0
	for _, item := range source {
		if _, ok := applied[item.Version]; ok {
			continue
		}
		if steps > 0 && runCount >= steps {
			break
		}
		if err := inTx(ctx, db, item.UpSQL,
			`INSERT INTO `+ledgerTable+` (version, name, checksum) VALUES ($1, $2, $3)`,
			item.Version, item.Name, item.Checksum,
		); err != nil {
			return runCount, fmt.Errorf("apply migration %d_%s: %w", item.Version, item.Name, err)
		}
		r.log().InfoContext(ctx, "migration applied",
			slog.Int64("version", item.Version),
			slog.String("name", item.Name),
			slog.String("checksum", item.Checksum[:12]),
		)
		runCount++
	}
	return runCount, nil
}

func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}
	source, ledger, err := r.prepare(ctx, db)
	if err != nil {
		return 0, err
	}

	lookup := make(map[int64]migration, len(source))
	for _, item := range source {
		lookup[item.Version] = item
	}

	runCount := 0
	for i := len(ledger) - 1; i >= 0 && runCount < steps; i-- {
		entry := ledger[i]
		item, ok := lookup[entry.Version]
		if !ok {
			return runCount, fmt.Errorf("applied migration %d_%s is missing from source", entry.Version, entry.Name)
		}
		if err := inTx(ctx, db, item.DownSQL,
			`DELETE FROM `+ledgerTable+` WHERE version = $1`,
			item.Version,
		); err != nil {
			return runCount, fmt.Errorf("roll back migration %d_%s: %w", item.Version, item.Name, err)
		}
		r.log().InfoContext(ctx, "migration rolled back",
			slog.Int64("version", item.Version),
			slog.String("name", item.Name),
		)
		runCount++
	}
	return runCount, nil
}

// Status lists every embedded migration in version order with its ledger
// state.
func (r *Runner) Status(ctx context.Context, db *sql.DB) ([]Status, error) {
	source, ledger, err := r.prepare(ctx, db)
	if err != nil {
		return nil, err
	}
	byVersion := make(map[int64]ledgerEntry, len(ledger))
	for _, entry := range ledger {
		byVersion[entry.Version] = entry
	}

	out := make([]Status, 0, len(source))
	for _, item := range source {
		entry, ok := byVersion[item.Version]
		out = append(out, Status{
			Version: item.Version,
			Name:    item.Name,
			Applied: ok,
			Drifted: ok && entry.Checksum != item.Checksum,
		})
	}
	return out, nil
}

func (r *Runner) prepare(ctx context.Context, db *sql.DB) ([]migration, []ledgerEntry, error) {
	source, err := loadMigrations(r.fsys)
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+ledgerTable+` (
	version BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return nil, nil, fmt.Errorf("ensure migration ledger: %w", err)
	}
	ledger, err := readLedger(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	return source, ledger, nil
}

func (r *Runner) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.logger
}

func verifyLedger(source []migration, ledger []ledgerEntry) error {
	byVersion := make(map[int64]migration, len(source))
	for _, item := range source {
		byVersion[item.Version] = item
	}
	for _, entry := range ledger {
		item, ok := byVersion[entry.Version]
		if !ok {
			continue
		}
		if item.Checksum != entry.Checksum {
			return fmt.Errorf("%w: %d_%s", ErrChecksumMismatch, entry.Version, entry.Name)
		}
	}
	return nil
}

// inTx runs a migration script and its ledger statement atomically.
func inTx(ctx context.Context, db *sql.DB, script, ledgerSQL string, args ...any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("run script: %w", err)
	}
	if _, err := tx.ExecContext(ctx, ledgerSQL, args...); err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func readLedger(ctx context.Context, db *sql.DB) ([]ledgerEntry, error) {
	rows, err := db.QueryContext(ctx, `SELECT version, name, checksum FROM `+ledgerTable+` ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("query migration ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []ledgerEntry
	for rows.Next() {
		var entry ledgerEntry
		if err := rows.Scan(&entry.Version, &entry.Name, &entry.Checksum); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return entries, nil
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, "sql")
	if err != nil {
		return nil, fmt.Errorf("read migration dir: %w", err)
	}

	items := map[int64]migration{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := path.Base(entry.Name())
		matches := scriptNamePattern.FindStringSubmatch(base)
		if matches == nil {
			continue
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version for %q: %w", base, err)
		}
		script, err := fs.ReadFile(fsys, path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", base, err)
		}

		item := items[version]
		if item.Name != "" && item.Name != matches[2] {
			return nil, fmt.Errorf("migration %d has mismatched names %q and %q", version, item.Name, matches[2])
		}
		item.Version = version
		item.Name = matches[2]
		if matches[3] == "up" {
			item.UpSQL = string(script)
			item.Checksum = checksum(script)
		} else {
			item.DownSQL = string(script)
		}
		items[version] = item
	}

	out := make([]migration, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.UpSQL) == "" {
			return nil, fmt.Errorf("migration %d missing up SQL", item.Version)
		}
		if strings.TrimSpace(item.DownSQL) == "" {
			return nil, fmt.Errorf("migration %d missing down SQL", item.Version)
		}
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b migration) int {
		switch {
		case a.Version < b.Version:
			return -1
		case a.Version > b.Version:
			return 1
		}
		return 0
	})
	return out, nil
}

func checksum(script []byte) string {
	sum := sha256.Sum256(script)
	return hex.EncodeToString(sum[:])
}
