package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"feedsync/internal/config"
	"feedsync/internal/db"
	"feedsync/internal/model"
)

const ImportLogTable = "process_import_log"

var validIdent = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Store is the reporting database sink.
type Store interface {
	// ReplaceTable drops and recreates table, then inserts rows.
	ReplaceTable(ctx context.Context, table string, rows []model.ReportRow) error
	// AppendRows creates table when missing and appends rows stamped with importDate.
	AppendRows(ctx context.Context, table string, rows []model.ReportRow, importDate time.Time) error
	Summarize(ctx context.Context, table string) (ImportSummary, error)
	InsertImportLog(ctx context.Context, s ImportSummary) error
	Close()
}

// ImportSummary is one row of the import audit log.
type ImportSummary struct {
	Items      int64
	TotalStock int64
	TotalPrice int64
	Supplier   string
}

// DailyTable names the per supplier, per day table, e.g. ALR_dag_19_Oct_2026.
func DailyTable(supplier string, day time.Time) string {
	return supplier + "_dag_" + day.Format("02_Jan_2006")
}

// New opens the configured database and returns the matching store.
func New(ctx context.Context, cfg config.DatabaseConfig, batchSize int) (Store, error) {
	dsn := cfg.ConnString()
	if cfg.Driver == "pgx" {
		pool, err := db.NewPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect pgx: %w", err)
		}
		return &CopyRepository{DB: pool, BatchSize: batchSize}, nil
	}

	conn, err := db.Open(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &ReportRepository{DB: conn, Dialect: d, BatchSize: batchSize}, nil
}

func checkIdent(name string) error {
	if !validIdent.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}
