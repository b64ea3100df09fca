package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedsync/internal/model"
)

// ReportRepository writes report tables through database/sql
// (MariaDB/MySQL, PostgreSQL via lib/pq, SQLite).
type ReportRepository struct {
	DB        *sql.DB
	Dialect   Dialect
	BatchSize int
}

func (r *ReportRepository) ReplaceTable(ctx context.Context, table string, rows []model.ReportRow) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+r.Dialect.quote(table)); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, r.Dialect.createTable(table, reportColumns, true, false)); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	if err := r.insert(ctx, tx, table, reportColumns, rows, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ReportRepository) AppendRows(ctx context.Context, table string, rows []model.ReportRow, importDate time.Time) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	cols := append(append([]reportColumn{}, reportColumns...), importDateColumn)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.Dialect.createTable(table, cols, false, true)); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	if err := r.insert(ctx, tx, table, cols, rows, []any{importDate}); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ReportRepository) insert(ctx context.Context, tx *sql.Tx, table string, cols []reportColumn, rows []model.ReportRow, extra []any) error {
	return inBatches(len(rows), r.BatchSize, func(lo, hi int) error {
		args := make([]any, 0, (hi-lo)*len(cols))
		for _, row := range rows[lo:hi] {
			args = append(args, reportValues(row)...)
			args = append(args, extra...)
		}
		if _, err := tx.ExecContext(ctx, r.Dialect.insertRows(table, cols, hi-lo), args...); err != nil {
			return fmt.Errorf("insert rows %d-%d into %s: %w", lo, hi, table, err)
		}
		return nil
	})
}

// Summarize counts the rows of table and sums its stock and price columns.
// Sums are truncated to whole numbers.
func (r *ReportRepository) Summarize(ctx context.Context, table string) (ImportSummary, error) {
	if err := checkIdent(table); err != nil {
		return ImportSummary{}, err
	}
	var (
		count        int64
		stock, price float64
	)
	if err := r.DB.QueryRowContext(ctx, r.Dialect.summarize(table)).Scan(&count, &stock, &price); err != nil {
		return ImportSummary{}, fmt.Errorf("summarize %s: %w", table, err)
	}
	return ImportSummary{Items: count, TotalStock: int64(stock), TotalPrice: int64(price)}, nil
}

func (r *ReportRepository) InsertImportLog(ctx context.Context, s ImportSummary) error {
	if _, err := r.DB.ExecContext(ctx, r.Dialect.createImportLog()); err != nil {
		return fmt.Errorf("create %s: %w", ImportLogTable, err)
	}
	_, err := r.DB.ExecContext(ctx, r.Dialect.insertImportLog(), s.Items, s.TotalStock, s.TotalPrice, s.Supplier)
	if err != nil {
		return fmt.Errorf("insert %s: %w", ImportLogTable, err)
	}
	return nil
}

func (r *ReportRepository) Close() {
	r.DB.Close()
}
