package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feedsync/internal/model"
)

// CopyRepository writes report tables to PostgreSQL with COPY.
type CopyRepository struct {
	DB        *pgxpool.Pool
	BatchSize int
}

var pgDialect, _ = dialectFor("pgx")

func (r *CopyRepository) ReplaceTable(ctx context.Context, table string, rows []model.ReportRow) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+pgDialect.quote(table)); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	if _, err := tx.Exec(ctx, pgDialect.createTable(table, reportColumns, true, false)); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	if err := r.copy(ctx, tx, table, reportColumns, rows, nil); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *CopyRepository) AppendRows(ctx context.Context, table string, rows []model.ReportRow, importDate time.Time) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	cols := append(append([]reportColumn{}, reportColumns...), importDateColumn)

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, pgDialect.createTable(table, cols, false, true)); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	if err := r.copy(ctx, tx, table, cols, rows, []any{importDate}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *CopyRepository) copy(ctx context.Context, tx pgx.Tx, table string, cols []reportColumn, rows []model.ReportRow, extra []any) error {
	names := copyColumns(cols)
	return inBatches(len(rows), r.BatchSize, func(lo, hi int) error {
		values := copyRows(rows[lo:hi], extra)
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, names, pgx.CopyFromRows(values)); err != nil {
			return fmt.Errorf("copy rows %d-%d into %s: %w", lo, hi, table, err)
		}
		return nil
	})
}

func (r *CopyRepository) Summarize(ctx context.Context, table string) (ImportSummary, error) {
	if err := checkIdent(table); err != nil {
		return ImportSummary{}, err
	}
	var (
		count        int64
		stock, price float64
	)
	if err := r.DB.QueryRow(ctx, pgDialect.summarize(table)).Scan(&count, &stock, &price); err != nil {
		return ImportSummary{}, fmt.Errorf("summarize %s: %w", table, err)
	}
	return ImportSummary{Items: count, TotalStock: int64(stock), TotalPrice: int64(price)}, nil
}

func (r *CopyRepository) InsertImportLog(ctx context.Context, s ImportSummary) error {
	if _, err := r.DB.Exec(ctx, pgDialect.createImportLog()); err != nil {
		return fmt.Errorf("create %s: %w", ImportLogTable, err)
	}
	_, err := r.DB.Exec(ctx, pgDialect.insertImportLog(), s.Items, s.TotalStock, s.TotalPrice, s.Supplier)
	if err != nil {
		return fmt.Errorf("insert %s: %w", ImportLogTable, err)
	}
	return nil
}

func (r *CopyRepository) Close() {
	r.DB.Close()
}

func copyColumns(cols []reportColumn) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

func copyRows(rows []model.ReportRow, extra []any) [][]any {
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, append(reportValues(row), extra...))
	}
	return values
}
