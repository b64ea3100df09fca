package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"feedsync/internal/config"
	"feedsync/internal/dropbox"
	"feedsync/internal/export"
	"feedsync/internal/feed"
	"feedsync/internal/model"
	"feedsync/internal/observability"
	"feedsync/internal/repository"
	"feedsync/internal/transform"
)

type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

type Uploader interface {
	Upload(ctx context.Context, localPath, remotePath string) error
}

// Pipeline runs one feed import from download to database.
type Pipeline struct {
	Config   *config.Config
	Fetcher  Fetcher
	Uploader Uploader
	// OpenStore connects to the reporting database when the database stage starts.
	OpenStore func(ctx context.Context) (repository.Store, error)
	Logger    logrus.FieldLogger
	Metrics   *observability.Metrics
	RunID     string
	Now       func() time.Time
}

// Summary describes a finished run. It is logged and stored as the last run.
type Summary struct {
	RunID        string                    `json:"run_id"`
	Supplier     string                    `json:"supplier"`
	StartedAt    time.Time                 `json:"started_at"`
	FinishedAt   time.Time                 `json:"finished_at"`
	FeedFile     string                    `json:"feed_file"`
	Read         int                       `json:"read"`
	Kept         int                       `json:"kept"`
	DroppedStock int                       `json:"dropped_stock"`
	DroppedEAN   int                       `json:"dropped_ean"`
	Uploaded     []string                  `json:"uploaded"`
	Table        string                    `json:"table"`
	Audit        *repository.ImportSummary `json:"audit,omitempty"`
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run executes the stages in order and stops at the first failure.
// Files written before a failure are left in place.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	cfg := p.Config
	started := p.now()
	log := p.Logger.WithFields(logrus.Fields{"run_id": p.RunID, "supplier": cfg.Supplier})
	sum := &Summary{RunID: p.RunID, Supplier: cfg.Supplier, StartedAt: started}

	var (
		table    *feed.Table
		products []model.Product
	)

	err := p.stage(log, "fetch", func() error {
		local, err := p.Fetcher.Fetch(ctx)
		sum.FeedFile = local
		return err
	})
	if err != nil {
		return sum, err
	}

	err = p.stage(log, "parse", func() error {
		var err error
		table, err = feed.ParseFile(sum.FeedFile)
		return err
	})
	if err != nil {
		return sum, err
	}

	err = p.stage(log, "transform", func() error {
		var (
			stats transform.Stats
			err   error
		)
		products, stats, err = transform.Run(table, transform.Options{
			DiscountPercent: cfg.DiscountPercent,
			SKUPrefix:       cfg.Feed.SKUPrefix,
		})
		if err != nil {
			return err
		}
		sum.Read, sum.Kept = stats.Read, stats.Kept
		sum.DroppedStock, sum.DroppedEAN = stats.DroppedStock, stats.DroppedEAN
		if p.Metrics != nil {
			p.Metrics.RowsRead.Add(float64(stats.Read))
			p.Metrics.RowsKept.Add(float64(stats.Kept))
			p.Metrics.RowsDropped.WithLabelValues("stock").Add(float64(stats.DroppedStock))
			p.Metrics.RowsDropped.WithLabelValues("ean").Add(float64(stats.DroppedEAN))
		}
		log.WithFields(logrus.Fields{
			"read": stats.Read, "kept": stats.Kept,
			"dropped_stock": stats.DroppedStock, "dropped_ean": stats.DroppedEAN,
		}).Info("feed transformed")
		return nil
	})
	if err != nil {
		return sum, err
	}

	err = p.stage(log, "basic_csv", func() error {
		name := export.BasicFileName(cfg.Supplier, started)
		local := filepath.Join(cfg.WorkDir, name)
		if err := export.WriteBasicCSV(local, products); err != nil {
			return err
		}
		return p.upload(ctx, sum, local, dropbox.DatafilesPath(cfg.Supplier, name))
	})
	if err != nil {
		return sum, err
	}

	if cfg.Export.XLSX {
		err = p.stage(log, "xlsx", func() error {
			name := export.XLSXFileName(cfg.Supplier, started)
			local := filepath.Join(cfg.WorkDir, name)
			if err := export.WriteXLSX(local, products); err != nil {
				return err
			}
			return p.upload(ctx, sum, local, dropbox.DatafilesPath(cfg.Supplier, name))
		})
		if err != nil {
			return sum, err
		}
	}

	if cfg.Export.Vendit {
		err = p.stage(log, "vendit", func() error {
			name := export.VenditFileName(cfg.Supplier)
			local := filepath.Join(cfg.WorkDir, name)
			if err := export.WriteVenditCSV(local, products, cfg.Supplier); err != nil {
				return err
			}
			return p.upload(ctx, sum, local, dropbox.VenditPath(name))
		})
		if err != nil {
			return sum, err
		}
	}

	err = p.stage(log, "database", func() error {
		return p.writeDatabase(ctx, log, sum, products, started)
	})
	if err != nil {
		return sum, err
	}

	sum.FinishedAt = p.now()
	if p.Metrics != nil {
		p.Metrics.LastSuccess.Set(float64(sum.FinishedAt.Unix()))
	}
	log.WithFields(logrus.Fields{
		"kept": sum.Kept, "table": sum.Table, "took": sum.FinishedAt.Sub(started).String(),
	}).Info("feed import finished")
	return sum, nil
}

func (p *Pipeline) writeDatabase(ctx context.Context, log logrus.FieldLogger, sum *Summary, products []model.Product, now time.Time) error {
	cfg := p.Config
	store, err := p.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer store.Close()

	rows := make([]model.ReportRow, len(products))
	for i, prod := range products {
		rows[i] = prod.ToReportRow()
	}

	if cfg.Export.DBMode == config.DBModeShared {
		sum.Table = cfg.Export.SharedTable
		return store.AppendRows(ctx, sum.Table, rows, now)
	}

	sum.Table = repository.DailyTable(cfg.Supplier, now)
	if err := store.ReplaceTable(ctx, sum.Table, rows); err != nil {
		return err
	}
	audit, err := store.Summarize(ctx, sum.Table)
	if err != nil {
		return err
	}
	audit.Supplier = cfg.Supplier
	if err := store.InsertImportLog(ctx, audit); err != nil {
		return err
	}
	sum.Audit = &audit
	log.WithFields(logrus.Fields{
		"table": sum.Table, "items": audit.Items, "total_stock": audit.TotalStock, "total_price": audit.TotalPrice,
	}).Info("import logged")
	return nil
}

func (p *Pipeline) upload(ctx context.Context, sum *Summary, local, remote string) error {
	if err := p.Uploader.Upload(ctx, local, remote); err != nil {
		return err
	}
	sum.Uploaded = append(sum.Uploaded, remote)
	if p.Metrics != nil {
		p.Metrics.FilesUploaded.Inc()
	}
	return nil
}

func (p *Pipeline) stage(log logrus.FieldLogger, name string, fn func() error) error {
	start := time.Now()
	slog := log.WithField("stage", name)
	slog.Debug("stage started")

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if p.Metrics != nil {
		p.Metrics.ObserveStage(name, start)
	}
	slog.WithField("took", time.Since(start).String()).Info("stage finished")
	return nil
}
