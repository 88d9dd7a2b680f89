// Package store defines the sample store used by the dashboard and ingest
// services and opens the configured backend.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"erwpulse/internal/config"
	"erwpulse/internal/store/memory"
	"erwpulse/internal/store/sqlstore"
	"erwpulse/pkg/contracts/domain"
)

// SampleReader is the read side of the store.
type SampleReader interface {
	FindSamples(ctx context.Context, filter domain.Filter, page domain.Page) ([]domain.Sample, error)
	CountSamples(ctx context.Context, filter domain.Filter) (int, error)
	Thresholds(ctx context.Context, filter domain.Filter) ([]int, error)
	Distinct(ctx context.Context, field domain.Field, filter domain.Filter) ([]string, error)
	FindSummaries(ctx context.Context, filter domain.SummaryFilter) ([]domain.SummaryRecord, error)
	ListFeedstocks(ctx context.Context) ([]domain.Feedstock, error)
}

// Store is a sample store. Samples and summaries are append-only; the
// feedstock registry only grows.
type Store interface {
	SampleReader
	InsertSamples(ctx context.Context, samples []domain.Sample) error
	InsertSummaries(ctx context.Context, records []domain.SummaryRecord) error
	RegisterFeedstock(ctx context.Context, name string, threshold, samples int) (domain.Feedstock, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqlstore.Store)(nil)
)

// Open returns the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case config.StoreMemory, "":
		return memory.New(), nil
	case config.StoreSQLite, config.StorePostgres:
		s, err := sqlstore.Open(ctx, sqlstore.Options{
			Driver:       cfg.Driver,
			DSN:          cfg.DSN,
			MaxOpenConns: cfg.MaxOpenConns,
			PingTimeout:  cfg.PingTimeout,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %q", cfg.Driver)
	}
}
