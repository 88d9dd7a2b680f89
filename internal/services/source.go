package services

import (
	"context"

	"erwpulse/internal/infrastructure"
	"erwpulse/internal/store"
	"erwpulse/pkg/contracts/domain"
)

// guardedReader turns store failures into upstream errors and counts them.
// It satisfies both store.SampleReader and analytics.SampleSource.
type guardedReader struct {
	reader  store.SampleReader
	metrics *infrastructure.BusinessMetrics
}

func (g guardedReader) fail(ctx context.Context, op string, err error) error {
	err = upstreamError(op, err)
	if err != nil && ctx.Err() == nil {
		g.metrics.RecordStoreError(ctx, op)
	}
	return err
}

func (g guardedReader) FindSamples(ctx context.Context, filter domain.Filter, page domain.Page) ([]domain.Sample, error) {
	out, err := g.reader.FindSamples(ctx, filter, page)
	return out, g.fail(ctx, "find_samples", err)
}

func (g guardedReader) CountSamples(ctx context.Context, filter domain.Filter) (int, error) {
	n, err := g.reader.CountSamples(ctx, filter)
	return n, g.fail(ctx, "count_samples", err)
}

func (g guardedReader) Thresholds(ctx context.Context, filter domain.Filter) ([]int, error) {
	out, err := g.reader.Thresholds(ctx, filter)
	return out, g.fail(ctx, "thresholds", err)
}

func (g guardedReader) Distinct(ctx context.Context, field domain.Field, filter domain.Filter) ([]string, error) {
	out, err := g.reader.Distinct(ctx, field, filter)
	return out, g.fail(ctx, "distinct_"+string(field), err)
}

func (g guardedReader) FindSummaries(ctx context.Context, filter domain.SummaryFilter) ([]domain.SummaryRecord, error) {
	out, err := g.reader.FindSummaries(ctx, filter)
	return out, g.fail(ctx, "find_summaries", err)
}

func (g guardedReader) ListFeedstocks(ctx context.Context) ([]domain.Feedstock, error) {
	out, err := g.reader.ListFeedstocks(ctx)
	return out, g.fail(ctx, "list_feedstocks", err)
}
