package analytics

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"erwpulse/pkg/contracts/domain"
)

// SampleSource is the read path into the sample store.
type SampleSource interface {
	FindSamples(ctx context.Context, filter domain.Filter, page domain.Page) ([]domain.Sample, error)
	Thresholds(ctx context.Context, filter domain.Filter) ([]int, error)
}

// DefaultComparisonWorkers bounds concurrent passes when none is configured.
const DefaultComparisonWorkers = 4

// comparisonRegionLimit caps the per-threshold region list.
const comparisonRegionLimit = 50

// Comparer builds the threshold comparison for a feedstock.
type Comparer struct {
	source  SampleSource
	workers int
}

// NewComparer creates a Comparer running at most workers passes at once.
func NewComparer(source SampleSource, workers int) *Comparer {
	if workers <= 0 {
		workers = DefaultComparisonWorkers
	}
	return &Comparer{source: source, workers: workers}
}

// CompareThresholds is Comparer.Compare with the default worker count.
func CompareThresholds(ctx context.Context, source SampleSource, feedstock string) ([]domain.ComparisonResult, error) {
	return NewComparer(source, DefaultComparisonWorkers).Compare(ctx, feedstock)
}

// ComparisonTotalsSpec is the ungrouped pass of a comparison.
func ComparisonTotalsSpec(filter domain.Filter) AggregationSpec {
	return AggregationSpec{
		Filter: filter,
		Stats: []StatSpec{
			Sum("total_cdr", domain.FieldCDRTYr),
			Avg("avg_rock_add", domain.FieldRockAddition),
			Rows("count"),
		},
	}
}

// ComparisonRegionSpec is the region-grouped pass of a comparison.
func ComparisonRegionSpec(filter domain.Filter) AggregationSpec {
	return AggregationSpec{
		GroupBy: domain.FieldRegion,
		Filter:  filter,
		Stats: []StatSpec{
			Sum("total_cdr", domain.FieldCDRTYr),
			Avg("avg_cdr", domain.FieldCDRTYr),
			Avg("avg_rock_add", domain.FieldRockAddition),
			Rows("count"),
			CountIf("successful", succeeded),
		},
		SortBy: "total_cdr",
		Limit:  comparisonRegionLimit,
	}
}

func succeeded(s *domain.Sample) bool {
	return s.SuccessFlag.Is(1)
}

// Compare runs a totals pass and a per-region pass for every threshold
// loaded for feedstock. Passes run concurrently; output is ordered by
// ascending threshold regardless of completion order. Any failure or
// cancellation discards every partial result.
func (c *Comparer) Compare(ctx context.Context, feedstock string) ([]domain.ComparisonResult, error) {
	base := domain.Filter{Feedstock: feedstock}
	thresholds, err := c.source.Thresholds(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}
	thresholds = uniqueSorted(thresholds)

	totals := make([]AggregateResult, len(thresholds))
	regions := make([][]domain.RegionComparison, len(thresholds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, t := range thresholds {
		filter := base.WithThreshold(t)
		g.Go(func() error {
			res, err := c.pass(gctx, filter, ComparisonTotalsSpec(filter))
			if err != nil {
				return fmt.Errorf("totals for threshold %d: %w", t, err)
			}
			totals[i] = res[0]
			return nil
		})
		g.Go(func() error {
			res, err := c.pass(gctx, filter, ComparisonRegionSpec(filter))
			if err != nil {
				return fmt.Errorf("regions for threshold %d: %w", t, err)
			}
			regions[i] = regionRows(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.ComparisonResult, len(thresholds))
	for i, t := range thresholds {
		out[i] = domain.ComparisonResult{
			Threshold:    t,
			TotalCDR:     totals[i].Value("total_cdr"),
			AvgRockAdd:   totals[i].Value("avg_rock_add"),
			TotalSamples: totals[i].Int("count"),
			Regions:      regions[i],
		}
	}
	return out, nil
}

func (c *Comparer) pass(ctx context.Context, filter domain.Filter, spec AggregationSpec) ([]AggregateResult, error) {
	samples, err := c.source.FindSamples(ctx, filter, domain.Page{})
	if err != nil {
		return nil, err
	}
	return Aggregate(ctx, samples, spec)
}

func regionRows(results []AggregateResult) []domain.RegionComparison {
	rows := make([]domain.RegionComparison, 0, len(results))
	for _, r := range results {
		count := r.Int("count")
		rows = append(rows, domain.RegionComparison{
			Region:      r.Key,
			TotalCDR:    r.Value("total_cdr"),
			AvgCDR:      r.Value("avg_cdr"),
			AvgRockAdd:  r.Value("avg_rock_add"),
			Count:       count,
			SuccessRate: Rate(r.Int("successful"), count),
		})
	}
	return rows
}

func uniqueSorted(values []int) []int {
	out := append([]int(nil), values...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i > 0 && v == out[n-1] {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}
