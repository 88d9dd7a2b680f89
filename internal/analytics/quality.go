package analytics

import (
	"context"
	"math"

	"erwpulse/pkg/contracts/domain"
)

// NICB bucket edges, in percent charge imbalance.
const (
	NICBGood       = 5.0
	NICBAcceptable = 10.0
)

func nicbWithin5(s *domain.Sample) bool {
	return math.Abs(s.NICB.Value) <= NICBGood
}

func nicbWithin10(s *domain.Sample) bool {
	a := math.Abs(s.NICB.Value)
	return a > NICBGood && a <= NICBAcceptable
}

func nicbBeyond10(s *domain.Sample) bool {
	return math.Abs(s.NICB.Value) > NICBAcceptable
}

// NICBSpec buckets charge-balance error per group. Samples without an NICB
// value or without a group key are not counted at all.
func NICBSpec(groupBy domain.Field, filter domain.Filter) AggregationSpec {
	filter.NotNull = append(append([]domain.Field(nil), filter.NotNull...), domain.FieldNICB)
	if groupBy != "" {
		filter.NotEmpty = append(append([]domain.Field(nil), filter.NotEmpty...), groupBy)
	}
	return AggregationSpec{
		GroupBy: groupBy,
		Filter:  filter,
		Stats: []StatSpec{
			Rows("count"),
			CountIf("within_5", nicbWithin5),
			CountIf("within_10", nicbWithin10),
			CountIf("beyond_10", nicbBeyond10),
		},
		KeyAscending: true,
	}
}

// ClassifyNICB reports NICB quality buckets per group, ordered by group key.
func ClassifyNICB(ctx context.Context, samples []domain.Sample, groupBy domain.Field) ([]domain.NICBQuality, error) {
	results, err := Aggregate(ctx, samples, NICBSpec(groupBy, domain.Filter{}))
	if err != nil {
		return nil, err
	}
	out := make([]domain.NICBQuality, 0, len(results))
	for _, r := range results {
		if r.Rows == 0 {
			continue
		}
		out = append(out, qualityRow(r))
	}
	return out, nil
}

// ClassifyGroup buckets a single group of samples.
func ClassifyGroup(ctx context.Context, samples []domain.Sample) (domain.NICBQuality, error) {
	results, err := Aggregate(ctx, samples, NICBSpec("", domain.Filter{}))
	if err != nil {
		return domain.NICBQuality{}, err
	}
	if len(results) == 0 {
		return domain.NICBQuality{}, nil
	}
	return qualityRow(results[0]), nil
}

func qualityRow(r AggregateResult) domain.NICBQuality {
	count := r.Int("count")
	q := domain.NICBQuality{
		Basin:    r.Key,
		Count:    count,
		Within5:  r.Int("within_5"),
		Within10: r.Int("within_10"),
		Beyond10: r.Int("beyond_10"),
	}
	q.PctWithin5 = Round1(Rate(q.Within5, count))
	q.PctWithin10 = Round1(Rate(q.Within10, count))
	q.PctBeyond10 = Round1(Rate(q.Beyond10, count))
	return q
}
