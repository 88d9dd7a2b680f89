package analytics

import (
	"context"
	"fmt"

	"erwpulse/pkg/contracts/domain"
)

// OverviewMeasuredSpec aggregates the samples that report carbon removal.
func OverviewMeasuredSpec(filter domain.Filter) AggregationSpec {
	filter.Positive = append(append([]domain.Field(nil), filter.Positive...), domain.FieldCDRTYr)
	return AggregationSpec{
		Filter: filter,
		Stats: []StatSpec{
			Sum("total_cdr_t_yr", domain.FieldCDRTYr),
			Avg("avg_cdr_t_yr", domain.FieldCDRTYr),
			Rows("samples_with_cdr"),
			Avg("avg_ph", domain.FieldPH),
			Avg("avg_alkalinity", domain.FieldAlkalinity),
			Avg("avg_rock_addition", domain.FieldRockAddition),
			Avg("avg_omega_final", domain.FieldOmegaFinal),
		},
	}
}

// OverviewCountSpec counts every sample of the dataset.
func OverviewCountSpec(filter domain.Filter) AggregationSpec {
	return AggregationSpec{
		Filter: filter,
		Stats: []StatSpec{
			Rows("total_samples"),
			CountIf("successful", succeeded),
		},
	}
}

// OverviewFromSamples reduces a dataset to its KPI block. CDR figures and
// the chemistry averages only use samples with a positive CDR value, while
// the sample count and success rate use every sample of the dataset.
func OverviewFromSamples(ctx context.Context, samples []domain.Sample, feedstock string, threshold int) (domain.OverviewKPI, error) {
	filter := domain.DatasetFilter(feedstock, threshold)
	kpi := domain.OverviewKPI{Feedstock: feedstock, Threshold: threshold}

	measured, err := Aggregate(ctx, samples, OverviewMeasuredSpec(filter))
	if err != nil {
		return kpi, err
	}
	counts, err := Aggregate(ctx, samples, OverviewCountSpec(filter))
	if err != nil {
		return kpi, err
	}

	m, c := measured[0], counts[0]
	kpi.TotalCDRTYr = m.Value("total_cdr_t_yr")
	kpi.AvgCDRTYr = m.Value("avg_cdr_t_yr")
	kpi.SamplesWithCDR = m.Int("samples_with_cdr")
	kpi.AvgPH = m.Value("avg_ph")
	kpi.AvgAlkalinity = m.Value("avg_alkalinity")
	kpi.AvgRockAddition = m.Value("avg_rock_addition")
	kpi.AvgOmegaFinal = m.Value("avg_omega_final")
	kpi.TotalSamples = c.Int("total_samples")
	kpi.SuccessRate = Rate(c.Int("successful"), kpi.TotalSamples)
	return kpi, nil
}

// Overview loads the dataset from source and reduces it.
func Overview(ctx context.Context, source SampleSource, feedstock string, threshold int) (domain.OverviewKPI, error) {
	samples, err := source.FindSamples(ctx, domain.DatasetFilter(feedstock, threshold), domain.Page{})
	if err != nil {
		return domain.OverviewKPI{Feedstock: feedstock, Threshold: threshold}, fmt.Errorf("load samples: %w", err)
	}
	return OverviewFromSamples(ctx, samples, feedstock, threshold)
}
