package analytics

import (
	"context"
	"sort"
	"strings"

	"erwpulse/pkg/contracts/domain"
)

// Panel limits.
const (
	panelGroupLimit = 50
	DefaultRiverTop = 20
	MaxRiverTop     = 200
)

// BasinSpec is the per-region chemistry rollup, highest alkalinity first.
func BasinSpec() AggregationSpec {
	return AggregationSpec{
		GroupBy: domain.FieldRegion,
		Filter:  domain.Filter{NotEmpty: []domain.Field{domain.FieldRegion}},
		Stats: []StatSpec{
			Rows("count"),
			Avg("avg_ta", domain.FieldAlkalinity),
			Avg("avg_ca", domain.FieldCa),
			Avg("avg_mg", domain.FieldMg),
			Avg("avg_na", domain.FieldNa),
			Avg("avg_k", domain.FieldK),
			Avg("avg_hco3", domain.FieldHCO3),
			Avg("avg_dic", domain.FieldDIC),
			Avg("avg_pco2", domain.FieldPCO2),
			Avg("avg_co2_aq", domain.FieldCO2Aq),
			Avg("avg_ph", domain.FieldPH),
			Avg("avg_si_calcite", domain.FieldSICalcite),
			Avg("avg_omega_calcite", domain.FieldOmegaCalcite),
			Sum("total_cdr", domain.FieldCDRTYr),
			Avg("avg_cdr", domain.FieldCDRTYr),
			Avg("avg_rock_add", domain.FieldRockAddition),
		},
		SortBy: "avg_ta",
		Limit:  panelGroupLimit,
	}
}

// BasinStats rolls samples up per region.
func BasinStats(ctx context.Context, samples []domain.Sample) ([]domain.BasinStat, error) {
	results, err := Aggregate(ctx, samples, BasinSpec())
	if err != nil {
		return nil, err
	}
	out := make([]domain.BasinStat, 0, len(results))
	for _, r := range results {
		b := domain.BasinStat{
			Basin:           r.Key,
			Count:           r.Int("count"),
			AvgTA:           r.Value("avg_ta"),
			AvgCa:           r.Value("avg_ca"),
			AvgMg:           r.Value("avg_mg"),
			AvgNa:           r.Value("avg_na"),
			AvgK:            r.Value("avg_k"),
			AvgHCO3:         r.Value("avg_hco3"),
			AvgDIC:          r.Value("avg_dic"),
			AvgPCO2:         r.Value("avg_pco2"),
			AvgCO2Aq:        r.Value("avg_co2_aq"),
			AvgPH:           r.Value("avg_ph"),
			AvgSICalcite:    r.Value("avg_si_calcite"),
			AvgOmegaCalcite: r.Value("avg_omega_calcite"),
			TotalCDR:        r.Value("total_cdr"),
			AvgCDR:          r.Value("avg_cdr"),
			AvgRockAdd:      r.Value("avg_rock_add"),
		}
		b.IonRatio = IonRatio(b.AvgCa, b.AvgMg, b.AvgNa, b.AvgK)
		out = append(out, b)
	}
	return out, nil
}

// RegionSpec ranks regions by total carbon removal.
func RegionSpec() AggregationSpec {
	return AggregationSpec{
		GroupBy: domain.FieldRegion,
		Stats: []StatSpec{
			Sum("total_cdr", domain.FieldCDRTYr),
			Avg("avg_cdr", domain.FieldCDRTYr),
			Rows("count"),
			Avg("avg_ph", domain.FieldPH),
			Avg("avg_rock_add", domain.FieldRockAddition),
		},
		SortBy: "total_cdr",
		Limit:  panelGroupLimit,
	}
}

func RegionCDR(ctx context.Context, samples []domain.Sample) ([]domain.RegionCDR, error) {
	results, err := Aggregate(ctx, samples, RegionSpec())
	if err != nil {
		return nil, err
	}
	out := make([]domain.RegionCDR, 0, len(results))
	for _, r := range results {
		out = append(out, domain.RegionCDR{
			Region:     r.Key,
			TotalCDR:   r.Value("total_cdr"),
			AvgCDR:     r.Value("avg_cdr"),
			Count:      r.Int("count"),
			AvgPH:      r.Value("avg_ph"),
			AvgRockAdd: r.Value("avg_rock_add"),
		})
	}
	return out, nil
}

// StateSpec ranks states by total carbon removal.
func StateSpec() AggregationSpec {
	return AggregationSpec{
		GroupBy: domain.FieldState,
		Stats: []StatSpec{
			Sum("total_cdr", domain.FieldCDRTYr),
			Avg("avg_cdr", domain.FieldCDRTYr),
			Rows("count"),
		},
		SortBy: "total_cdr",
		Limit:  panelGroupLimit,
	}
}

func StateCDR(ctx context.Context, samples []domain.Sample) ([]domain.StateCDR, error) {
	results, err := Aggregate(ctx, samples, StateSpec())
	if err != nil {
		return nil, err
	}
	out := make([]domain.StateCDR, 0, len(results))
	for _, r := range results {
		out = append(out, domain.StateCDR{
			State:    r.Key,
			TotalCDR: r.Value("total_cdr"),
			AvgCDR:   r.Value("avg_cdr"),
			Count:    r.Int("count"),
		})
	}
	return out, nil
}

// RiverSpec ranks named rivers with a CDR value by total carbon removal.
func RiverSpec(limit int) AggregationSpec {
	return AggregationSpec{
		GroupBy: domain.FieldRiverName,
		Filter: domain.Filter{
			NotEmpty: []domain.Field{domain.FieldRiverName},
			NotNull:  []domain.Field{domain.FieldCDRTYr},
		},
		Stats: []StatSpec{
			Sum("total_cdr", domain.FieldCDRTYr),
			Avg("avg_cdr", domain.FieldCDRTYr),
			Rows("count"),
		},
		First:  []domain.Field{domain.FieldRegion, domain.FieldState},
		SortBy: "total_cdr",
		Limit:  limit,
	}
}

// TopRivers returns the limit rivers with the most carbon removal.
// limit is clamped to [1, MaxRiverTop]; 0 selects DefaultRiverTop.
func TopRivers(ctx context.Context, samples []domain.Sample, limit int) ([]domain.RiverCDR, error) {
	switch {
	case limit == 0:
		limit = DefaultRiverTop
	case limit < 1:
		limit = 1
	case limit > MaxRiverTop:
		limit = MaxRiverTop
	}
	results, err := Aggregate(ctx, samples, RiverSpec(limit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.RiverCDR, 0, len(results))
	for _, r := range results {
		out = append(out, domain.RiverCDR{
			River:    r.Key,
			TotalCDR: r.Value("total_cdr"),
			AvgCDR:   r.Value("avg_cdr"),
			Count:    r.Int("count"),
			Region:   r.First[domain.FieldRegion],
			State:    r.First[domain.FieldState],
		})
	}
	return out, nil
}

// FiltersFrom builds the filter lists from distinct values, dropping blanks.
func FiltersFrom(regions, states []string) domain.Filters {
	return domain.Filters{Regions: sortedNonEmpty(regions), States: sortedNonEmpty(states)}
}

func sortedNonEmpty(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
