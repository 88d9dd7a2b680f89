// Package analytics computes the dashboard statistics for ERW sample data.
//
// Every panel is an AggregationSpec handed to one engine, Aggregate, which
// groups samples by an optional categorical field and computes sums, means,
// counts and extremes. Null measurements never contribute to a statistic;
// samples with a blank group key are left out of grouped output but still
// count toward ungrouped totals.
//
// On top of the engine sit the NICB quality classifier, the threshold
// comparison (one totals pass and one per-region pass per threshold, run
// concurrently) and the overview KPI reducer.
//
// All functions are pure over the sample slice they receive. Store access
// goes through SampleSource.
package analytics
