package analytics

import "errors"

var (
	// ErrInvalidGroupingField is returned when a rollup is grouped by a field
	// the engine does not group on.
	ErrInvalidGroupingField = errors.New("invalid grouping field")
	// ErrUnknownField is returned when a statistic reads a field samples do not have.
	ErrUnknownField = errors.New("unknown sample field")
	// ErrInvalidSpec covers any other malformed AggregationSpec.
	ErrInvalidSpec = errors.New("invalid aggregation spec")
)
