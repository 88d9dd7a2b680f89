package analytics

import (
	"fmt"

	"erwpulse/pkg/contracts/domain"
)

// Op is a statistic computed over a group.
type Op string

const (
	// OpSum adds the non-null values of Field. An empty input sums to 0.
	OpSum Op = "sum"
	// OpAvg is the mean of the non-null values of Field, null when there are none.
	OpAvg Op = "avg"
	// OpCount counts non-null values of Field, or every row when Field is empty.
	OpCount Op = "count"
	// OpMin and OpMax are null when Field has no values in the group.
	OpMin Op = "min"
	OpMax Op = "max"
	// OpCountIf counts rows for which When returns true.
	OpCountIf Op = "count_if"
)

// StatSpec requests one named statistic.
type StatSpec struct {
	Name  string
	Op    Op
	Field domain.Field
	When  func(*domain.Sample) bool
}

// Sum, Avg, Rows and CountIf build the common statistics.
func Sum(name string, field domain.Field) StatSpec {
	return StatSpec{Name: name, Op: OpSum, Field: field}
}

func Avg(name string, field domain.Field) StatSpec {
	return StatSpec{Name: name, Op: OpAvg, Field: field}
}

func Rows(name string) StatSpec {
	return StatSpec{Name: name, Op: OpCount}
}

func CountIf(name string, when func(*domain.Sample) bool) StatSpec {
	return StatSpec{Name: name, Op: OpCountIf, When: when}
}

// AggregationSpec declares a grouped rollup: which samples, how to group
// them, what to compute and how to order the groups.
type AggregationSpec struct {
	// GroupBy is empty for a single "all" group, else region, state or river_name.
	GroupBy domain.Field
	Filter  domain.Filter
	Stats   []StatSpec
	// First carries the first-seen value of each categorical field per group.
	First []domain.Field
	// SortBy names a stat to order groups by, descending. Nulls sort as 0.
	SortBy string
	// KeyAscending orders groups by key instead of SortBy.
	KeyAscending bool
	// Limit caps the number of groups returned; 0 means unlimited.
	Limit int
}

// AllKey is the key of the single group produced when GroupBy is empty.
const AllKey = "all"

var groupableFields = map[domain.Field]bool{
	domain.FieldRegion:    true,
	domain.FieldState:     true,
	domain.FieldRiverName: true,
}

// Validate checks the spec against the fields the engine can read.
func (s AggregationSpec) Validate() error {
	if s.GroupBy != "" && !groupableFields[s.GroupBy] {
		return fmt.Errorf("%w: %q", ErrInvalidGroupingField, s.GroupBy)
	}
	seen := make(map[string]bool, len(s.Stats))
	for _, st := range s.Stats {
		if st.Name == "" {
			return fmt.Errorf("%w: unnamed statistic", ErrInvalidSpec)
		}
		if seen[st.Name] {
			return fmt.Errorf("%w: duplicate statistic %q", ErrInvalidSpec, st.Name)
		}
		seen[st.Name] = true
		switch st.Op {
		case OpSum, OpAvg, OpMin, OpMax:
			if !domain.IsNumeric(st.Field) {
				return fmt.Errorf("%w: %s(%q)", ErrUnknownField, st.Op, st.Field)
			}
		case OpCount:
			if st.Field != "" && !domain.IsNumeric(st.Field) {
				return fmt.Errorf("%w: count(%q)", ErrUnknownField, st.Field)
			}
		case OpCountIf:
			if st.When == nil {
				return fmt.Errorf("%w: %q has no predicate", ErrInvalidSpec, st.Name)
			}
		default:
			return fmt.Errorf("%w: operator %q", ErrInvalidSpec, st.Op)
		}
	}
	for _, f := range s.First {
		if !domain.IsCategorical(f) {
			return fmt.Errorf("%w: first(%q)", ErrUnknownField, f)
		}
	}
	if s.SortBy != "" && !seen[s.SortBy] {
		return fmt.Errorf("%w: sort key %q is not a requested statistic", ErrInvalidSpec, s.SortBy)
	}
	if s.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidSpec)
	}
	return nil
}
