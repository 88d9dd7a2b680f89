package domain

import "strings"

// Filter is a conjunction of predicates over samples. Zero-valued
// equality fields are not applied.
type Filter struct {
	Feedstock string `json:"feedstock,omitempty"`
	Threshold *int   `json:"omega_threshold,omitempty"`
	Region    string `json:"region,omitempty"`
	State     string `json:"state,omitempty"`

	// NotNull requires a numeric field to be present.
	NotNull []Field `json:"not_null,omitempty"`
	// NotEmpty requires a categorical field to be non-blank.
	NotEmpty []Field `json:"not_empty,omitempty"`
	// Positive requires a numeric field to be present and strictly > 0.
	Positive []Field `json:"positive,omitempty"`
}

// DatasetFilter selects the samples of one feedstock at one threshold.
func DatasetFilter(feedstock string, threshold int) Filter {
	return Filter{Feedstock: feedstock, Threshold: &threshold}
}

// WithThreshold returns a copy of f restricted to threshold.
func (f Filter) WithThreshold(threshold int) Filter {
	f.Threshold = &threshold
	return f
}

// Match reports whether s satisfies every predicate of f.
func (f Filter) Match(s *Sample) bool {
	if f.Feedstock != "" && s.Feedstock != f.Feedstock {
		return false
	}
	if f.Threshold != nil && s.SaturationThreshold != *f.Threshold {
		return false
	}
	if f.Region != "" && s.Region != f.Region {
		return false
	}
	if f.State != "" && s.State != f.State {
		return false
	}
	for _, field := range f.NotNull {
		if v, _ := s.Number(field); !v.Valid {
			return false
		}
	}
	for _, field := range f.NotEmpty {
		if v, _ := s.Text(field); strings.TrimSpace(v) == "" {
			return false
		}
	}
	for _, field := range f.Positive {
		if v, _ := s.Number(field); !v.Valid || v.Value <= 0 {
			return false
		}
	}
	return true
}

// Page bounds a find. A zero Limit returns everything after Skip.
type Page struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// Apply slices n items according to p and returns the [lo, hi) bounds.
func (p Page) Apply(n int) (int, int) {
	lo := p.Skip
	if lo < 0 {
		lo = 0
	}
	if lo > n {
		lo = n
	}
	hi := n
	if p.Limit > 0 && lo+p.Limit < n {
		hi = lo + p.Limit
	}
	return lo, hi
}

// SummaryFilter selects summary records. Zero values are not applied.
type SummaryFilter struct {
	Feedstock string
	Threshold *int
}

// Match reports whether r satisfies the filter.
func (f SummaryFilter) Match(r *SummaryRecord) bool {
	if f.Feedstock != "" && r.Feedstock != f.Feedstock {
		return false
	}
	if f.Threshold != nil && r.SaturationThreshold != *f.Threshold {
		return false
	}
	return true
}
