package dataprocessing

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"erwpulse/pkg/contracts/domain"
)

// groupedNumber matches a number written with comma thousands separators.
var groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// RawRow is one worksheet row as excelize returns it: raw cell text by
// zero-based column, with trailing empty cells possibly missing.
type RawRow []string

// Cell returns the trimmed text of column i, "" when out of range.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

// Present reports whether column i holds anything.
func (r RawRow) Present(i int) bool {
	return r.Cell(i) != ""
}

// String returns column i as text; blank cells become "".
func (r RawRow) String(i int) string {
	return r.Cell(i)
}

// Float returns column i as a finite number, or null.
func (r RawRow) Float(i int) domain.NullFloat {
	v, ok := coerceFloat(r.Cell(i))
	if !ok {
		return domain.NullFloat{}
	}
	return domain.Float(v)
}

// Int returns column i as an integer, or null. Numeric cells holding a
// fraction are truncated toward zero.
func (r RawRow) Int(i int) domain.NullInt {
	s := r.Cell(i)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return domain.Int(n)
	}
	v, ok := coerceFloat(s)
	if !ok || v > math.MaxInt64 || v < math.MinInt64 {
		return domain.NullInt{}
	}
	return domain.Int(int64(v))
}

// coerceFloat is the single place cell text becomes a number. It never
// fails loudly: anything unparseable, NaN or infinite reports ok=false.
// Commas are accepted only as well-formed thousands groups; "1,5" is a
// decimal comma and stays null rather than becoming 15.
func coerceFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		if !groupedNumber.MatchString(s) {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
