package analytics

import (
	"context"
	"math"
	"sort"

	"erwpulse/pkg/contracts/domain"
)

// AggregateResult is one group of a rollup. Results are not modified after
// Aggregate returns them.
type AggregateResult struct {
	Key   string
	Rows  int
	Stats map[string]domain.NullFloat
	First map[domain.Field]string
}

// Value returns the named statistic resolved to 0 when null or missing.
func (r AggregateResult) Value(name string) float64 {
	return r.Stats[name].OrZero()
}

// Int returns the named statistic as an integer count.
func (r AggregateResult) Int(name string) int {
	return int(r.Stats[name].OrZero())
}

// cancelCheckEvery is how many rows are scanned between context checks.
const cancelCheckEvery = 1024

type accumulator struct {
	sum   float64
	n     int
	min   float64
	max   float64
	count int
}

func (a *accumulator) add(v float64) {
	if a.n == 0 || v < a.min {
		a.min = v
	}
	if a.n == 0 || v > a.max {
		a.max = v
	}
	a.sum += v
	a.n++
}

type group struct {
	key   string
	rows  int
	accs  []accumulator
	first map[domain.Field]string
}

// Aggregate runs spec over samples.
//
// Samples whose grouping field is blank are left out of grouped output but
// still count when GroupBy is empty. Null values never reach a sum, mean or
// extreme. An ungrouped spec always yields exactly one "all" result, even
// when nothing matches.
func Aggregate(ctx context.Context, samples []domain.Sample, spec AggregationSpec) ([]AggregateResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var order []*group
	index := make(map[string]*group)
	newGroup := func(key string) *group {
		g := &group{key: key, accs: make([]accumulator, len(spec.Stats))}
		if len(spec.First) > 0 {
			g.first = make(map[domain.Field]string, len(spec.First))
		}
		index[key] = g
		order = append(order, g)
		return g
	}
	if spec.GroupBy == "" {
		newGroup(AllKey)
	}

	for i := range samples {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		s := &samples[i]
		if !spec.Filter.Match(s) {
			continue
		}

		key := AllKey
		if spec.GroupBy != "" {
			key, _ = s.Text(spec.GroupBy)
			if key == "" {
				continue
			}
		}
		g, ok := index[key]
		if !ok {
			g = newGroup(key)
		}
		if g.rows == 0 {
			for _, f := range spec.First {
				g.first[f], _ = s.Text(f)
			}
		}
		g.rows++

		for j, st := range spec.Stats {
			acc := &g.accs[j]
			switch st.Op {
			case OpCountIf:
				if st.When(s) {
					acc.count++
				}
			case OpCount:
				if st.Field == "" {
					acc.count++
					continue
				}
				if v, _ := s.Number(st.Field); v.Valid {
					acc.count++
				}
			default:
				if v, _ := s.Number(st.Field); v.Valid {
					acc.add(v.Value)
				}
			}
		}
	}

	results := make([]AggregateResult, len(order))
	for i, g := range order {
		results[i] = g.result(spec.Stats)
	}
	sortResults(results, spec)
	if spec.Limit > 0 && len(results) > spec.Limit {
		results = results[:spec.Limit]
	}
	return results, nil
}

func (g *group) result(stats []StatSpec) AggregateResult {
	out := AggregateResult{
		Key:   g.key,
		Rows:  g.rows,
		Stats: make(map[string]domain.NullFloat, len(stats)),
		First: g.first,
	}
	for j, st := range stats {
		acc := g.accs[j]
		var v domain.NullFloat
		switch st.Op {
		case OpSum:
			v = domain.Float(acc.sum)
		case OpAvg:
			if acc.n > 0 {
				v = domain.Float(acc.sum / float64(acc.n))
			}
		case OpMin:
			if acc.n > 0 {
				v = domain.Float(acc.min)
			}
		case OpMax:
			if acc.n > 0 {
				v = domain.Float(acc.max)
			}
		case OpCount, OpCountIf:
			v = domain.Float(float64(acc.count))
		}
		out.Stats[st.Name] = v
	}
	return out
}

// sortResults orders groups without disturbing first-appearance order on ties.
func sortResults(results []AggregateResult, spec AggregationSpec) {
	switch {
	case spec.KeyAscending:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Key < results[j].Key
		})
	case spec.SortBy != "":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Value(spec.SortBy) > results[j].Value(spec.SortBy)
		})
	}
}

// Ratio divides num by den, flooring the denominator at eps.
func Ratio(num, den, eps float64) float64 {
	return num / math.Max(den, eps)
}

// IonRatioFloor keeps the (Ca+Mg)/(Na+K) ratio finite for cation-poor groups.
const IonRatioFloor = 0.01

// IonRatio is (ca+mg)/max(na+k, 0.01).
func IonRatio(ca, mg, na, k float64) float64 {
	return Ratio(ca+mg, na+k, IonRatioFloor)
}

// Rate returns part/total as a percentage, 0 when total is 0.
func Rate(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Round1 rounds to one decimal place, halves away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
