package analytics

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"erwpulse/pkg/contracts/domain"
)

var regionNames = []string{"", "Ganga", "Krishna", "Cauvery", "Narmada"}

// genSamples produces small sample sets with a mix of null and present
// measurements and some blank regions.
func genSamples() gopter.Gen {
	return gen.SliceOf(gen.Struct(reflectSampleSeed, map[string]gopter.Gen{
		"Region":    gen.IntRange(0, len(regionNames)-1),
		"Threshold": gen.IntRange(1, 4),
		"CDR":       gen.Float64Range(-50, 500),
		"HasCDR":    gen.Bool(),
		"NICB":      gen.Float64Range(-30, 30),
		"HasNICB":   gen.Bool(),
	})).Map(func(seeds []sampleSeed) []domain.Sample {
		out := make([]domain.Sample, len(seeds))
		for i, s := range seeds {
			out[i] = s.sample()
		}
		return out
	})
}

type sampleSeed struct {
	Region    int
	Threshold int
	CDR       float64
	HasCDR    bool
	NICB      float64
	HasNICB   bool
}

var reflectSampleSeed = reflect.TypeOf(sampleSeed{})

func (s sampleSeed) sample() domain.Sample {
	out := domain.Sample{
		Feedstock:           "calcite",
		SaturationThreshold: s.Threshold,
		Region:              regionNames[s.Region],
	}
	if s.HasCDR {
		out.CDRTYr = domain.Float(s.CDR)
	}
	if s.HasNICB {
		out.NICB = domain.Float(s.NICB)
	}
	return out
}

func TestProperty_Aggregation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("null measurements never change sum or mean", prop.ForAll(
		func(samples []domain.Sample) bool {
			spec := AggregationSpec{Stats: []StatSpec{Sum("s", domain.FieldCDRTYr), Avg("a", domain.FieldCDRTYr), Rows("n")}}
			all, err := Aggregate(context.Background(), samples, spec)
			if err != nil {
				return false
			}
			var present []domain.Sample
			for _, s := range samples {
				if s.CDRTYr.Valid {
					present = append(present, s)
				}
			}
			only, err := Aggregate(context.Background(), present, spec)
			if err != nil {
				return false
			}
			return math.Abs(all[0].Value("s")-only[0].Value("s")) < 1e-6 &&
				all[0].Stats["a"] == only[0].Stats["a"] &&
				all[0].Int("n") == len(samples)
		},
		genSamples(),
	))

	properties.Property("grouped row counts never exceed the ungrouped count", prop.ForAll(
		func(samples []domain.Sample) bool {
			grouped, err := Aggregate(context.Background(), samples, AggregationSpec{GroupBy: domain.FieldRegion, Stats: []StatSpec{Rows("n")}})
			if err != nil {
				return false
			}
			total, err := Aggregate(context.Background(), samples, AggregationSpec{Stats: []StatSpec{Rows("n")}})
			if err != nil {
				return false
			}
			sum := 0
			for _, g := range grouped {
				sum += g.Int("n")
			}
			blank := 0
			for _, s := range samples {
				if s.Region == "" {
					blank++
				}
			}
			if blank == 0 {
				return sum == total[0].Int("n")
			}
			return sum < total[0].Int("n")
		},
		genSamples(),
	))

	properties.Property("grouped output is sorted descending by the sort stat", prop.ForAll(
		func(samples []domain.Sample) bool {
			results, err := Aggregate(context.Background(), samples, RegionSpec())
			if err != nil {
				return false
			}
			for i := 1; i < len(results); i++ {
				if results[i-1].Value("total_cdr") < results[i].Value("total_cdr") {
					return false
				}
			}
			return true
		},
		genSamples(),
	))

	properties.Property("NICB percentages sum to 100 within rounding", prop.ForAll(
		func(samples []domain.Sample) bool {
			rows, err := ClassifyNICB(context.Background(), samples, domain.FieldRegion)
			if err != nil {
				return false
			}
			for i, q := range rows {
				if q.Count == 0 || q.Within5+q.Within10+q.Beyond10 != q.Count {
					return false
				}
				if math.Abs(q.PctWithin5+q.PctWithin10+q.PctBeyond10-100) > 0.2+1e-9 {
					return false
				}
				if i > 0 && rows[i-1].Basin >= q.Basin {
					return false
				}
			}
			return true
		},
		genSamples(),
	))

	properties.Property("comparison is ascending by threshold", prop.ForAll(
		func(samples []domain.Sample) bool {
			got, err := CompareThresholds(context.Background(), &fakeSource{samples: samples}, "calcite")
			if err != nil {
				return false
			}
			for i := 1; i < len(got); i++ {
				if got[i-1].Threshold >= got[i].Threshold {
					return false
				}
			}
			for _, c := range got {
				for j := 1; j < len(c.Regions); j++ {
					if c.Regions[j-1].TotalCDR < c.Regions[j].TotalCDR {
						return false
					}
				}
			}
			return true
		},
		genSamples(),
	))

	properties.TestingRun(t)
}
