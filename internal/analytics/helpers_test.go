package analytics

import (
	"context"
	"errors"
	"sync"

	"erwpulse/pkg/contracts/domain"
)

func f(v float64) domain.NullFloat { return domain.Float(v) }

var null = domain.NullFloat{}

func sample(region string, cdr domain.NullFloat) domain.Sample {
	return domain.Sample{
		Feedstock:           "calcite",
		SaturationThreshold: 5,
		Region:              region,
		CDRTYr:              cdr,
	}
}

// fakeSource serves samples from memory and records which thresholds were read.
type fakeSource struct {
	mu       sync.Mutex
	samples  []domain.Sample
	findErr  error
	listErr  error
	reads    map[int]int
	blockFor int
	release  chan struct{}
}

func (s *fakeSource) FindSamples(ctx context.Context, filter domain.Filter, page domain.Page) ([]domain.Sample, error) {
	if filter.Threshold != nil && s.release != nil && *filter.Threshold == s.blockFor {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.reads == nil {
		s.reads = make(map[int]int)
	}
	if filter.Threshold != nil {
		s.reads[*filter.Threshold]++
	}
	var out []domain.Sample
	for i := range s.samples {
		if filter.Match(&s.samples[i]) {
			out = append(out, s.samples[i])
		}
	}
	lo, hi := page.Apply(len(out))
	return out[lo:hi], nil
}

func (s *fakeSource) Thresholds(_ context.Context, filter domain.Filter) ([]int, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []int
	for i := range s.samples {
		if filter.Match(&s.samples[i]) {
			out = append(out, s.samples[i].SaturationThreshold)
		}
	}
	return out, nil
}

var errStoreDown = errors.New("store unreachable")
