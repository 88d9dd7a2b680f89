// Package memory is an in-process sample store and the default backend.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"erwpulse/pkg/contracts/domain"
)

var (
	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("store closed")
	// ErrUnknownField is returned by Distinct for a non-categorical field.
	ErrUnknownField = errors.New("unknown categorical field")
)

// Store keeps samples, summaries and the feedstock registry in memory.
// Readers get copies; nothing handed out aliases internal state.
type Store struct {
	mu         sync.RWMutex
	samples    []domain.Sample
	summaries  []domain.SummaryRecord
	feedstocks map[string]*domain.Feedstock
	order      []string
	closed     bool
	now        func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		feedstocks: make(map[string]*domain.Feedstock),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return ErrClosed
	}
	return nil
}

// FindSamples returns the samples matching filter in insertion order.
func (s *Store) FindSamples(ctx context.Context, filter domain.Filter, page domain.Page) ([]domain.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := []domain.Sample{}
	for i := range s.samples {
		if filter.Match(&s.samples[i]) {
			out = append(out, s.samples[i])
		}
	}
	lo, hi := page.Apply(len(out))
	return out[lo:hi], nil
}

// CountSamples counts the samples matching filter.
func (s *Store) CountSamples(ctx context.Context, filter domain.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}

	n := 0
	for i := range s.samples {
		if filter.Match(&s.samples[i]) {
			n++
		}
	}
	return n, nil
}

// Thresholds lists the distinct saturation thresholds of the matching
// samples in ascending order.
func (s *Store) Thresholds(ctx context.Context, filter domain.Filter) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	seen := make(map[int]struct{})
	out := []int{}
	for i := range s.samples {
		if !filter.Match(&s.samples[i]) {
			continue
		}
		t := s.samples[i].SaturationThreshold
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out, nil
}

// Distinct lists the distinct non-blank values of a categorical field over
// the matching samples, sorted.
func (s *Store) Distinct(ctx context.Context, field domain.Field, filter domain.Filter) ([]string, error) {
	if !domain.IsCategorical(field) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := []string{}
	for i := range s.samples {
		if !filter.Match(&s.samples[i]) {
			continue
		}
		v, _ := s.samples[i].Text(field)
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out, nil
}

// InsertSamples appends samples.
func (s *Store) InsertSamples(ctx context.Context, samples []domain.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.samples = append(s.samples, samples...)
	return nil
}

// FindSummaries returns the matching summary records in insertion order.
func (s *Store) FindSummaries(ctx context.Context, filter domain.SummaryFilter) ([]domain.SummaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := []domain.SummaryRecord{}
	for i := range s.summaries {
		if filter.Match(&s.summaries[i]) {
			out = append(out, s.summaries[i])
		}
	}
	return out, nil
}

// InsertSummaries appends summary records.
func (s *Store) InsertSummaries(ctx context.Context, records []domain.SummaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.summaries = append(s.summaries, records...)
	return nil
}

// RegisterFeedstock records that samples rows for threshold were loaded
// under name, creating the registry entry on first use.
func (s *Store) RegisterFeedstock(ctx context.Context, name string, threshold, samples int) (domain.Feedstock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return domain.Feedstock{}, err
	}

	f, ok := s.feedstocks[name]
	if !ok {
		f = &domain.Feedstock{
			ID:                   uuid.NewString(),
			Name:                 name,
			SaturationThresholds: []int{},
			CreatedAt:            s.now(),
		}
		s.feedstocks[name] = f
		s.order = append(s.order, name)
	}
	f.Register(threshold, samples)
	return copyFeedstock(*f), nil
}

// ListFeedstocks returns the registry in creation order.
func (s *Store) ListFeedstocks(ctx context.Context) ([]domain.Feedstock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := make([]domain.Feedstock, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, copyFeedstock(*s.feedstocks[name]))
	}
	return out, nil
}

// Ping reports whether the store is usable.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx)
}

// Close releases the store. Later calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func copyFeedstock(f domain.Feedstock) domain.Feedstock {
	f.SaturationThresholds = append([]int{}, f.SaturationThresholds...)
	return f
}
