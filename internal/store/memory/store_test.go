package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erwpulse/pkg/contracts/domain"
)

func seed(t *testing.T) *Store {
	t.Helper()
	s := New()
	samples := []domain.Sample{
		{ID: "1", Feedstock: "calcite", SaturationThreshold: 5, Region: "Ganga", State: "Bihar"},
		{ID: "2", Feedstock: "calcite", SaturationThreshold: 5, Region: "Krishna", State: ""},
		{ID: "3", Feedstock: "calcite", SaturationThreshold: 3, Region: "Ganga", State: "Uttar Pradesh"},
		{ID: "4", Feedstock: "basalt", SaturationThreshold: 10, Region: "Indus"},
		{ID: "5", Feedstock: "calcite", SaturationThreshold: 5, Region: " "},
	}
	require.NoError(t, s.InsertSamples(context.Background(), samples))
	return s
}

func TestStore_FindSamples(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	got, err := s.FindSamples(ctx, domain.DatasetFilter("calcite", 5), domain.Page{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"1", "2", "5"}, []string{got[0].ID, got[1].ID, got[2].ID})

	page, err := s.FindSamples(ctx, domain.DatasetFilter("calcite", 5), domain.Page{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "2", page[0].ID)

	none, err := s.FindSamples(ctx, domain.Filter{Feedstock: "olivine"}, domain.Page{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	n, err := s.CountSamples(ctx, domain.Filter{Feedstock: "calcite", Region: "Ganga"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_Thresholds(t *testing.T) {
	s := seed(t)
	got, err := s.Thresholds(context.Background(), domain.Filter{Feedstock: "calcite"})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5}, got)

	got, err = s.Thresholds(context.Background(), domain.Filter{Feedstock: "olivine"})
	require.NoError(t, err)
	assert.Equal(t, []int{}, got)
}

func TestStore_Distinct(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	regions, err := s.Distinct(ctx, domain.FieldRegion, domain.DatasetFilter("calcite", 5))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ganga", "Krishna"}, regions)

	states, err := s.Distinct(ctx, domain.FieldState, domain.Filter{Feedstock: "calcite"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bihar", "Uttar Pradesh"}, states)

	_, err = s.Distinct(ctx, domain.FieldPH, domain.Filter{})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestStore_Summaries(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InsertSummaries(ctx, []domain.SummaryRecord{
		{Feedstock: "calcite", SaturationThreshold: 5, Region: "Ganga"},
		{Feedstock: "calcite", SaturationThreshold: 3, Region: "Ganga"},
	}))

	five := 5
	got, err := s.FindSummaries(ctx, domain.SummaryFilter{Feedstock: "calcite", Threshold: &five})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].SaturationThreshold)
}

func TestStore_RegisterFeedstock(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.RegisterFeedstock(ctx, "calcite", 5, 100)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	_, err = s.RegisterFeedstock(ctx, "basalt", 10, 7)
	require.NoError(t, err)

	again, err := s.RegisterFeedstock(ctx, "calcite", 3, 20)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, []int{5, 3}, again.SaturationThresholds)
	assert.Equal(t, 120, again.SampleCount)

	list, err := s.ListFeedstocks(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "calcite", list[0].Name)
	assert.Equal(t, "basalt", list[1].Name)

	list[0].SaturationThresholds[0] = 99
	fresh, _ := s.ListFeedstocks(ctx)
	assert.Equal(t, 5, fresh[0].SaturationThresholds[0], "listing returns copies")
}

func TestStore_ClosedAndCancelled(t *testing.T) {
	s := seed(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.FindSamples(ctx, domain.Filter{}, domain.Page{})
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.InsertSamples(context.Background(), nil), ErrClosed)
	_, err = s.ListFeedstocks(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
