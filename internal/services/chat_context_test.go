package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erwpulse/internal/shared/testutil"
	"erwpulse/internal/store/memory"
	"erwpulse/pkg/contracts/domain"
)

func TestChatContextBuilder_Build(t *testing.T) {
	b := NewChatContextBuilder(seededStore(t), nil, testutil.DiscardLogger())

	cc, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, cc.TotalSamples)
	assert.Equal(t, []string{"Ganga", "Godavari", "Krishna"}, cc.Regions)
	assert.Equal(t, []string{"Bihar", "Karnataka", "Telangana", "Uttar Pradesh"}, cc.States)
	assert.Equal(t, []string{"calcite"}, cc.Feedstocks)
	assert.Equal(t, 1, cc.Summaries)

	assert.Contains(t, cc.Context, "Available data: 5 samples across regions: Ganga, Godavari, Krishna")
	assert.Contains(t, cc.Context, "States: Bihar, Karnataka, Telangana, Uttar Pradesh")
	assert.Contains(t, cc.Context, `Feedstocks: ["calcite"]`)
	assert.Contains(t, cc.Context, `"region": "Ganga"`)
}

func TestChatContextBuilder_EmptyStore(t *testing.T) {
	b := NewChatContextBuilder(memory.New(), nil, nil)

	cc, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Zero(t, cc.TotalSamples)
	assert.NotNil(t, cc.Regions)
	assert.NotNil(t, cc.Feedstocks)
	assert.Contains(t, cc.Context, "Summary stats: []")
}

func TestChatContextBuilder_CapsSummaries(t *testing.T) {
	st := memory.New()
	records := make([]domain.SummaryRecord, chatSummaryLimit+20)
	for i := range records {
		records[i] = domain.SummaryRecord{Feedstock: "calcite", SaturationThreshold: 5, Region: fmt.Sprintf("R%03d", i)}
	}
	require.NoError(t, st.InsertSummaries(context.Background(), records))

	cc, err := NewChatContextBuilder(st, nil, nil).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, chatSummaryLimit, cc.Summaries)
	assert.NotContains(t, cc.Context, fmt.Sprintf("R%03d", chatSummaryLimit))
}

func TestChatContextBuilder_StoreFailure(t *testing.T) {
	st := memory.New()
	require.NoError(t, st.Close())

	_, err := NewChatContextBuilder(st, nil, nil).Build(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
