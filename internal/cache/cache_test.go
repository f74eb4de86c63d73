package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adoptimizer/internal/segmentation"
	"github.com/ignite/adoptimizer/internal/service/audit"
)

func setup(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *ResultCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, New(client, ttl)
}

func sampleResult() *segmentation.RunResult {
	return &segmentation.RunResult{
		ModelAccuracyScore: 0.89,
		GroupInsights: map[int]segmentation.SegmentInsight{
			0: {Label: "Money Pits", Status: segmentation.StatusRisky, CPC: 23.4, Size: 2},
			1: {Label: "Stable / Learning", Status: segmentation.StatusNeutral, CPC: 2, Size: 2},
		},
		DetailedResults: segmentation.Dataset{
			{AdID: "a", Spend: 500, Clicks: 20, Impressions: 900, CTR: 20.0 / 900, CPC: 25, AdGroup: 0,
				Passthrough: []segmentation.Cell{{Column: "Campaign", Value: "Spring"}}},
			{AdID: "b", Spend: 10, Clicks: 5, Impressions: 300, CTR: 5.0 / 300, CPC: 2, AdGroup: 1},
		},
		RiskyGroups:      []int{0},
		TotalSpend:       510,
		PotentialSavings: 500,
	}
}

func TestResultCache_SetGet(t *testing.T) {
	ctx := context.Background()
	mr, c := setup(t, time.Hour)

	want := sampleResult()
	require.NoError(t, c.Set(ctx, "abc", want))
	assert.True(t, mr.Exists(keyPrefix+"abc"))
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"abc"))

	got, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, want.PotentialSavings, got.PotentialSavings)
	assert.Equal(t, want.RiskyGroups, got.RiskyGroups)
	assert.Equal(t, want.GroupInsights[0], got.GroupInsights[0])
	require.Len(t, got.DetailedResults, 2)
	assert.Equal(t, "Spring", got.DetailedResults[0].Passthrough[0].Value)
}

func TestResultCache_KeepsColumnOrder(t *testing.T) {
	ctx := context.Background()
	_, c := setup(t, time.Hour)

	want := sampleResult()
	want.DetailedResults[0].Passthrough = []segmentation.Cell{
		{Column: "Zone", Value: "EU"},
		{Column: "Campaign", Value: "Spring"},
		{Column: "Ad Set", Value: "retarget"},
	}
	require.NoError(t, c.Set(ctx, "ordered", want))

	got, err := c.Get(ctx, "ordered")
	require.NoError(t, err)
	assert.Equal(t, want.DetailedResults[0].Passthrough, got.DetailedResults[0].Passthrough)
}

func TestResultCache_Miss(t *testing.T) {
	_, c := setup(t, 0)
	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, audit.ErrCacheMiss)
}

func TestResultCache_Expires(t *testing.T) {
	ctx := context.Background()
	mr, c := setup(t, time.Minute)
	require.NoError(t, c.Set(ctx, "abc", sampleResult()))
	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, "abc")
	assert.ErrorIs(t, err, audit.ErrCacheMiss)
}

func TestResultCache_CorruptEntry(t *testing.T) {
	mr, c := setup(t, 0)
	require.NoError(t, mr.Set(keyPrefix+"bad", "{not json"))
	_, err := c.Get(context.Background(), "bad")
	assert.ErrorIs(t, err, audit.ErrCacheMiss)
}

func TestResultCache_Unavailable(t *testing.T) {
	mr, c := setup(t, 0)
	mr.Close()
	_, err := c.Get(context.Background(), "abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, audit.ErrCacheMiss)
	assert.Error(t, c.Ping(context.Background()))
}
