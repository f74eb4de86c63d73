package segmentation

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioDataset() Dataset {
	spend := []float64{100, 120, 10, 15, 500, 480}
	clicks := []float64{50, 55, 40, 38, 20, 22}
	impressions := []float64{1000, 1100, 2000, 1900, 500, 520}

	ds := make(Dataset, len(spend))
	for i := range spend {
		ds[i] = AdRecord{
			AdID:        string(rune('a' + i)),
			Spend:       spend[i],
			Clicks:      clicks[i],
			Impressions: impressions[i],
			Passthrough: []Cell{{Column: "campaign", Value: "spring"}},
		}
	}
	return ds
}

func TestSegment_Scenario(t *testing.T) {
	res, err := New(DefaultConfig()).Segment(scenarioDataset())
	require.NoError(t, err)
	require.Len(t, res.DetailedResults, 6)

	groups := map[int]bool{}
	for _, r := range res.DetailedResults {
		groups[r.AdGroup] = true
	}
	assert.Len(t, groups, 3)

	// pairs land together
	rows := res.DetailedResults
	assert.Equal(t, rows[0].AdGroup, rows[1].AdGroup)
	assert.Equal(t, rows[2].AdGroup, rows[3].AdGroup)
	assert.Equal(t, rows[4].AdGroup, rows[5].AdGroup)

	top := res.GroupInsights[rows[0].AdGroup]
	assert.Equal(t, "Top Performers", top.Label)
	assert.Equal(t, StatusScalable, top.Status)

	pit := res.GroupInsights[rows[4].AdGroup]
	assert.Equal(t, "Money Pits", pit.Label)
	assert.Equal(t, StatusRisky, pit.Status)
	assert.Equal(t, 2, pit.Size)

	low := res.GroupInsights[rows[2].AdGroup]
	assert.Equal(t, StatusNeutral, low.Status)

	assert.Equal(t, []int{rows[4].AdGroup}, res.RiskyGroups)
	assert.InDelta(t, 980.0, res.PotentialSavings, 1e-9)
	assert.InDelta(t, 1225.0, res.TotalSpend, 1e-9)
	assert.GreaterOrEqual(t, res.ModelAccuracyScore, -1.0)
	assert.LessOrEqual(t, res.ModelAccuracyScore, 1.0)
	assert.Greater(t, res.ModelAccuracyScore, 0.5)
}

func TestSegment_Deterministic(t *testing.T) {
	eng := New(DefaultConfig())
	ds := scenarioDataset()
	for i := 0; i < 20; i++ {
		ds = append(ds, AdRecord{
			AdID:        "x",
			Spend:       float64(i*37%211) + 1,
			Clicks:      float64(i*13%50 + 1),
			Impressions: float64(i*101%900 + 100),
		})
	}

	first, err := eng.Segment(ds)
	require.NoError(t, err)
	second, err := eng.Segment(ds)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestSegment_RowPreservation(t *testing.T) {
	in := scenarioDataset()
	res, err := New(DefaultConfig()).Segment(in)
	require.NoError(t, err)
	require.Len(t, res.DetailedResults, len(in))

	for i, out := range res.DetailedResults {
		assert.Equal(t, in[i].AdID, out.AdID)
		assert.Equal(t, in[i].Spend, out.Spend)
		assert.Equal(t, in[i].Clicks, out.Clicks)
		assert.Equal(t, in[i].Impressions, out.Impressions)
		assert.Equal(t, in[i].Passthrough, out.Passthrough)
	}
	// input is untouched
	assert.Zero(t, in[0].CPC)
}

func TestSegment_LabelCompleteness(t *testing.T) {
	res, err := New(DefaultConfig()).Segment(scenarioDataset())
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, r := range res.DetailedResults {
		seen[r.AdGroup] = true
	}
	require.Len(t, res.GroupInsights, len(seen))
	for g := range res.GroupInsights {
		assert.True(t, seen[g], "insight for absent group %d", g)
	}
}

func TestSegment_DivisionGuard(t *testing.T) {
	ds := Dataset{
		{AdID: "1", Spend: 50, Clicks: 0, Impressions: 0},
		{AdID: "2", Spend: 0, Clicks: 10, Impressions: 0},
		{AdID: "3", Spend: 20, Clicks: 0, Impressions: 100},
		{AdID: "4", Spend: 300, Clicks: 30, Impressions: 900},
	}
	res, err := New(DefaultConfig()).Segment(ds)
	require.NoError(t, err)

	for _, r := range res.DetailedResults {
		assert.False(t, math.IsNaN(r.CTR) || math.IsInf(r.CTR, 0))
		assert.False(t, math.IsNaN(r.CPC) || math.IsInf(r.CPC, 0))
		if r.Impressions == 0 {
			assert.Zero(t, r.CTR, "row %s", r.AdID)
		}
		if r.Clicks == 0 {
			assert.Zero(t, r.CPC, "row %s", r.AdID)
		}
	}
	assert.LessOrEqual(t, res.PotentialSavings, res.TotalSpend)
}

func TestSegment_InsufficientData(t *testing.T) {
	tests := []struct {
		name string
		ds   Dataset
	}{
		{"empty", Dataset{}},
		{"two rows", Dataset{{Spend: 1, Clicks: 1, Impressions: 1}, {Spend: 2, Clicks: 1, Impressions: 1}}},
		{"duplicates only", Dataset{
			{Spend: 5, Clicks: 1, Impressions: 10},
			{Spend: 5, Clicks: 1, Impressions: 10},
			{Spend: 5, Clicks: 1, Impressions: 10},
			{Spend: 7, Clicks: 1, Impressions: 10},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(DefaultConfig()).Segment(tt.ds)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, KindInsufficientData, KindOf(err))
		})
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	cfg := New(Config{}).Config()
	assert.Equal(t, 3, cfg.ClusterCount)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, uint64(42), *cfg.Seed)
	assert.Equal(t, 1.2, cfg.RiskyCPCMultiplier)
	assert.Equal(t, "Money Pits", cfg.MoneyPits.Label)
}

func TestNew_KeepsZeroSeed(t *testing.T) {
	zero := uint64(0)
	cfg := New(Config{Seed: &zero}).Config()
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, uint64(0), *cfg.Seed)
	assert.Equal(t, uint64(0), cfg.clusterOptions().Seed)

	// seed 0 still clusters deterministically
	ds := scenarioDataset()
	first, err := New(cfg).Segment(ds)
	require.NoError(t, err)
	second, err := New(cfg).Segment(scenarioDataset())
	require.NoError(t, err)
	assert.Equal(t, first.RiskyGroups, second.RiskyGroups)
	assert.InDelta(t, first.PotentialSavings, second.PotentialSavings, 1e-9)
}
