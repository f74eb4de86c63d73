package segmentation

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GroupStats holds the per-segment means the labeler compares.
type GroupStats struct {
	CPC   float64
	CTR   float64
	Spend float64
	Size  int
}

// Aggregate computes per-group means and the dataset-wide CPC/CTR means.
func Aggregate(ds Dataset) (groups map[int]GroupStats, global GroupStats) {
	cpc := make(map[int][]float64)
	ctr := make(map[int][]float64)
	spend := make(map[int][]float64)
	allCPC := make([]float64, len(ds))
	allCTR := make([]float64, len(ds))
	allSpend := make([]float64, len(ds))

	for i, r := range ds {
		cpc[r.AdGroup] = append(cpc[r.AdGroup], r.CPC)
		ctr[r.AdGroup] = append(ctr[r.AdGroup], r.CTR)
		spend[r.AdGroup] = append(spend[r.AdGroup], r.Spend)
		allCPC[i], allCTR[i], allSpend[i] = r.CPC, r.CTR, r.Spend
	}

	groups = make(map[int]GroupStats, len(cpc))
	for g := range cpc {
		groups[g] = GroupStats{
			CPC:   stat.Mean(cpc[g], nil),
			CTR:   stat.Mean(ctr[g], nil),
			Spend: stat.Mean(spend[g], nil),
			Size:  len(cpc[g]),
		}
	}
	if len(ds) > 0 {
		global = GroupStats{
			CPC:   stat.Mean(allCPC, nil),
			CTR:   stat.Mean(allCTR, nil),
			Spend: stat.Mean(allSpend, nil),
			Size:  len(ds),
		}
	}
	return groups, global
}

// Classify applies the priority-ordered policy: efficient segments first,
// then segments whose CPC is strictly above global CPC times the multiplier,
// everything else is stable.
func (c Config) Classify(group, global GroupStats) Class {
	switch {
	case group.CPC < global.CPC && group.CTR >= global.CTR:
		return c.TopPerformers
	case group.CPC > global.CPC*c.RiskyCPCMultiplier:
		return c.MoneyPits
	default:
		return c.Stable
	}
}

// Label builds one insight per group present in the dataset.
func (c Config) Label(ds Dataset) map[int]SegmentInsight {
	groups, global := Aggregate(ds)
	insights := make(map[int]SegmentInsight, len(groups))
	for g, s := range groups {
		class := c.Classify(s, global)
		insights[g] = SegmentInsight{
			CPC:            s.CPC,
			CTR:            s.CTR,
			Spend:          s.Spend,
			Size:           s.Size,
			Label:          class.Label,
			Status:         class.Status,
			Recommendation: class.Recommendation,
		}
	}
	return insights
}

// RiskyGroups returns the sorted ids of Risky segments.
func RiskyGroups(insights map[int]SegmentInsight) []int {
	ids := []int{}
	for g, in := range insights {
		if in.Status == StatusRisky {
			ids = append(ids, g)
		}
	}
	sort.Ints(ids)
	return ids
}
