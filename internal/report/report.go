// Package report shapes a segmentation run for display: headline metrics,
// segment cards, a Spend-vs-CPC scatter and the risky-ad audit table.
package report

import (
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/stat"

	"github.com/ignite/adoptimizer/internal/segmentation"
)

// Summary is the headline metric row.
type Summary struct {
	AdsAnalyzed      int     `json:"ads_analyzed"`
	AvgCPC           float64 `json:"avg_cpc"`
	AvgCTR           float64 `json:"avg_ctr"`
	Confidence       float64 `json:"confidence"`
	TotalSpend       float64 `json:"total_spend"`
	PotentialSavings float64 `json:"potential_savings"`
}

// SegmentCard is one segment in the executive summary.
type SegmentCard struct {
	GroupID        int                 `json:"group_id"`
	Label          string              `json:"label"`
	Heading        string              `json:"heading"`
	Status         segmentation.Status `json:"status"`
	Color          string              `json:"color"`
	CPC            float64             `json:"cpc"`
	CTR            float64             `json:"ctr"`
	Spend          float64             `json:"spend"`
	Size           int                 `json:"size"`
	Recommendation string              `json:"recommendation"`
}

// Point is one ad on the Spend-vs-CPC scatter, sized by clicks.
type Point struct {
	AdID   string  `json:"ad_id"`
	Spend  float64 `json:"spend"`
	CPC    float64 `json:"cpc"`
	Clicks float64 `json:"clicks"`
	Group  int     `json:"ad_group"`
}

// RiskyAd is one row of the high-risk audit table.
type RiskyAd struct {
	AdID   string  `json:"ad_id"`
	Spend  float64 `json:"spend"`
	Clicks float64 `json:"clicks"`
	CPC    float64 `json:"cpc"`
	CTR    float64 `json:"ctr"`
	Group  int     `json:"ad_group"`
}

// Report is the full presentation payload.
type Report struct {
	Summary  Summary                 `json:"summary"`
	Segments []SegmentCard           `json:"segments"`
	Scatter  []Point                 `json:"scatter"`
	RiskyAds []RiskyAd               `json:"risky_ads"`
	Rows     []segmentation.AdRecord `json:"rows"`
}

// StatusColor maps a segment status to its display colour.
func StatusColor(s segmentation.Status) string {
	switch s {
	case segmentation.StatusScalable:
		return "green"
	case segmentation.StatusRisky:
		return "red"
	default:
		return "orange"
	}
}

// Build derives the report from a run. Risky rows are selected with
// res.RiskyGroups, the same set the savings figure was computed from.
func Build(res *segmentation.RunResult) *Report {
	rows := res.DetailedResults
	rep := &Report{
		Summary: Summary{
			AdsAnalyzed:      len(rows),
			Confidence:       res.ModelAccuracyScore,
			TotalSpend:       res.TotalSpend,
			PotentialSavings: res.PotentialSavings,
		},
		Segments: make([]SegmentCard, 0, len(res.GroupInsights)),
		Scatter:  make([]Point, 0, len(rows)),
		RiskyAds: []RiskyAd{},
		Rows:     rows,
	}

	if len(rows) > 0 {
		cpc := make([]float64, len(rows))
		ctr := make([]float64, len(rows))
		for i, r := range rows {
			cpc[i], ctr[i] = r.CPC, r.CTR
		}
		rep.Summary.AvgCPC = stat.Mean(cpc, nil)
		rep.Summary.AvgCTR = stat.Mean(ctr, nil)
	}

	ids := make([]int, 0, len(res.GroupInsights))
	for g := range res.GroupInsights {
		ids = append(ids, g)
	}
	sort.Ints(ids)
	upper := cases.Upper(language.English)
	for _, g := range ids {
		in := res.GroupInsights[g]
		rep.Segments = append(rep.Segments, SegmentCard{
			GroupID:        g,
			Label:          in.Label,
			Heading:        upper.String(in.Label),
			Status:         in.Status,
			Color:          StatusColor(in.Status),
			CPC:            in.CPC,
			CTR:            in.CTR,
			Spend:          in.Spend,
			Size:           in.Size,
			Recommendation: in.Recommendation,
		})
	}

	for _, r := range rows {
		rep.Scatter = append(rep.Scatter, Point{AdID: r.AdID, Spend: r.Spend, CPC: r.CPC, Clicks: r.Clicks, Group: r.AdGroup})
		if res.IsRisky(r.AdGroup) {
			rep.RiskyAds = append(rep.RiskyAds, RiskyAd{
				AdID: r.AdID, Spend: r.Spend, Clicks: r.Clicks, CPC: r.CPC, CTR: r.CTR, Group: r.AdGroup,
			})
		}
	}
	return rep
}
