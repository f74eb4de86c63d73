package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary  = "Summary"
	sheetSegments = "Segments"
	sheetRisky    = "Risky Ads"
	sheetRaw      = "Raw Data"
)

// WriteXLSX writes the report as a workbook with one sheet per dashboard tab.
func WriteXLSX(w io.Writer, rep *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetSegments, sheetRisky, sheetRaw} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	s := rep.Summary
	summary := [][]any{
		{"Metric", "Value"},
		{"Ads Analyzed", s.AdsAnalyzed},
		{"Avg CPC", s.AvgCPC},
		{"Avg CTR", s.AvgCTR},
		{"AI Confidence", s.Confidence},
		{"Total Spend", s.TotalSpend},
		{"Potential Savings", s.PotentialSavings},
	}

	segments := [][]any{{"Group", "Label", "Status", "CPC", "CTR", "Spend", "Ads", "Recommendation"}}
	for _, c := range rep.Segments {
		segments = append(segments, []any{c.GroupID, c.Label, string(c.Status), c.CPC, c.CTR, c.Spend, c.Size, c.Recommendation})
	}

	risky := [][]any{{"ad_id", "Spend", "Clicks", "CPC", "CTR", "ad_group"}}
	for _, r := range rep.RiskyAds {
		risky = append(risky, []any{r.AdID, r.Spend, r.Clicks, r.CPC, r.CTR, r.Group})
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{sheetSummary, summary},
		{sheetSegments, segments},
		{sheetRisky, risky},
		{sheetRaw, rawRows(rep)},
	}
	for _, sh := range sheets {
		if err := writeRows(f, sh.name, sh.rows, bold); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// rawRows lays out every detailed row: passthrough columns first (union in
// first-seen order), then the canonical and derived fields.
func rawRows(rep *Report) [][]any {
	var extra []string
	seen := map[string]bool{}
	for _, r := range rep.Rows {
		for _, c := range r.Passthrough {
			if !seen[c.Column] {
				seen[c.Column] = true
				extra = append(extra, c.Column)
			}
		}
	}

	header := make([]any, 0, len(extra)+7)
	for _, c := range extra {
		header = append(header, c)
	}
	header = append(header, "ad_id", "Spend", "Clicks", "Impressions", "CTR", "CPC", "ad_group")

	out := [][]any{header}
	for _, r := range rep.Rows {
		vals := make(map[string]string, len(r.Passthrough))
		for _, c := range r.Passthrough {
			vals[c.Column] = c.Value
		}
		row := make([]any, 0, len(header))
		for _, c := range extra {
			row = append(row, vals[c])
		}
		row = append(row, r.AdID, r.Spend, r.Clicks, r.Impressions, r.CTR, r.CPC, r.AdGroup)
		out = append(out, row)
	}
	return out
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
	}
	return nil
}

// SheetNames lists the workbook sheets in order.
func SheetNames() []string {
	return []string{sheetSummary, sheetSegments, sheetRisky, sheetRaw}
}
