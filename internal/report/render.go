package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ignite/adoptimizer/internal/segmentation"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1c2b46"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#495057"))
	valueStyle  = lipgloss.NewStyle().Bold(true)
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(34)
	statusColor = map[string]lipgloss.Color{
		"green":  lipgloss.Color("#2f9e44"),
		"red":    lipgloss.Color("#e03131"),
		"orange": lipgloss.Color("#f08c00"),
	}
)

// Render lays the report out for a terminal: the metric row, one card per
// segment and the risky-ad table.
func Render(rep *Report) string {
	var b strings.Builder

	s := rep.Summary
	metrics := []struct{ label, value string }{
		{"Ads Analyzed", Count(s.AdsAnalyzed)},
		{"Avg CPC", Currency(s.AvgCPC)},
		{"Avg CTR", Percent(s.AvgCTR)},
		{"AI Confidence", fmt.Sprintf("%.1f%%", s.Confidence*100)},
		{"Potential Savings", Currency(s.PotentialSavings)},
	}
	b.WriteString(titleStyle.Render("Performance Segments"))
	b.WriteString("\n")
	for _, m := range metrics {
		b.WriteString(labelStyle.Render(m.label+": ") + valueStyle.Render(m.value) + "\n")
	}
	b.WriteString("\n")

	cards := make([]string, 0, len(rep.Segments))
	for _, c := range rep.Segments {
		heading := lipgloss.NewStyle().Bold(true).Foreground(statusColor[c.Color]).Render(c.Heading)
		body := fmt.Sprintf("Group %d\n%s\nCPC: %s | CTR: %s\nAds: %d\n%s",
			c.GroupID, heading, Currency(c.CPC), Percent(c.CTR), c.Size, c.Recommendation)
		cards = append(cards, cardStyle.BorderForeground(statusColor[c.Color]).Render(body))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("High-Risk Ad Audit"))
	b.WriteString("\n")
	if len(rep.RiskyAds) == 0 {
		b.WriteString("No high-risk ads found!\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Found %d ads classified as '%s' or '%s'.\n",
		len(rep.RiskyAds), segmentation.StatusRisky, moneyPitLabel(rep))
	fmt.Fprintf(&b, "%-16s %12s %8s %10s %9s %8s\n", "ad_id", "Spend", "Clicks", "CPC", "CTR", "ad_group")
	for _, r := range rep.RiskyAds {
		fmt.Fprintf(&b, "%-16s %12s %8.0f %10s %9s %8d\n",
			truncate(r.AdID, 16), Currency(r.Spend), r.Clicks, Currency(r.CPC), Percent(r.CTR), r.Group)
	}
	return b.String()
}

func moneyPitLabel(rep *Report) string {
	for _, c := range rep.Segments {
		if c.Status == segmentation.StatusRisky {
			return c.Label
		}
	}
	return "Money Pits"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
