package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ignite/adoptimizer/internal/report"
	"github.com/ignite/adoptimizer/internal/service/audit"
)

func newHistoryCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past audits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			if a.Store == nil {
				fmt.Fprintln(w, "Audit history is disabled; set DATABASE_URL to record audits.")
				return nil
			}

			audits, total, err := a.Service.History(cmd.Context(), owner, audit.ListFilter{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			if len(audits) == 0 {
				fmt.Fprintln(w, "No audits recorded yet.")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "FILE", "ADS", "SPEND", "SAVINGS", "CONFIDENCE", "WHEN")
			for _, au := range audits {
				t.Row(
					au.ID[:8],
					au.Filename,
					report.Count(au.AdsAnalyzed),
					report.Currency(au.TotalSpend),
					report.Currency(au.PotentialSavings),
					fmt.Sprintf("%.2f", au.Confidence),
					au.CreatedAt.Local().Format("2006-01-02 15:04"),
				)
			}
			fmt.Fprintln(w, t.Render())
			fmt.Fprintf(w, "Showing %d of %d audits\n", len(audits), total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", audit.DefaultListLimit, "maximum audits to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "audits to skip")
	return cmd
}
