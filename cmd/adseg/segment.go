package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ignite/adoptimizer/internal/report"
	"github.com/ignite/adoptimizer/internal/segmentation"
	"github.com/ignite/adoptimizer/internal/service/audit"
)

func newSegmentCmd() *cobra.Command {
	var (
		asJSON   bool
		xlsxPath string
	)
	cmd := &cobra.Command{
		Use:   "segment <file>",
		Short: "Analyse a CSV or XLSX export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.Service.Analyze(cmd.Context(), audit.Upload{
				Filename: filepath.Base(args[0]),
				Owner:    owner,
				Content:  content,
			})
			if err != nil {
				return explain(err)
			}

			if xlsxPath != "" {
				f, err := os.Create(xlsxPath)
				if err != nil {
					return err
				}
				if err := report.WriteXLSX(f, out.Report); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"audit":  out.Audit,
					"report": out.Report,
				})
			}
			fmt.Fprintln(w, report.Render(out.Report))
			if xlsxPath != "" {
				fmt.Fprintf(w, "Report written to %s\n", xlsxPath)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the audit and report as JSON")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the report to this Excel file")
	return cmd
}

// explain turns engine errors into terminal-friendly messages.
func explain(err error) error {
	var segErr *segmentation.Error
	if !errors.As(err, &segErr) {
		return err
	}
	switch segErr.Kind {
	case segmentation.KindMissingColumns:
		return fmt.Errorf("the file is missing required columns (%s); include spend, clicks and impressions",
			strings.Join(segErr.Missing, ", "))
	case segmentation.KindInsufficientData:
		return fmt.Errorf("not enough data to segment: %s", segErr.Message)
	default:
		return fmt.Errorf("invalid file: %s", segErr.Message)
	}
}
