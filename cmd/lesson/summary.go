package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-learn/internal/report"
	"github.com/p-n-ai/pai-learn/internal/session"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <lesson-id>",
		Short: "Show the scored summary of a lesson",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, err := a.lesson(ctx, args[0])
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), session.LoadSummary(ctx, l, nil, a.progressService(), a.local, a.logger))
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <lesson-id>",
		Short: "Export a lesson summary as an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, err := a.lesson(ctx, args[0])
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = l.ID + "-summary.xlsx"
			}

			sum := session.LoadSummary(ctx, l, nil, a.progressService(), a.local, a.logger)
			if err := writeFile(out, func(f *os.File) error { return report.WriteLessonSummary(f, sum) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file (default <lesson-id>-summary.xlsx)")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the learner dashboard from the Progress Service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.client == nil {
				return fmt.Errorf("report needs a Progress Service; set --api")
			}
			d, err := a.client.ReportSummary(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch report: %w", err)
			}

			w := cmd.OutOrStdout()
			titles := make([]string, 0, len(d.ScoresByLesson))
			for title := range d.ScoresByLesson {
				titles = append(titles, title)
			}
			sort.Strings(titles)
			for _, title := range titles {
				fmt.Fprintf(w, "%-30s %3d%%\n", title, d.ScoresByLesson[title])
			}
			fmt.Fprintf(w, "Total XP: %d\n", d.TotalXP)
			fmt.Fprintf(w, "Average completion: %.2f\n", d.AvgAccuracy)

			if out, _ := cmd.Flags().GetString("output"); out != "" {
				if err := writeFile(out, func(f *os.File) error { return report.WriteDashboard(f, d) }); err != nil {
					return err
				}
				fmt.Fprintf(w, "Wrote %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Also write the dashboard to an XLSX file")
	return cmd
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
