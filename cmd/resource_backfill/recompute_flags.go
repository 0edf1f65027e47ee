package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/ttahub-resources-backend/internal/app"
	"github.com/yungbote/ttahub-resources-backend/internal/services"
)

var recomputeFlagsCmd = &cobra.Command{
	Use:   "recompute-flags",
	Short: "Recompute onAR/onApprovedAR from report-level links",
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, _ := cmd.Flags().GetInt64Slice("report")
		parallel, _ := cmd.Flags().GetInt("parallel")
		batch, _ := cmd.Flags().GetInt("batch-size")

		return withBackfill(func(a *app.App, b services.ResourceBackfill) error {
			n, err := b.RecomputeReportFlags(cmd.Context(), services.FlagBackfillOptions{
				BatchSize: batch,
				Parallel:  parallel,
				ReportIDs: reports,
			})
			fmt.Printf("recomputed flags for %d reports\n", n)
			return err
		})
	},
}

func init() {
	recomputeFlagsCmd.Flags().Int64Slice("report", nil, "activity report id (repeatable; default all)")
	recomputeFlagsCmd.Flags().Int("parallel", 4, "reports processed concurrently")
	recomputeFlagsCmd.Flags().Int("batch-size", 500, "report ids listed per page")
	rootCmd.AddCommand(recomputeFlagsCmd)
}
