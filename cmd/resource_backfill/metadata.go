package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/ttahub-resources-backend/internal/app"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/webmeta"
	"github.com/yungbote/ttahub-resources-backend/internal/services"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Queue metadata fetches for untitled resources",
	Long: `Finds resources without a title and queues a GET_METADATA job for each one
that has no queued or running job already.

Resources whose last fetch returned 401, or whose MIME type can never carry a
title (PDF, office documents, archives), are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		batch, _ := cmd.Flags().GetInt("batch-size")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		return withBackfill(func(a *app.App, b services.ResourceBackfill) error {
			res, err := b.EnqueueUntitled(cmd.Context(), services.MetadataBackfillOptions{
				BatchSize:       batch,
				Limit:           limit,
				DryRun:          dryRun,
				SkipMimeTypes:   webmeta.UnparsableMimeTypes,
				SkipStatusCodes: []int{401},
			})
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Printf("would scan %d untitled resources\n", res.Scanned)
				return nil
			}
			fmt.Printf("scanned %d untitled resources, queued %d metadata jobs\n", res.Scanned, res.Enqueued)
			return nil
		})
	},
}

func init() {
	metadataCmd.Flags().Int("limit", 0, "stop after this many resources (0 = all)")
	metadataCmd.Flags().Int("batch-size", 500, "resources per transaction")
	metadataCmd.Flags().Bool("dry-run", false, "count candidates without enqueueing")
	rootCmd.AddCommand(metadataCmd)
}
