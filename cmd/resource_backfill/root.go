package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/ttahub-resources-backend/internal/app"
	"github.com/yungbote/ttahub-resources-backend/internal/services"
)

var rootCmd = &cobra.Command{
	Use:   "resource-backfill",
	Short: "Repair resource metadata and onAR flags",
	Long: `Maintenance commands for the resource engine.

Examples:
  # Queue metadata fetches for every untitled resource
  resource-backfill metadata

  # Show how many would be queued without writing
  resource-backfill metadata --dry-run

  # Recompute goal/objective flags for two reports
  resource-backfill recompute-flags --report 12 --report 40`,
	SilenceUsage: true,
}

// withBackfill builds the app without starting the HTTP server or worker.
func withBackfill(fn func(a *app.App, b services.ResourceBackfill) error) error {
	a, err := app.New()
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()
	b := services.NewResourceBackfill(a.DB, a.Log, a.Repos, a.Services.Engine, a.Services.Jobs)
	return fn(a, b)
}
