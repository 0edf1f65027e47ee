package db

import (
	"fmt"

	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// =========================
		// Report read models
		// =========================
		&types.ActivityReport{},
		&types.ActivityReportGoal{},
		&types.ActivityReportObjective{},

		// =========================
		// Resources
		// =========================
		&types.Resource{},
		&types.ResourceAssociation{},

		// =========================
		// Files
		// =========================
		&types.File{},
		&types.FileAssociation{},

		// =========================
		// Jobs / worker
		// =========================
		&types.JobRun{},
		&types.JobRunEvent{},
	)
}

// EnsureResourceIndexes adds the partial indexes AutoMigrate cannot express.
// Postgres only.
func EnsureResourceIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_resource_untitled
		ON resource(id)
		WHERE title IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_resource_untitled: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_run_claimable
		ON job_run(created_at)
		WHERE status IN ('queued', 'failed', 'running');
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_claimable: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_resource_association_report_level
		ON resource_association(resource_id, parent_id)
		WHERE parent_type IN ('report', 'reportGoal', 'reportObjective');
	`).Error; err != nil {
		return fmt.Errorf("create idx_resource_association_report_level: %w", err)
	}
	return nil
}
