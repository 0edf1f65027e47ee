package repos

import (
	"github.com/yungbote/ttahub-resources-backend/internal/data/repos/jobs"
	"github.com/yungbote/ttahub-resources-backend/internal/data/repos/reports"
	"github.com/yungbote/ttahub-resources-backend/internal/data/repos/resources"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ResourceRepo = resources.ResourceRepo
type AssociationRepo = resources.AssociationRepo
type FlagRepo = resources.FlagRepo
type FileRepo = resources.FileRepo
type UntitledFilter = resources.UntitledFilter
type RecomputeFilter = resources.RecomputeFilter
type ReportLink = resources.ReportLink

type ActivityReportRepo = reports.ActivityReportRepo

type JobRunRepo = jobs.JobRunRepo
type JobRunEventRepo = jobs.JobRunEventRepo

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
	return resources.NewResourceRepo(db, baseLog)
}
func NewAssociationRepo(db *gorm.DB, baseLog *logger.Logger) AssociationRepo {
	return resources.NewAssociationRepo(db, baseLog)
}
func NewFileRepo(db *gorm.DB, baseLog *logger.Logger) FileRepo {
	return resources.NewFileRepo(db, baseLog)
}

func NewActivityReportRepo(db *gorm.DB, baseLog *logger.Logger) ActivityReportRepo {
	return reports.NewActivityReportRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
func NewJobRunEventRepo(db *gorm.DB, baseLog *logger.Logger) JobRunEventRepo {
	return jobs.NewJobRunEventRepo(db, baseLog)
}

// Set is every repo the engine needs, built over one *gorm.DB.
type Set struct {
	Resources    ResourceRepo
	Associations AssociationRepo
	Files        FileRepo
	Reports      ActivityReportRepo
	JobRuns      JobRunRepo
	JobEvents    JobRunEventRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Resources:    NewResourceRepo(db, baseLog),
		Associations: NewAssociationRepo(db, baseLog),
		Files:        NewFileRepo(db, baseLog),
		Reports:      NewActivityReportRepo(db, baseLog),
		JobRuns:      NewJobRunRepo(db, baseLog),
		JobEvents:    NewJobRunEventRepo(db, baseLog),
	}
}
