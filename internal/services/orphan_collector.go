package services

import (
	"strconv"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	"github.com/yungbote/ttahub-resources-backend/internal/observability"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

// OrphanCollector deletes resources and files nothing points at any more.
// Call it after association destroys only; both sweeps are idempotent.
type OrphanCollector interface {
	SweepResource(dbc dbctx.Context, resourceID int64) (bool, error)
	// SweepFile also enqueues removal of the stored blob when the row goes.
	SweepFile(dbc dbctx.Context, fileID int64) (bool, error)
}

type orphanCollector struct {
	log      *logger.Logger
	registry ResourceRegistry
	files    repos.FileRepo
	jobs     JobService
}

func NewOrphanCollector(baseLog *logger.Logger, registry ResourceRegistry, files repos.FileRepo, jobs JobService) OrphanCollector {
	return &orphanCollector{
		log:      baseLog.With("service", "OrphanCollector"),
		registry: registry,
		files:    files,
		jobs:     jobs,
	}
}

func (c *orphanCollector) SweepResource(dbc dbctx.Context, resourceID int64) (bool, error) {
	deleted, err := c.registry.Delete(dbc, resourceID)
	if err != nil {
		return false, err
	}
	observability.Current().IncSweep(EntityTypeResource, deleted)
	return deleted, nil
}

func (c *orphanCollector) SweepFile(dbc dbctx.Context, fileID int64) (bool, error) {
	file, err := c.files.GetByID(dbc, fileID)
	if err != nil {
		return false, err
	}
	if file == nil {
		return false, nil
	}
	deleted, err := c.files.DeleteIfUnreferenced(dbc, fileID)
	if err != nil {
		return false, err
	}
	observability.Current().IncSweep(EntityTypeFile, deleted)
	if !deleted {
		return false, nil
	}
	if _, err := c.jobs.Enqueue(dbc, EnqueueRequest{
		JobType:    JobTypeDeleteFileBlob,
		EntityType: EntityTypeFile,
		EntityID:   strconv.FormatInt(fileID, 10),
		Payload: map[string]any{
			"fileId":        fileID,
			"key":           file.Key,
			"referenceData": referenceData(dbc),
		},
	}); err != nil {
		return false, err
	}
	c.log.Debug("file deleted, blob removal queued", "file_id", fileID, "key", file.Key)
	return true, nil
}
