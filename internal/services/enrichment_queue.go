package services

import (
	"strconv"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/ctxutil"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

const (
	JobTypeGetMetadata    = "GET_METADATA"
	JobTypeDeleteFileBlob = "DELETE_FILE_BLOB"

	EntityTypeResource = "resource"
	EntityTypeFile     = "file"
)

// EngineJobTypes are the job types the resource engine enqueues.
var EngineJobTypes = []string{JobTypeGetMetadata, JobTypeDeleteFileBlob}

// GetMetadataPayload is the job_run payload for JobTypeGetMetadata.
type GetMetadataPayload struct {
	ResourceID    int64             `json:"resourceId"`
	ResourceURL   string            `json:"resourceUrl"`
	Key           string            `json:"key"`
	ReferenceData ctxutil.AuditData `json:"referenceData"`
}

// DeleteFileBlobPayload is the job_run payload for JobTypeDeleteFileBlob.
type DeleteFileBlobPayload struct {
	FileID        int64             `json:"fileId"`
	Key           string            `json:"key"`
	ReferenceData ctxutil.AuditData `json:"referenceData"`
}

type EnrichmentQueue interface {
	// Enqueue schedules a metadata fetch inside the caller's transaction. It is a
	// no-op when the resource is gone, already titled, or already has a live job.
	Enqueue(dbc dbctx.Context, resourceID int64, url string) (bool, error)
}

type enrichmentQueue struct {
	log       *logger.Logger
	resources repos.ResourceRepo
	jobRuns   repos.JobRunRepo
	jobs      JobService
}

func NewEnrichmentQueue(baseLog *logger.Logger, resources repos.ResourceRepo, jobRuns repos.JobRunRepo, jobs JobService) EnrichmentQueue {
	return &enrichmentQueue{
		log:       baseLog.With("service", "EnrichmentQueue"),
		resources: resources,
		jobRuns:   jobRuns,
		jobs:      jobs,
	}
}

func (q *enrichmentQueue) Enqueue(dbc dbctx.Context, resourceID int64, url string) (bool, error) {
	res, err := q.resources.GetByID(dbc, resourceID)
	if err != nil {
		return false, err
	}
	if res == nil {
		q.log.Debug("enrichment skipped, resource missing", "resource_id", resourceID)
		return false, nil
	}
	if res.HasTitle() {
		return false, nil
	}
	entityID := strconv.FormatInt(resourceID, 10)
	exists, err := q.jobRuns.ExistsRunnable(dbc, JobTypeGetMetadata, EntityTypeResource, entityID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if url == "" {
		url = res.URL
	}
	payload := map[string]any{
		"resourceId":    resourceID,
		"resourceUrl":   url,
		"key":           JobTypeGetMetadata,
		"referenceData": referenceData(dbc),
	}
	if _, err := q.jobs.Enqueue(dbc, EnqueueRequest{
		JobType:    JobTypeGetMetadata,
		EntityType: EntityTypeResource,
		EntityID:   entityID,
		Payload:    payload,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func referenceData(dbc dbctx.Context) ctxutil.AuditData {
	if ad := ctxutil.GetAuditData(dbc.Ctx); ad != nil {
		return *ad
	}
	return ctxutil.AuditData{}
}
