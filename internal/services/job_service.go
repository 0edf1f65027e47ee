package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/observability"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/ctxutil"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

// JobWaker nudges idle workers that a new run is claimable.
type JobWaker interface {
	Wake(ctx context.Context, jobType string) error
}

type EnqueueRequest struct {
	JobType     string
	EntityType  string
	EntityID    string
	MaxAttempts int
	Payload     map[string]any
}

type JobService interface {
	Enqueue(dbc dbctx.Context, req EnqueueRequest) (*types.JobRun, error)
	// Dispatch wakes workers. Call it after the enqueuing transaction commits;
	// workers woken earlier would not see the row yet.
	Dispatch(ctx context.Context, jobTypes ...string)
}

type jobService struct {
	log         *logger.Logger
	repo        repos.JobRunRepo
	waker       JobWaker
	maxAttempts int
}

func NewJobService(baseLog *logger.Logger, repo repos.JobRunRepo, waker JobWaker, maxAttempts int) JobService {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &jobService{
		log:         baseLog.With("service", "JobService"),
		repo:        repo,
		waker:       waker,
		maxAttempts: maxAttempts,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, req EnqueueRequest) (*types.JobRun, error) {
	if req.JobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = s.maxAttempts
	}
	now := time.Now().UTC()
	job := &types.JobRun{
		JobType:     req.JobType,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		Status:      types.JobStatusQueued,
		Stage:       types.JobStatusQueued,
		MaxAttempts: maxAttempts,
		Payload:     datatypes.JSON(b),
		Result:      datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(dbc, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	observability.Current().IncEnqueued(job.JobType)
	s.log.Debug("Job enqueued", "job_id", job.ID, "job_type", job.JobType, "entity_id", job.EntityID)
	return job, nil
}

func (s *jobService) Dispatch(ctx context.Context, jobTypes ...string) {
	if s.waker == nil {
		return
	}
	seen := map[string]struct{}{}
	for _, jt := range jobTypes {
		if _, ok := seen[jt]; ok || jt == "" {
			continue
		}
		seen[jt] = struct{}{}
		if err := s.waker.Wake(ctx, jt); err != nil {
			// Workers still poll on their ticker.
			s.log.Warn("job wake failed", "job_type", jt, "error", err)
		}
	}
}
