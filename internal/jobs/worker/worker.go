package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/jobs/runtime"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	StaleRunning time.Duration
	// Backoff is the base retry delay; attempt n waits Backoff * 2^(n-1).
	Backoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 10 * time.Minute
	}
	if c.Backoff <= 0 {
		c.Backoff = 10 * time.Second
	}
	return c
}

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	events   repos.JobRunEventRepo
	registry *runtime.Registry
	cfg      Config
	wake     chan struct{}
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, events repos.JobRunEventRepo, registry *runtime.Registry, cfg Config) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		events:   events,
		registry: registry,
		cfg:      cfg,
		wake:     make(chan struct{}, cfg.Concurrency),
	}
}

// Wake nudges idle loops to claim now instead of waiting for the next tick.
// It never blocks and satisfies services.JobWaker for in-process use.
func (w *Worker) Wake(ctx context.Context, jobType string) error {
	if _, ok := w.registry.Get(jobType); !ok {
		return nil
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency, "job_types", w.registry.Types())
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		g.Go(func() error {
			w.runLoop(gctx, workerID)
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) Start(ctx context.Context) {
	go func() { _ = w.Run(ctx) }()
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
		case <-w.wake:
		}
		// Drain: keep claiming until the queue has nothing runnable.
		for ctx.Err() == nil {
			ran, err := w.RunOnce(ctx, workerID)
			if err != nil {
				w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
				break
			}
			if !ran {
				break
			}
		}
	}
}

// RunOnce claims and executes at most one job.
func (w *Worker) RunOnce(ctx context.Context, workerID int) (bool, error) {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.cfg.StaleRunning)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.events, w.cfg.Backoff)

	if job.Attempts > job.MaxAttempts {
		// A stale running job reclaimed past its budget.
		job.Attempts = job.MaxAttempts
		jc.Fail("stale", fmt.Errorf("worker lost after %d attempts", job.MaxAttempts))
		w.log.Error("Job exceeded attempts while running", "job_id", job.ID, "job_type", job.JobType)
		return true, nil
	}

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type",
			"worker_id", workerID,
			"job_type", job.JobType,
			"job_id", job.ID,
		)
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		return true, nil
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic",
					"worker_id", workerID,
					"job_id", job.ID,
					"job_type", job.JobType,
					"panic", r,
				)
				jc.Fail("panic", errFromRecover(r))
			}
		}()
		if runErr := h.Run(jc); runErr != nil {
			// Handlers normally call jc.Fail themselves.
			jc.Fail("run", runErr)
		}
	}()

	switch jc.Job.Status {
	case types.JobStatusDead:
		w.log.Error("Job dead-lettered", "job_id", job.ID, "job_type", job.JobType, "attempts", job.Attempts, "error", jc.Job.Error)
	case types.JobStatusFailed:
		w.log.Warn("Job attempt failed", "job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts, "error", jc.Job.Error)
	case types.JobStatusRunning:
		// Handler returned without reporting; treat as success.
		jc.Succeed("done", nil)
	}
	return true, nil
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
