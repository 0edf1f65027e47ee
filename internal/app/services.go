package app

import (
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	"github.com/yungbote/ttahub-resources-backend/internal/jobs/pipeline/delete_file_blob"
	"github.com/yungbote/ttahub-resources-backend/internal/jobs/pipeline/get_metadata"
	jobrt "github.com/yungbote/ttahub-resources-backend/internal/jobs/runtime"
	"github.com/yungbote/ttahub-resources-backend/internal/jobs/worker"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/webmeta"
	"github.com/yungbote/ttahub-resources-backend/internal/services"
)

type Services struct {
	Jobs   services.JobService
	Engine *services.Engine
	// Worker is nil when this process only serves the API.
	Worker *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, set repos.Set, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	registry := jobrt.NewRegistry()
	var w *worker.Worker
	if cfg.Worker.Enabled {
		w = worker.NewWorker(db, log, set.JobRuns, set.JobEvents, registry, worker.Config{
			Concurrency:  cfg.Worker.Concurrency,
			PollInterval: cfg.Worker.PollInterval,
			StaleRunning: cfg.Worker.StaleRunning,
			Backoff:      cfg.Enrichment.BackoffBase,
		})
	}

	var waker services.JobWaker
	switch {
	case clients.WakeBus != nil:
		waker = clients.WakeBus
	case w != nil:
		waker = w
	}
	jobs := services.NewJobService(log, set.JobRuns, waker, cfg.Enrichment.MaxAttempts)
	engine := services.NewEngine(log, set, jobs)

	fetcher := webmeta.NewFetcher(webmeta.Config{
		Timeout:   cfg.Enrichment.FetchTimeout,
		HostRPS:   cfg.Enrichment.HostRPS,
		HostBurst: cfg.Enrichment.HostBurst,
		UserAgent: cfg.Enrichment.UserAgent,
	}, &http.Client{Timeout: cfg.Enrichment.FetchTimeout})
	if err := registry.Register(get_metadata.New(log, engine.Registry, fetcher)); err != nil {
		return Services{}, fmt.Errorf("register %s: %w", services.JobTypeGetMetadata, err)
	}
	if clients.Blobs != nil {
		if err := registry.Register(delete_file_blob.New(log, clients.Blobs)); err != nil {
			return Services{}, fmt.Errorf("register %s: %w", services.JobTypeDeleteFileBlob, err)
		}
	} else {
		log.Warn("GCS_BUCKET not set; file blobs are not deleted after sweeps")
	}

	return Services{Jobs: jobs, Engine: engine, Worker: w}, nil
}
