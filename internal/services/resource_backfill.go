package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

type MetadataBackfillOptions struct {
	BatchSize       int
	Limit           int
	DryRun          bool
	SkipMimeTypes   []string
	SkipStatusCodes []int
}

type BackfillResult struct {
	Scanned  int
	Enqueued int
}

type FlagBackfillOptions struct {
	BatchSize int
	Parallel  int
	ReportIDs []int64
}

// ResourceBackfill repairs state the online paths only maintain going forward:
// untitled resources with no pending fetch, and flags computed before a fix.
type ResourceBackfill interface {
	EnqueueUntitled(ctx context.Context, opts MetadataBackfillOptions) (*BackfillResult, error)
	RecomputeReportFlags(ctx context.Context, opts FlagBackfillOptions) (int, error)
}

type resourceBackfill struct {
	db        *gorm.DB
	log       *logger.Logger
	resources repos.ResourceRepo
	reports   repos.ActivityReportRepo
	queue     EnrichmentQueue
	service   ResourceService
	jobs      JobService
}

func NewResourceBackfill(db *gorm.DB, baseLog *logger.Logger, set repos.Set, engine *Engine, jobs JobService) ResourceBackfill {
	return &resourceBackfill{
		db:        db,
		log:       baseLog.With("service", "ResourceBackfill"),
		resources: set.Resources,
		reports:   set.Reports,
		queue:     engine.Queue,
		service:   engine.Service,
		jobs:      jobs,
	}
}

func (b *resourceBackfill) EnqueueUntitled(ctx context.Context, opts MetadataBackfillOptions) (*BackfillResult, error) {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 500
	}
	out := &BackfillResult{}
	var afterID int64
	for {
		rows, err := b.resources.ListUntitled(dbctx.Context{Ctx: ctx}, repos.UntitledFilter{
			AfterID:         afterID,
			Limit:           batch,
			SkipMimeTypes:   opts.SkipMimeTypes,
			SkipStatusCodes: opts.SkipStatusCodes,
		})
		if err != nil {
			return out, fmt.Errorf("list untitled resources: %w", err)
		}
		if len(rows) == 0 {
			break
		}
		err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			dbc := dbctx.Context{Ctx: ctx, Tx: tx}
			for _, r := range rows {
				if opts.Limit > 0 && out.Scanned >= opts.Limit {
					return nil
				}
				out.Scanned++
				if opts.DryRun {
					continue
				}
				ok, err := b.queue.Enqueue(dbc, r.ID, r.URL)
				if err != nil {
					return err
				}
				if ok {
					out.Enqueued++
				}
			}
			return nil
		})
		if err != nil {
			return out, err
		}
		afterID = rows[len(rows)-1].ID
		if opts.Limit > 0 && out.Scanned >= opts.Limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	if out.Enqueued > 0 {
		b.jobs.Dispatch(ctx, JobTypeGetMetadata)
	}
	b.log.Info("metadata backfill done", "scanned", out.Scanned, "enqueued", out.Enqueued, "dry_run", opts.DryRun)
	return out, nil
}

// RecomputeReportFlags re-derives onAR/onApprovedAR for every goal and
// objective touched by the given reports, or by all reports when none are given.
// Each report commits on its own.
func (b *resourceBackfill) RecomputeReportFlags(ctx context.Context, opts FlagBackfillOptions) (int, error) {
	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = 4
	}
	var done atomic.Int64
	run := func(ids []int64) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(parallel)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				err := b.db.WithContext(gctx).Transaction(func(tx *gorm.DB) error {
					return b.service.SyncReportStatus(dbctx.Context{Ctx: gctx, Tx: tx}, id)
				})
				if err != nil {
					return fmt.Errorf("report %d: %w", id, err)
				}
				done.Add(1)
				return nil
			})
		}
		return g.Wait()
	}

	if len(opts.ReportIDs) > 0 {
		err := run(opts.ReportIDs)
		return int(done.Load()), err
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 500
	}
	var afterID int64
	for {
		ids, err := b.reports.ListIDs(dbctx.Context{Ctx: ctx}, afterID, batch)
		if err != nil {
			return int(done.Load()), fmt.Errorf("list reports: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		if err := run(ids); err != nil {
			return int(done.Load()), err
		}
		afterID = ids[len(ids)-1]
	}
	b.log.Info("flag backfill done", "reports", done.Load())
	return int(done.Load()), nil
}
