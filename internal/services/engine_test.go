package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	"github.com/yungbote/ttahub-resources-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
)

type recordingWaker struct {
	mu    sync.Mutex
	woken []string
}

func (w *recordingWaker) Wake(ctx context.Context, jobType string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.woken = append(w.woken, jobType)
	return nil
}

type harness struct {
	db     *gorm.DB
	tx     *gorm.DB
	dbc    dbctx.Context
	set    repos.Set
	jobs   JobService
	waker  *recordingWaker
	engine *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	tx := testutil.Tx(t, db)
	set := repos.NewSet(db, log)
	waker := &recordingWaker{}
	jobs := NewJobService(log, set.JobRuns, waker, 3)
	return &harness{
		db:     db,
		tx:     tx,
		dbc:    dbctx.Context{Ctx: context.Background(), Tx: tx},
		set:    set,
		jobs:   jobs,
		waker:  waker,
		engine: NewEngine(log, set, jobs),
	}
}

func (h *harness) reconcile(t *testing.T, in ReconcileInput) *ReconcileResult {
	t.Helper()
	res, err := h.engine.Service.UpsertAndAssociate(h.dbc, in)
	if err != nil {
		t.Fatalf("reconcile %s/%d: %v", in.ParentType, in.ParentID, err)
	}
	return res
}

func (h *harness) associations(t *testing.T, pt types.ParentType, id int64) []*types.ResourceAssociation {
	t.Helper()
	rows, err := h.set.Associations.ListByParent(h.dbc, pt, id)
	if err != nil {
		t.Fatalf("list associations: %v", err)
	}
	return rows
}

func (h *harness) countResources(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := h.tx.Model(&types.Resource{}).Count(&n).Error; err != nil {
		t.Fatalf("count resources: %v", err)
	}
	return n
}

func (h *harness) countJobs(t *testing.T, jobType string) int64 {
	t.Helper()
	var n int64
	if err := h.tx.Model(&types.JobRun{}).Where("job_type = ?", jobType).Count(&n).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	return n
}

func fieldSet(fields ...types.SourceField) types.SourceFields {
	return types.NewSourceFields(fields...).Normalized()
}

func (h *harness) associationIDs(t *testing.T, pt types.ParentType, id int64) []int64 {
	t.Helper()
	var ids []int64
	for _, a := range h.associations(t, pt, id) {
		ids = append(ids, a.ID)
	}
	return ids
}
