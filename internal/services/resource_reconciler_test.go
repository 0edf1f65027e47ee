package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	"github.com/yungbote/ttahub-resources-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	pkgerrors "github.com/yungbote/ttahub-resources-backend/internal/pkg/errors"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
)

func TestReconcileProvenanceAndUniqueness(t *testing.T) {
	h := newHarness(t)

	res := h.reconcile(t, ReconcileInput{
		ParentType: types.ParentReport,
		ParentID:   1,
		Fields: map[types.SourceField]string{
			types.FieldContext:               "See https://eclkc.ohs.acf.hhs.gov/a and http://example.com/x.",
			types.FieldNonECLKCResourcesUsed: "again https://eclkc.ohs.acf.hhs.gov/a",
		},
	})
	if res.Created != 2 || res.Updated != 0 || res.Removed != 0 {
		t.Fatalf("first pass: got=%+v", res)
	}
	if res.Enqueued != 2 {
		t.Fatalf("enqueued: want=2 got=%d", res.Enqueued)
	}

	rows := h.associations(t, types.ParentReport, 1)
	if len(rows) != 2 {
		t.Fatalf("associations: want=2 got=%d", len(rows))
	}
	byURL := map[string]*types.ResourceAssociation{}
	for _, a := range rows {
		byURL[a.Resource.URL] = a
	}
	eclkc := byURL["https://eclkc.ohs.acf.hhs.gov/a"]
	if eclkc == nil {
		t.Fatalf("missing eclkc association: %+v", rows)
	}
	if want := fieldSet(types.FieldContext, types.FieldNonECLKCResourcesUsed); !eclkc.Fields().Equal(want) {
		t.Fatalf("provenance: want=%v got=%v", want, eclkc.Fields())
	}
	if eclkc.Resource.Domain != "eclkc.ohs.acf.hhs.gov" {
		t.Fatalf("domain: got=%s", eclkc.Resource.Domain)
	}

	// Same link from another parent, host case differs.
	res = h.reconcile(t, ReconcileInput{
		ParentType: types.ParentNextStep,
		ParentID:   9,
		Fields:     map[types.SourceField]string{types.FieldNote: "https://ECLKC.ohs.acf.hhs.gov/a"},
	})
	if res.Created != 1 || res.Enqueued != 0 {
		t.Fatalf("second parent: got=%+v", res)
	}
	if got := h.countResources(t); got != 2 {
		t.Fatalf("resources: want=2 got=%d", got)
	}
	next := h.associations(t, types.ParentNextStep, 9)
	if len(next) != 1 || next[0].ResourceID != eclkc.ResourceID {
		t.Fatalf("dedupe: want resource %d got=%+v", eclkc.ResourceID, next)
	}
	if got := h.countJobs(t, JobTypeGetMetadata); got != 2 {
		t.Fatalf("metadata jobs: want=2 got=%d", got)
	}
}

func TestReconcileConvergesAndRemoves(t *testing.T) {
	h := newHarness(t)
	in := ReconcileInput{
		ParentType: types.ParentObjective,
		ParentID:   4,
		Fields:     map[types.SourceField]string{types.FieldTitle: "http://a.org/1 http://b.org/2"},
	}
	h.reconcile(t, in)

	again := h.reconcile(t, in)
	if again.Created != 0 || again.Updated != 0 || again.Removed != 0 {
		t.Fatalf("idempotent pass: got=%+v", again)
	}

	// b.org is also referenced elsewhere and must survive the sweep.
	h.reconcile(t, ReconcileInput{
		ParentType: types.ParentGoalTemplate,
		ParentID:   2,
		Fields:     map[types.SourceField]string{types.FieldName: "http://b.org/2"},
	})

	res := h.reconcile(t, ReconcileInput{
		ParentType: types.ParentObjective,
		ParentID:   4,
		Fields:     map[types.SourceField]string{types.FieldTitle: "nothing here"},
	})
	if res.Removed != 2 {
		t.Fatalf("removed: want=2 got=%+v", res)
	}
	if rows := h.associations(t, types.ParentObjective, 4); len(rows) != 0 {
		t.Fatalf("objective associations: want=0 got=%d", len(rows))
	}
	if got := h.countResources(t); got != 1 {
		t.Fatalf("resources after sweep: want=1 got=%d", got)
	}
	left, err := h.set.Resources.GetByDomainURL(h.dbc, "b.org", "http://b.org/2")
	if err != nil || left == nil {
		t.Fatalf("b.org should remain: res=%v err=%v", left, err)
	}
}

func TestReconcileExplicitResources(t *testing.T) {
	h := newHarness(t)
	h.reconcile(t, ReconcileInput{
		ParentType: types.ParentGoal,
		ParentID:   3,
		Fields:     map[types.SourceField]string{types.FieldName: "goal http://auto.org"},
		Resources:  []string{"https://manual.org/doc", "not a link"},
	})
	rows := h.associations(t, types.ParentGoal, 3)
	if len(rows) != 2 {
		t.Fatalf("associations: want=2 got=%d", len(rows))
	}

	// nil resources keep existing explicit links; the auto link is re-read from text.
	res := h.reconcile(t, ReconcileInput{
		ParentType: types.ParentGoal,
		ParentID:   3,
		Fields:     map[types.SourceField]string{types.FieldName: "goal http://manual.org/other"},
	})
	if res.Created != 1 || res.Removed != 1 {
		t.Fatalf("carry forward: got=%+v", res)
	}
	manual := false
	for _, a := range h.associations(t, types.ParentGoal, 3) {
		if a.Resource.URL == "https://manual.org/doc" {
			manual = true
			if !a.Fields().Equal(fieldSet(types.FieldResource)) || a.Fields().AutoDetected() {
				t.Fatalf("manual provenance: got=%v", a.Fields())
			}
		}
	}
	if !manual {
		t.Fatalf("explicit link dropped when resources were omitted")
	}

	// Adding the same link to text merges provenance on the existing row.
	res = h.reconcile(t, ReconcileInput{
		ParentType: types.ParentGoal,
		ParentID:   3,
		Fields:     map[types.SourceField]string{types.FieldName: "https://manual.org/doc", types.FieldTimeframe: ""},
	})
	if res.Updated != 1 || res.Removed != 1 {
		t.Fatalf("merge: got=%+v", res)
	}

	// An empty slice is authoritative and clears the explicit provenance.
	res = h.reconcile(t, ReconcileInput{
		ParentType: types.ParentGoal,
		ParentID:   3,
		Fields:     map[types.SourceField]string{types.FieldName: "https://manual.org/doc"},
		Resources:  []string{},
	})
	if res.Updated != 1 {
		t.Fatalf("clear explicit: got=%+v", res)
	}
	rows = h.associations(t, types.ParentGoal, 3)
	if len(rows) != 1 || !rows[0].Fields().Equal(fieldSet(types.FieldName)) {
		t.Fatalf("after clear: got=%+v", rows)
	}
}

func TestReconcileValidation(t *testing.T) {
	h := newHarness(t)
	cases := []ReconcileInput{
		{ParentType: "unknown", ParentID: 1},
		{ParentType: types.ParentGoal, ParentID: 0},
		{ParentType: types.ParentGoal, ParentID: 1, Fields: map[types.SourceField]string{types.FieldTitle: "x"}},
		{ParentType: types.ParentGoal, ParentID: 1, Fields: map[types.SourceField]string{types.FieldResource: "http://a.org"}},
	}
	for i, in := range cases {
		_, err := h.engine.Service.UpsertAndAssociate(h.dbc, in)
		if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
			t.Fatalf("case %d: want ErrInvalidArgument got=%v", i, err)
		}
	}
	if got := h.countResources(t); got != 0 {
		t.Fatalf("invalid input wrote resources: %d", got)
	}
}

func TestReconcileWidensResourceTimestamps(t *testing.T) {
	h := newHarness(t)
	late := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	early := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	h.reconcile(t, ReconcileInput{
		ParentType: types.ParentNextStep, ParentID: 1,
		Fields: map[types.SourceField]string{types.FieldNote: "http://w.org"},
		SeenAt: late,
	})
	h.reconcile(t, ReconcileInput{
		ParentType: types.ParentNextStep, ParentID: 2,
		Fields: map[types.SourceField]string{types.FieldNote: "http://w.org"},
		SeenAt: early,
	})
	r, err := h.set.Resources.GetByDomainURL(h.dbc, "w.org", "http://w.org")
	if err != nil || r == nil {
		t.Fatalf("get: res=%v err=%v", r, err)
	}
	if !r.CreatedAt.Equal(early) || !r.UpdatedAt.Equal(late) {
		t.Fatalf("timestamps: created=%s updated=%s", r.CreatedAt, r.UpdatedAt)
	}
}

func TestDestroyParent(t *testing.T) {
	h := newHarness(t)
	h.reconcile(t, ReconcileInput{
		ParentType: types.ParentObjectiveTemplate, ParentID: 8,
		Fields: map[types.SourceField]string{types.FieldTitle: "http://gone.org"},
	})
	file := testutil.SeedFile(t, h.dbc.Ctx, h.tx, "uploads/a.pdf")
	shared := testutil.SeedFile(t, h.dbc.Ctx, h.tx, "uploads/b.pdf")
	testutil.SeedFileAssociation(t, h.dbc.Ctx, h.tx, types.ParentObjectiveTemplate, 8, file.ID)
	testutil.SeedFileAssociation(t, h.dbc.Ctx, h.tx, types.ParentObjectiveTemplate, 8, shared.ID)
	testutil.SeedFileAssociation(t, h.dbc.Ctx, h.tx, types.ParentSession, 1, shared.ID)

	res, err := h.engine.Service.DestroyParent(h.dbc, types.ParentObjectiveTemplate, 8, DestroyOptions{})
	if err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if res.Removed != 1 || res.FilesRemoved != 2 || res.Enqueued != 1 {
		t.Fatalf("destroy result: got=%+v", res)
	}
	if got := h.countResources(t); got != 0 {
		t.Fatalf("resource not swept: %d", got)
	}
	if f, _ := h.set.Files.GetByID(h.dbc, file.ID); f != nil {
		t.Fatalf("orphan file not deleted")
	}
	if f, _ := h.set.Files.GetByID(h.dbc, shared.ID); f == nil {
		t.Fatalf("shared file deleted")
	}
	if got := h.countJobs(t, JobTypeDeleteFileBlob); got != 1 {
		t.Fatalf("blob jobs: want=1 got=%d", got)
	}

	// Session is a file-only parent.
	res, err = h.engine.Service.DestroyParent(h.dbc, types.ParentSession, 1, DestroyOptions{})
	if err != nil {
		t.Fatalf("destroy session: %v", err)
	}
	if res.Removed != 0 || res.FilesRemoved != 1 || res.Enqueued != 1 {
		t.Fatalf("session result: got=%+v", res)
	}
	if _, err := h.engine.Service.DestroyParent(h.dbc, "nope", 1, DestroyOptions{}); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("unknown parent: want ErrInvalidArgument got=%v", err)
	}
}

func TestReconcileConcurrentParents(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	engine := NewEngine(log, set, NewJobService(log, set.JobRuns, nil, 3))

	const parents = 6
	var wg sync.WaitGroup
	errs := make(chan error, parents)
	for i := 1; i <= parents; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			errs <- db.Transaction(func(tx *gorm.DB) error {
				_, err := engine.Service.UpsertAndAssociate(dbctx.Context{Ctx: context.Background(), Tx: tx}, ReconcileInput{
					ParentType: types.ParentNextStep,
					ParentID:   id,
					Fields:     map[types.SourceField]string{types.FieldNote: "shared https://same.org/x"},
				})
				return err
			})
		}(int64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("parallel reconcile: %v", err)
		}
	}
	var resources, links, jobs int64
	db.Model(&types.Resource{}).Count(&resources)
	db.Model(&types.ResourceAssociation{}).Count(&links)
	db.Model(&types.JobRun{}).Count(&jobs)
	if resources != 1 || links != parents || jobs != 1 {
		t.Fatalf("want 1 resource, %d links, 1 job; got resources=%d links=%d jobs=%d", parents, resources, links, jobs)
	}
}
