package services

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	"github.com/yungbote/ttahub-resources-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	pkgerrors "github.com/yungbote/ttahub-resources-backend/internal/pkg/errors"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/ctxutil"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
)

// racyResources hides an existing row from the first lookup, as if another
// transaction committed it between our read and our insert.
type racyResources struct {
	repos.ResourceRepo
	misses int
}

func (r *racyResources) GetByDomainURL(dbc dbctx.Context, domain, url string) (*types.Resource, error) {
	if r.misses > 0 {
		r.misses--
		return nil, nil
	}
	return r.ResourceRepo.GetByDomainURL(dbc, domain, url)
}

func TestUpsertLostRace(t *testing.T) {
	h := newHarness(t)
	existing := testutil.SeedResource(t, h.dbc.Ctx, h.tx, "race.org", "http://race.org", nil)

	log := testutil.Logger(t)
	racy := &racyResources{ResourceRepo: h.set.Resources, misses: 1}
	queue := NewEnrichmentQueue(log, racy, h.set.JobRuns, h.jobs)
	registry := NewResourceRegistry(log, racy, h.set.Associations, queue)

	res, err := registry.Upsert(h.dbc, "race.org", "http://race.org", time.Now())
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if res.Created || res.ID != existing.ID {
		t.Fatalf("lost race: want id=%d created=false got=%+v", existing.ID, res)
	}
	if got := h.countResources(t); got != 1 {
		t.Fatalf("resources: want=1 got=%d", got)
	}

	racy.misses = upsertAttempts
	if _, err := registry.Upsert(h.dbc, "race.org", "http://race.org", time.Now()); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("exhausted retries: want ErrConflict got=%v", err)
	}
}

func TestEnrichmentEnqueue(t *testing.T) {
	h := newHarness(t)
	audit := &ctxutil.AuditData{UserID: "42", TransactionID: "tx-9"}
	dbc := dbctx.Context{Ctx: ctxutil.WithAuditData(h.dbc.Ctx, audit), Tx: h.tx}

	up, err := h.engine.Registry.Upsert(dbc, "e.org", "http://e.org/p", time.Time{})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !up.Created || !up.Enqueued {
		t.Fatalf("new resource should enqueue: got=%+v", up)
	}

	job, err := h.set.JobRuns.GetLatestByEntity(dbc, EntityTypeResource, strconv.FormatInt(up.ID, 10), JobTypeGetMetadata)
	if err != nil || job == nil {
		t.Fatalf("job lookup: job=%v err=%v", job, err)
	}
	var payload GetMetadataPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.ResourceID != up.ID || payload.ResourceURL != "http://e.org/p" || payload.Key != JobTypeGetMetadata {
		t.Fatalf("payload: got=%+v", payload)
	}
	if payload.ReferenceData.UserID != "42" || payload.ReferenceData.TransactionID != "tx-9" {
		t.Fatalf("reference data: got=%+v", payload.ReferenceData)
	}

	again, err := h.engine.Queue.Enqueue(dbc, up.ID, "http://e.org/p")
	if err != nil {
		t.Fatalf("enqueue again: %v", err)
	}
	if again {
		t.Fatalf("second enqueue should be a no-op while a job is queued")
	}

	titled := testutil.SeedResource(t, dbc.Ctx, h.tx, "t.org", "http://t.org", testutil.Ptr("Title"))
	if ok, err := h.engine.Queue.Enqueue(dbc, titled.ID, titled.URL); err != nil || ok {
		t.Fatalf("titled resource: ok=%v err=%v", ok, err)
	}
	if ok, err := h.engine.Queue.Enqueue(dbc, 9999, "http://gone.org"); err != nil || ok {
		t.Fatalf("missing resource: ok=%v err=%v", ok, err)
	}
	if got := h.countJobs(t, JobTypeGetMetadata); got != 1 {
		t.Fatalf("jobs: want=1 got=%d", got)
	}
}

func TestRegistryUpdateURL(t *testing.T) {
	h := newHarness(t)
	a := testutil.SeedResource(t, h.dbc.Ctx, h.tx, "a.org", "http://a.org", nil)
	b := testutil.SeedResource(t, h.dbc.Ctx, h.tx, "b.org", "http://b.org", testutil.Ptr("B"))

	if _, err := h.engine.Service.UpdateResourceURL(h.dbc, a.ID, "http://b.org"); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("collision: want ErrConflict got=%v", err)
	}
	if _, err := h.engine.Service.UpdateResourceURL(h.dbc, a.ID, "nonsense"); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("invalid: want ErrInvalidArgument got=%v", err)
	}
	if _, err := h.engine.Service.UpdateResourceURL(h.dbc, 12345, "http://c.org"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("missing: want ErrNotFound got=%v", err)
	}

	enqueued, err := h.engine.Service.UpdateResourceURL(h.dbc, a.ID, "HTTPS://New.Example.com/path")
	if err != nil {
		t.Fatalf("update url: %v", err)
	}
	if !enqueued {
		t.Fatalf("untitled resource should be re-enqueued")
	}
	got, err := h.engine.Service.GetResource(h.dbc, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Domain != "new.example.com" || got.URL != "https://new.example.com/path" {
		t.Fatalf("url update: got domain=%s url=%s", got.Domain, got.URL)
	}

	enqueued, err = h.engine.Service.UpdateResourceURL(h.dbc, b.ID, "http://b.org/moved")
	if err != nil || enqueued {
		t.Fatalf("titled resource: enqueued=%v err=%v", enqueued, err)
	}
}

func TestRegistryDeleteGuard(t *testing.T) {
	h := newHarness(t)
	r := testutil.SeedResource(t, h.dbc.Ctx, h.tx, "g.org", "http://g.org", nil)
	testutil.SeedAssociation(t, h.dbc.Ctx, h.tx, types.ParentGoal, 1, r.ID, types.FieldName)

	deleted, err := h.engine.Orphans.SweepResource(h.dbc, r.ID)
	if err != nil || deleted {
		t.Fatalf("referenced sweep: deleted=%v err=%v", deleted, err)
	}
	if _, err := h.set.Associations.DeleteByIDs(h.dbc, h.associationIDs(t, types.ParentGoal, 1)); err != nil {
		t.Fatalf("delete association: %v", err)
	}
	for i := 0; i < 2; i++ {
		deleted, err = h.engine.Orphans.SweepResource(h.dbc, r.ID)
		if err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
		if deleted != (i == 0) {
			t.Fatalf("sweep %d: deleted=%v", i, deleted)
		}
	}
	if _, err := h.engine.Service.GetResource(h.dbc, r.ID); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("after sweep: want ErrNotFound got=%v", err)
	}
}

func TestRegistryUpdateMetadata(t *testing.T) {
	h := newHarness(t)
	r := testutil.SeedResource(t, h.dbc.Ctx, h.tx, "m.org", "http://m.org", nil)
	fetched := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	if err := h.engine.Registry.UpdateMetadata(h.dbc, r.ID, MetadataUpdate{
		Title:      testutil.Ptr("Meta"),
		Metadata:   map[string]any{"og:title": "Meta"},
		StatusCode: 200,
		MimeType:   "text/html",
		FetchedAt:  fetched,
	}); err != nil {
		t.Fatalf("update metadata: %v", err)
	}
	got, err := h.engine.Registry.Get(h.dbc, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.HasTitle() || *got.Title != "Meta" || got.LastStatusCode == nil || *got.LastStatusCode != 200 {
		t.Fatalf("metadata: got=%+v", got)
	}
	if got.MetadataUpdatedAt == nil || !got.MetadataUpdatedAt.Equal(fetched) {
		t.Fatalf("metadata_updated_at: got=%v", got.MetadataUpdatedAt)
	}
}
