package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	"github.com/yungbote/ttahub-resources-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
)

// newBackfill runs without an outer transaction: the backfill commits per batch.
func newBackfill(t *testing.T) (*gorm.DB, ResourceBackfill, *recordingWaker) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	waker := &recordingWaker{}
	jobs := NewJobService(log, set.JobRuns, waker, 3)
	return db, NewResourceBackfill(db, log, set, NewEngine(log, set, jobs), jobs), waker
}

func TestEnqueueUntitled(t *testing.T) {
	db, b, waker := newBackfill(t)
	ctx := context.Background()

	for _, u := range []string{"http://a.org/1", "http://a.org/2", "http://b.org/3"} {
		testutil.SeedResource(t, ctx, db, "x.org", u, nil)
	}
	testutil.SeedResource(t, ctx, db, "x.org", "http://titled.org", testutil.Ptr("Has title"))
	pdf := testutil.SeedResource(t, ctx, db, "x.org", "http://files.org/a.pdf", nil)
	if err := db.Model(&types.Resource{}).Where("id = ?", pdf.ID).Update("mime_type", "application/pdf").Error; err != nil {
		t.Fatalf("set mime: %v", err)
	}

	opts := MetadataBackfillOptions{BatchSize: 2, SkipMimeTypes: []string{"application/pdf"}, SkipStatusCodes: []int{401}}
	res, err := b.EnqueueUntitled(ctx, opts)
	if err != nil {
		t.Fatalf("EnqueueUntitled: %v", err)
	}
	if res.Scanned != 3 || res.Enqueued != 3 {
		t.Fatalf("first pass: want scanned=3 enqueued=3 got=%+v", res)
	}
	if len(waker.woken) != 1 || waker.woken[0] != JobTypeGetMetadata {
		t.Fatalf("wake: got=%v", waker.woken)
	}

	res, err = b.EnqueueUntitled(ctx, opts)
	if err != nil || res.Enqueued != 0 {
		t.Fatalf("second pass should find pending jobs: res=%+v err=%v", res, err)
	}

	res, err = b.EnqueueUntitled(ctx, MetadataBackfillOptions{Limit: 1, DryRun: true})
	if err != nil || res.Scanned != 1 || res.Enqueued != 0 {
		t.Fatalf("dry run: res=%+v err=%v", res, err)
	}
}

func TestRecomputeReportFlags(t *testing.T) {
	db, b, _ := newBackfill(t)
	ctx := context.Background()
	const goalID = 21

	report := testutil.SeedReport(t, ctx, db, types.ReportStatusApproved)
	rg := testutil.SeedReportGoal(t, ctx, db, report.ID, goalID)
	res := testutil.SeedResource(t, ctx, db, "x.org", "http://x.org/guide", nil)
	goalRow := testutil.SeedAssociation(t, ctx, db, types.ParentGoal, goalID, res.ID, types.FieldName)
	testutil.SeedAssociation(t, ctx, db, types.ParentReportGoal, rg.ID, res.ID, types.FieldName)

	n, err := b.RecomputeReportFlags(ctx, FlagBackfillOptions{BatchSize: 1, Parallel: 2})
	if err != nil || n != 1 {
		t.Fatalf("RecomputeReportFlags: n=%d err=%v", n, err)
	}
	var got types.ResourceAssociation
	if err := db.First(&got, goalRow.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.OnAR || !got.OnApprovedAR {
		t.Fatalf("flags: want both set got onAR=%v onApprovedAR=%v", got.OnAR, got.OnApprovedAR)
	}

	if _, err := b.RecomputeReportFlags(ctx, FlagBackfillOptions{ReportIDs: []int64{report.ID + 100}}); err == nil {
		t.Fatalf("expected error for unknown report id")
	}
}
