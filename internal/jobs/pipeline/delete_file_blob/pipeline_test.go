package delete_file_blob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	"github.com/yungbote/ttahub-resources-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	jobrt "github.com/yungbote/ttahub-resources-backend/internal/jobs/runtime"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/services"
)

type fakeBlobs struct {
	deleted []string
	err     error
}

func (f *fakeBlobs) DeleteObject(ctx context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobs) Exists(ctx context.Context, key string) (bool, error) { return false, nil }
func (f *fakeBlobs) Close() error                                        { return nil }

func sweepAndClaim(t *testing.T) (repos.Set, *jobrt.Context) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	engine := services.NewEngine(log, set, services.NewJobService(log, set.JobRuns, nil, 1))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	file := testutil.SeedFile(t, ctx, db, "uploads/report.pdf")
	deleted, err := engine.Orphans.SweepFile(dbc, file.ID)
	if err != nil || !deleted {
		t.Fatalf("sweep: deleted=%v err=%v", deleted, err)
	}
	job, err := set.JobRuns.ClaimNextRunnable(dbc, time.Hour)
	if err != nil || job == nil || job.JobType != services.JobTypeDeleteFileBlob {
		t.Fatalf("claim: job=%+v err=%v", job, err)
	}
	return set, jobrt.NewContext(ctx, nil, job, set.JobRuns, set.JobEvents, time.Millisecond)
}

func TestDeleteFileBlob(t *testing.T) {
	_, jc := sweepAndClaim(t)
	blobs := &fakeBlobs{}
	if err := New(testutil.Logger(t), blobs).Run(jc); err != nil {
		t.Fatalf("run: %v", err)
	}
	if jc.Job.Status != types.JobStatusSucceeded {
		t.Fatalf("status: want=succeeded got=%s", jc.Job.Status)
	}
	if len(blobs.deleted) != 1 || blobs.deleted[0] != "uploads/report.pdf" {
		t.Fatalf("deleted: got=%v", blobs.deleted)
	}
}

func TestDeleteFileBlobFailure(t *testing.T) {
	_, jc := sweepAndClaim(t)
	blobs := &fakeBlobs{err: errors.New("bucket unavailable")}
	_ = New(testutil.Logger(t), blobs).Run(jc)
	if jc.Job.Status != types.JobStatusDead {
		t.Fatalf("status: want=dead got=%s", jc.Job.Status)
	}
	if jc.Job.Error == "" {
		t.Fatalf("expected error recorded on job")
	}
}
