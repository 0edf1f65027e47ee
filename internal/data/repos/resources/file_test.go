package resources

import (
	"context"
	"testing"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
)

func TestFileRepoSweep(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewFileRepo(db, testutil.Logger(t))

	shared := testutil.SeedFile(t, ctx, db, "uploads/shared.pdf")
	a := testutil.SeedFileAssociation(t, ctx, db, types.ParentReport, 1, shared.ID)
	testutil.SeedFileAssociation(t, ctx, db, types.ParentObjective, 9, shared.ID)

	if n, err := repo.DeleteAssociationsByIDs(dbc, []int64{a.ID}); err != nil || n != 1 {
		t.Fatalf("DeleteAssociationsByIDs: n=%d err=%v", n, err)
	}
	if deleted, err := repo.DeleteIfUnreferenced(dbc, shared.ID); err != nil || deleted {
		t.Fatalf("still referenced: deleted=%v err=%v", deleted, err)
	}
	rest, err := repo.ListAssociationsByParent(dbc, types.ParentObjective, 9)
	if err != nil || len(rest) != 1 {
		t.Fatalf("ListAssociationsByParent: len=%d err=%v", len(rest), err)
	}
	if _, err := repo.DeleteAssociationsByIDs(dbc, []int64{rest[0].ID}); err != nil {
		t.Fatalf("DeleteAssociationsByIDs: %v", err)
	}
	if deleted, err := repo.DeleteIfUnreferenced(dbc, shared.ID); err != nil || !deleted {
		t.Fatalf("orphan: deleted=%v err=%v", deleted, err)
	}
	if f, err := repo.GetByID(dbc, shared.ID); err != nil || f != nil {
		t.Fatalf("GetByID after sweep: f=%v err=%v", f, err)
	}
}
