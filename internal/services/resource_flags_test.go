package services

import (
	"errors"
	"testing"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	pkgerrors "github.com/yungbote/ttahub-resources-backend/internal/pkg/errors"
)

func (h *harness) flagsOf(t *testing.T, pt types.ParentType, parentID int64, url string) (bool, bool) {
	t.Helper()
	prs, err := h.engine.Service.ResourcesFor(h.dbc, pt, parentID)
	if err != nil {
		t.Fatalf("resources for %s/%d: %v", pt, parentID, err)
	}
	for _, pr := range prs {
		if pr.URL == url {
			if pr.OnAR == nil || pr.OnApprovedAR == nil {
				t.Fatalf("%s should expose flags", pt)
			}
			return *pr.OnAR, *pr.OnApprovedAR
		}
	}
	t.Fatalf("%s/%d has no resource %s", pt, parentID, url)
	return false, false
}

func assertFlags(t *testing.T, step string, gotAR, gotApproved, wantAR, wantApproved bool) {
	t.Helper()
	if gotAR != wantAR || gotApproved != wantApproved {
		t.Fatalf("%s: want onAR=%v onApprovedAR=%v got onAR=%v onApprovedAR=%v", step, wantAR, wantApproved, gotAR, gotApproved)
	}
}

func TestFlagLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := h.dbc.Ctx
	const goalID = 10
	const link = "http://x.org/guide"

	draft := testutil.SeedReport(t, ctx, h.tx, types.ReportStatusDraft)
	approved := testutil.SeedReport(t, ctx, h.tx, types.ReportStatusApproved)
	rg1 := testutil.SeedReportGoal(t, ctx, h.tx, draft.ID, goalID)
	rg2 := testutil.SeedReportGoal(t, ctx, h.tx, approved.ID, goalID)

	h.reconcile(t, ReconcileInput{ParentType: types.ParentGoal, ParentID: goalID,
		Fields: map[types.SourceField]string{types.FieldName: link}})
	ar, ok := h.flagsOf(t, types.ParentGoal, goalID, link)
	assertFlags(t, "goal only", ar, ok, false, false)

	h.reconcile(t, ReconcileInput{ParentType: types.ParentReportGoal, ParentID: rg1.ID,
		Fields: map[types.SourceField]string{types.FieldName: link}})
	ar, ok = h.flagsOf(t, types.ParentGoal, goalID, link)
	assertFlags(t, "draft report goal", ar, ok, true, false)

	if err := h.tx.Model(&types.ActivityReport{}).Where("id = ?", draft.ID).
		Update("calculated_status", types.ReportStatusApproved).Error; err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := h.engine.Service.SyncReportStatus(h.dbc, draft.ID); err != nil {
		t.Fatalf("sync status: %v", err)
	}
	ar, ok = h.flagsOf(t, types.ParentGoal, goalID, link)
	assertFlags(t, "after approval", ar, ok, true, true)

	if err := h.tx.Model(&types.ActivityReport{}).Where("id = ?", draft.ID).
		Update("calculated_status", types.ReportStatusSubmitted).Error; err != nil {
		t.Fatalf("unapprove: %v", err)
	}
	if err := h.engine.Service.SyncReportStatus(h.dbc, draft.ID); err != nil {
		t.Fatalf("sync status: %v", err)
	}
	ar, ok = h.flagsOf(t, types.ParentGoal, goalID, link)
	assertFlags(t, "after un-approval", ar, ok, true, false)

	h.reconcile(t, ReconcileInput{ParentType: types.ParentReportGoal, ParentID: rg2.ID,
		Fields: map[types.SourceField]string{types.FieldTimeframe: link}})
	ar, ok = h.flagsOf(t, types.ParentGoal, goalID, link)
	assertFlags(t, "approved report goal", ar, ok, true, true)

	// Dropping the link from one report goal leaves the other one holding both flags.
	res := h.reconcile(t, ReconcileInput{ParentType: types.ParentReportGoal, ParentID: rg1.ID,
		Fields: map[types.SourceField]string{types.FieldName: "removed"}})
	if res.Removed != 1 {
		t.Fatalf("removed: want=1 got=%+v", res)
	}
	ar, ok = h.flagsOf(t, types.ParentGoal, goalID, link)
	assertFlags(t, "one report goal left", ar, ok, true, true)

	// Bulk destroy after the join row is gone relies on the hint.
	if err := h.tx.Delete(&types.ActivityReportGoal{}, rg2.ID).Error; err != nil {
		t.Fatalf("delete join row: %v", err)
	}
	if _, err := h.engine.Service.DestroyParent(h.dbc, types.ParentReportGoal, rg2.ID, DestroyOptions{AffectedParentIDs: []int64{goalID}}); err != nil {
		t.Fatalf("destroy report goal: %v", err)
	}
	ar, ok = h.flagsOf(t, types.ParentGoal, goalID, link)
	assertFlags(t, "no report goals", ar, ok, false, false)

	// The goal keeps its link and the resource survives.
	if got := h.countResources(t); got != 1 {
		t.Fatalf("resources: want=1 got=%d", got)
	}
}

func TestFlagInitFromExistingReportRows(t *testing.T) {
	h := newHarness(t)
	ctx := h.dbc.Ctx
	const objectiveID = 20
	const link = "https://y.org/tool"

	report := testutil.SeedReport(t, ctx, h.tx, types.ReportStatusApproved)
	ro := testutil.SeedReportObjective(t, ctx, h.tx, report.ID, objectiveID)

	h.reconcile(t, ReconcileInput{ParentType: types.ParentReportObjective, ParentID: ro.ID,
		Fields: map[types.SourceField]string{types.FieldTTAProvided: "used " + link}})
	h.reconcile(t, ReconcileInput{ParentType: types.ParentObjective, ParentID: objectiveID,
		Fields: map[types.SourceField]string{types.FieldTitle: link}})

	ar, ok := h.flagsOf(t, types.ParentObjective, objectiveID, link)
	assertFlags(t, "initialised objective", ar, ok, true, true)

	prs, err := h.engine.Service.ResourcesFor(h.dbc, types.ParentReportObjective, ro.ID)
	if err != nil {
		t.Fatalf("resources for report objective: %v", err)
	}
	if len(prs) != 1 || prs[0].OnAR != nil || !prs[0].IsAutoDetected {
		t.Fatalf("report objective view: got=%+v", prs)
	}
}

func TestActivateDanglingReportLevelParent(t *testing.T) {
	h := newHarness(t)
	// No activity_report_goal row 77: creation succeeds without touching flags.
	res := h.reconcile(t, ReconcileInput{ParentType: types.ParentReportGoal, ParentID: 77,
		Fields: map[types.SourceField]string{types.FieldName: "http://z.org"}})
	if res.Created != 1 {
		t.Fatalf("created: want=1 got=%+v", res)
	}
}

func TestSyncReportStatusMissing(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.Service.SyncReportStatus(h.dbc, 404); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("want ErrNotFound got=%v", err)
	}
}
