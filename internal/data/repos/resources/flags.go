package resources

import (
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
)

// flagRoute ties a flag-bearing parent type to the report-level associations
// that drive it and the join table linking the two.
type flagRoute struct {
	reportLevel types.ParentType
	joinTable   string
	targetCol   string
}

var flagRoutes = map[types.ParentType]flagRoute{
	types.ParentGoal:      {reportLevel: types.ParentReportGoal, joinTable: "activity_report_goal", targetCol: "goal_id"},
	types.ParentObjective: {reportLevel: types.ParentReportObjective, joinTable: "activity_report_objective", targetCol: "objective_id"},
}

var errNoFlagRoute = errors.New("parent type does not carry flags")

func routeFor(target types.ParentType) (flagRoute, error) {
	route, ok := flagRoutes[target]
	if !ok {
		return flagRoute{}, fmt.Errorf("%w: %s", errNoFlagRoute, target)
	}
	return route, nil
}

// RecomputeFilter scopes a flag recompute. ParentIDs and ResourceIDs are
// target-side (goal/objective) ids; ExcludeIDs are report-level association
// ids treated as already gone.
type RecomputeFilter struct {
	Target      types.ParentType
	ParentIDs   []int64
	ResourceIDs []int64
	ExcludeIDs  []int64
}

// ReportLink is where a report-level parent row points.
type ReportLink struct {
	TargetID int64
	ReportID int64
	Approved bool
}

type FlagRepo interface {
	ResolveReportLink(dbc dbctx.Context, reportLevel types.ParentType, parentID int64) (*ReportLink, error)
	TargetIDsForReportLevel(dbc dbctx.Context, reportLevel types.ParentType, parentIDs []int64) ([]int64, error)
	TargetIDsForReport(dbc dbctx.Context, target types.ParentType, reportID int64) ([]int64, error)
	Activate(dbc dbctx.Context, target types.ParentType, targetID, resourceID int64, approved bool) (int64, error)
	Recompute(dbc dbctx.Context, f RecomputeFilter) (int64, error)
}

func (r *associationRepo) ResolveReportLink(dbc dbctx.Context, reportLevel types.ParentType, parentID int64) (*ReportLink, error) {
	spec, ok := types.LookupParent(reportLevel)
	if !ok || !spec.ReportLevel || spec.FlagTarget == "" {
		return nil, nil
	}
	route, err := routeFor(spec.FlagTarget)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		TargetID         int64
		ReportID         int64
		CalculatedStatus string
	}
	err = dbc.DB(r.db).Raw(fmt.Sprintf(`
		SELECT j.%s AS target_id, j.activity_report_id AS report_id, ar.calculated_status AS calculated_status
		FROM %s j
		JOIN activity_report ar ON ar.id = j.activity_report_id
		WHERE j.id = ?
	`, route.targetCol, route.joinTable), parentID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &ReportLink{
		TargetID: rows[0].TargetID,
		ReportID: rows[0].ReportID,
		Approved: rows[0].CalculatedStatus == types.ReportStatusApproved,
	}, nil
}

func (r *associationRepo) TargetIDsForReportLevel(dbc dbctx.Context, reportLevel types.ParentType, parentIDs []int64) ([]int64, error) {
	spec, ok := types.LookupParent(reportLevel)
	if !ok || spec.FlagTarget == "" || len(parentIDs) == 0 {
		return nil, nil
	}
	route, err := routeFor(spec.FlagTarget)
	if err != nil {
		return nil, err
	}
	var out []int64
	err = dbc.DB(r.db).
		Table(route.joinTable).
		Where("id IN ?", parentIDs).
		Distinct().
		Pluck(route.targetCol, &out).Error
	return out, err
}

func (r *associationRepo) TargetIDsForReport(dbc dbctx.Context, target types.ParentType, reportID int64) ([]int64, error) {
	route, err := routeFor(target)
	if err != nil {
		return nil, err
	}
	var out []int64
	err = dbc.DB(r.db).
		Table(route.joinTable).
		Where("activity_report_id = ?", reportID).
		Distinct().
		Pluck(route.targetCol, &out).Error
	return out, err
}

// Activate sets onAR (and onApprovedAR when approved) on the target
// association. Flags only move towards true here.
func (r *associationRepo) Activate(dbc dbctx.Context, target types.ParentType, targetID, resourceID int64, approved bool) (int64, error) {
	if _, err := routeFor(target); err != nil {
		return 0, err
	}
	updates := map[string]interface{}{"on_ar": true}
	if approved {
		updates["on_approved_ar"] = true
	}
	res := dbc.DB(r.db).
		Model(&types.ResourceAssociation{}).
		Where("parent_type = ? AND parent_id = ? AND resource_id = ?", target, targetID, resourceID).
		UpdateColumns(updates)
	return res.RowsAffected, res.Error
}

// Recompute rewrites both flags on the matching target associations from the
// report-level rows that remain once ExcludeIDs are discounted.
func (r *associationRepo) Recompute(dbc dbctx.Context, f RecomputeFilter) (int64, error) {
	route, err := routeFor(f.Target)
	if err != nil {
		return 0, err
	}
	if len(f.ParentIDs) == 0 && len(f.ResourceIDs) == 0 {
		return 0, nil
	}
	exclude := f.ExcludeIDs
	if len(exclude) == 0 {
		// NOT IN over an empty list renders as NOT IN (NULL), which never matches.
		exclude = []int64{0}
	}

	base := fmt.Sprintf(`
		SELECT 1
		FROM resource_association rl
		JOIN %[1]s j ON j.id = rl.parent_id
		%%s
		WHERE rl.parent_type = ?
		  AND rl.resource_id = resource_association.resource_id
		  AND j.%[2]s = resource_association.parent_id
		  AND rl.id NOT IN ?
		  %%s
	`, route.joinTable, route.targetCol)
	onAR := "EXISTS (" + fmt.Sprintf(base, "", "") + ")"
	onApproved := "EXISTS (" + fmt.Sprintf(base,
		"JOIN activity_report ar ON ar.id = j.activity_report_id",
		"AND ar.calculated_status = ?") + ")"

	q := dbc.DB(r.db).
		Model(&types.ResourceAssociation{}).
		Where("parent_type = ?", f.Target)
	if len(f.ParentIDs) > 0 {
		q = q.Where("parent_id IN ?", f.ParentIDs)
	}
	if len(f.ResourceIDs) > 0 {
		q = q.Where("resource_id IN ?", f.ResourceIDs)
	}
	res := q.UpdateColumns(map[string]interface{}{
		"on_ar":          gorm.Expr(onAR, route.reportLevel, exclude),
		"on_approved_ar": gorm.Expr(onApproved, route.reportLevel, exclude, types.ReportStatusApproved),
	})
	return res.RowsAffected, res.Error
}

func newFieldColumn(fields types.SourceFields) datatypes.JSONSlice[types.SourceField] {
	return datatypes.JSONSlice[types.SourceField](fields.Normalized())
}
