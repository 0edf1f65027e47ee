package services

import (
	"fmt"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/observability"
	pkgerrors "github.com/yungbote/ttahub-resources-backend/internal/pkg/errors"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

// RecomputeInput describes report-level associations about to disappear.
// TargetIDs is the caller's batch hint (goal or objective ids); without it the
// targets are looked up from ParentID.
type RecomputeInput struct {
	ParentType  types.ParentType
	ParentID    int64
	TargetIDs   []int64
	ResourceIDs []int64
	ExcludeIDs  []int64
}

type FlagPropagator interface {
	// Activate runs when a report-level association is created.
	Activate(dbc dbctx.Context, assoc *types.ResourceAssociation) error
	// InitTarget seeds a new goal/objective association from existing report-level rows.
	InitTarget(dbc dbctx.Context, assoc *types.ResourceAssociation) error
	// Recompute runs when report-level associations are destroyed.
	Recompute(dbc dbctx.Context, in RecomputeInput) error
	SyncReportStatus(dbc dbctx.Context, reportID int64) error
}

type flagPropagator struct {
	log     *logger.Logger
	flags   repos.FlagRepo
	reports repos.ActivityReportRepo
}

func NewFlagPropagator(baseLog *logger.Logger, flags repos.FlagRepo, reports repos.ActivityReportRepo) FlagPropagator {
	return &flagPropagator{
		log:     baseLog.With("service", "FlagPropagator"),
		flags:   flags,
		reports: reports,
	}
}

func (p *flagPropagator) Activate(dbc dbctx.Context, assoc *types.ResourceAssociation) error {
	if assoc == nil {
		return nil
	}
	spec, ok := types.LookupParent(assoc.ParentType)
	if !ok || !spec.ReportLevel || spec.FlagTarget == "" {
		return nil
	}
	link, err := p.flags.ResolveReportLink(dbc, assoc.ParentType, assoc.ParentID)
	if err != nil {
		return fmt.Errorf("resolve report link: %w", err)
	}
	if link == nil {
		p.log.Debug("report-level parent not linked to a report", "parent_type", assoc.ParentType, "parent_id", assoc.ParentID)
		return nil
	}
	n, err := p.flags.Activate(dbc, spec.FlagTarget, link.TargetID, assoc.ResourceID, link.Approved)
	if err != nil {
		return fmt.Errorf("activate flags: %w", err)
	}
	observability.Current().IncFlagUpdate(string(spec.FlagTarget), "activate", n)
	return nil
}

func (p *flagPropagator) InitTarget(dbc dbctx.Context, assoc *types.ResourceAssociation) error {
	if assoc == nil {
		return nil
	}
	spec, ok := types.LookupParent(assoc.ParentType)
	if !ok || !spec.CarriesFlags {
		return nil
	}
	n, err := p.flags.Recompute(dbc, repos.RecomputeFilter{
		Target:      assoc.ParentType,
		ParentIDs:   []int64{assoc.ParentID},
		ResourceIDs: []int64{assoc.ResourceID},
	})
	if err != nil {
		return fmt.Errorf("init flags: %w", err)
	}
	observability.Current().IncFlagUpdate(string(assoc.ParentType), "init", n)
	return nil
}

func (p *flagPropagator) Recompute(dbc dbctx.Context, in RecomputeInput) error {
	spec, ok := types.LookupParent(in.ParentType)
	if !ok || !spec.ReportLevel || spec.FlagTarget == "" {
		return nil
	}
	targets := in.TargetIDs
	if len(targets) == 0 && in.ParentID > 0 {
		ids, err := p.flags.TargetIDsForReportLevel(dbc, in.ParentType, []int64{in.ParentID})
		if err != nil {
			return fmt.Errorf("resolve flag targets: %w", err)
		}
		targets = ids
	}
	if len(targets) == 0 {
		p.log.Debug("no flag targets to recompute", "parent_type", in.ParentType, "parent_id", in.ParentID)
		return nil
	}
	n, err := p.flags.Recompute(dbc, repos.RecomputeFilter{
		Target:      spec.FlagTarget,
		ParentIDs:   targets,
		ResourceIDs: in.ResourceIDs,
		ExcludeIDs:  in.ExcludeIDs,
	})
	if err != nil {
		return fmt.Errorf("recompute flags: %w", err)
	}
	observability.Current().IncFlagUpdate(string(spec.FlagTarget), "recompute", n)
	return nil
}

func (p *flagPropagator) SyncReportStatus(dbc dbctx.Context, reportID int64) error {
	report, err := p.reports.GetByID(dbc, reportID)
	if err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("%w: activity report %d", pkgerrors.ErrNotFound, reportID)
	}
	for _, target := range []types.ParentType{types.ParentGoal, types.ParentObjective} {
		ids, err := p.flags.TargetIDsForReport(dbc, target, reportID)
		if err != nil {
			return fmt.Errorf("list %s ids: %w", target, err)
		}
		if len(ids) == 0 {
			continue
		}
		n, err := p.flags.Recompute(dbc, repos.RecomputeFilter{Target: target, ParentIDs: ids})
		if err != nil {
			return fmt.Errorf("recompute %s flags: %w", target, err)
		}
		observability.Current().IncFlagUpdate(string(target), "status_sync", n)
	}
	p.log.Debug("report status synced", "report_id", reportID, "status", report.CalculatedStatus)
	return nil
}
