package services

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/observability"
	pkgerrors "github.com/yungbote/ttahub-resources-backend/internal/pkg/errors"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

// ParentResource is one resource as seen from a parent record.
// OnAR and OnApprovedAR are only set for parent types that carry flags.
type ParentResource struct {
	ResourceID     int64               `json:"resourceId"`
	URL            string              `json:"url"`
	Domain         string              `json:"domain"`
	Title          *string             `json:"title,omitempty"`
	SourceFields   []types.SourceField `json:"sourceFields"`
	IsAutoDetected bool                `json:"isAutoDetected"`
	OnAR           *bool               `json:"onAR,omitempty"`
	OnApprovedAR   *bool               `json:"onApprovedAR,omitempty"`
}

// ResourceService is the engine surface parent CRUD calls into. Every method
// runs inside the caller's transaction when dbc carries one.
type ResourceService interface {
	UpsertAndAssociate(dbc dbctx.Context, in ReconcileInput) (*ReconcileResult, error)
	DestroyParent(dbc dbctx.Context, parentType types.ParentType, parentID int64, opts DestroyOptions) (*DestroyResult, error)
	ResourcesFor(dbc dbctx.Context, parentType types.ParentType, parentID int64) ([]ParentResource, error)
	SyncReportStatus(dbc dbctx.Context, reportID int64) error
	GetResource(dbc dbctx.Context, id int64) (*types.Resource, error)
	UpdateResourceURL(dbc dbctx.Context, id int64, rawURL string) (bool, error)
}

type resourceService struct {
	log          *logger.Logger
	reconciler   ResourceReconciler
	registry     ResourceRegistry
	flags        FlagPropagator
	associations repos.AssociationRepo
}

func NewResourceService(
	baseLog *logger.Logger,
	reconciler ResourceReconciler,
	registry ResourceRegistry,
	flags FlagPropagator,
	associations repos.AssociationRepo,
) ResourceService {
	return &resourceService{
		log:          baseLog.With("service", "ResourceService"),
		reconciler:   reconciler,
		registry:     registry,
		flags:        flags,
		associations: associations,
	}
}

// Engine is the fully wired set of resource components.
type Engine struct {
	Queue      EnrichmentQueue
	Registry   ResourceRegistry
	Flags      FlagPropagator
	Orphans    OrphanCollector
	Reconciler ResourceReconciler
	Service    ResourceService
}

func NewEngine(baseLog *logger.Logger, set repos.Set, jobs JobService) *Engine {
	queue := NewEnrichmentQueue(baseLog, set.Resources, set.JobRuns, jobs)
	registry := NewResourceRegistry(baseLog, set.Resources, set.Associations, queue)
	flags := NewFlagPropagator(baseLog, set.Associations, set.Reports)
	orphans := NewOrphanCollector(baseLog, registry, set.Files, jobs)
	reconciler := NewResourceReconciler(baseLog, set.Associations, set.Files, registry, flags, orphans)
	return &Engine{
		Queue:      queue,
		Registry:   registry,
		Flags:      flags,
		Orphans:    orphans,
		Reconciler: reconciler,
		Service:    NewResourceService(baseLog, reconciler, registry, flags, set.Associations),
	}
}

func (s *resourceService) UpsertAndAssociate(dbc dbctx.Context, in ReconcileInput) (res *ReconcileResult, err error) {
	ctx, span := observability.StartSpan(dbc.Ctx, "resources.reconcile",
		attribute.String("parent.type", string(in.ParentType)),
		attribute.Int64("parent.id", in.ParentID),
	)
	defer func() { observability.EndSpan(span, err) }()
	dbc.Ctx = ctx

	res, err = s.reconciler.Reconcile(dbc, in)
	if err != nil {
		observability.Current().ObserveReconcile(string(in.ParentType), "error", 0, 0, 0)
		s.log.Warn("reconcile failed", "parent_type", in.ParentType, "parent_id", in.ParentID, "error", err)
		return nil, err
	}
	observability.Current().ObserveReconcile(string(in.ParentType), "ok", res.Created, res.Updated, res.Removed)
	span.SetAttributes(
		attribute.Int("reconcile.created", res.Created),
		attribute.Int("reconcile.updated", res.Updated),
		attribute.Int("reconcile.removed", res.Removed),
	)
	s.log.Debug("reconciled",
		"parent_type", in.ParentType,
		"parent_id", in.ParentID,
		"created", res.Created,
		"updated", res.Updated,
		"removed", res.Removed,
	)
	return res, nil
}

func (s *resourceService) DestroyParent(dbc dbctx.Context, parentType types.ParentType, parentID int64, opts DestroyOptions) (res *DestroyResult, err error) {
	ctx, span := observability.StartSpan(dbc.Ctx, "resources.destroy_parent",
		attribute.String("parent.type", string(parentType)),
		attribute.Int64("parent.id", parentID),
	)
	defer func() { observability.EndSpan(span, err) }()
	dbc.Ctx = ctx

	res, err = s.reconciler.Destroy(dbc, parentType, parentID, opts)
	if err != nil {
		return nil, err
	}
	observability.Current().ObserveReconcile(string(parentType), "destroy", 0, 0, res.Removed)
	return res, nil
}

func (s *resourceService) ResourcesFor(dbc dbctx.Context, parentType types.ParentType, parentID int64) ([]ParentResource, error) {
	spec, ok := types.LookupParent(parentType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown parent type %q", pkgerrors.ErrInvalidArgument, parentType)
	}
	rows, err := s.associations.ListByParent(dbc, parentType, parentID)
	if err != nil {
		return nil, err
	}
	out := make([]ParentResource, 0, len(rows))
	for _, a := range rows {
		if a.Resource == nil {
			continue
		}
		fields := a.Fields()
		pr := ParentResource{
			ResourceID:     a.ResourceID,
			URL:            a.Resource.URL,
			Domain:         a.Resource.Domain,
			Title:          a.Resource.Title,
			SourceFields:   []types.SourceField(fields),
			IsAutoDetected: fields.AutoDetected(),
		}
		if spec.CarriesFlags {
			onAR, onApproved := a.OnAR, a.OnApprovedAR
			pr.OnAR = &onAR
			pr.OnApprovedAR = &onApproved
		}
		out = append(out, pr)
	}
	return out, nil
}

func (s *resourceService) SyncReportStatus(dbc dbctx.Context, reportID int64) (err error) {
	ctx, span := observability.StartSpan(dbc.Ctx, "resources.sync_report_status",
		attribute.Int64("report.id", reportID),
	)
	defer func() { observability.EndSpan(span, err) }()
	dbc.Ctx = ctx
	return s.flags.SyncReportStatus(dbc, reportID)
}

func (s *resourceService) GetResource(dbc dbctx.Context, id int64) (*types.Resource, error) {
	return s.registry.Get(dbc, id)
}

func (s *resourceService) UpdateResourceURL(dbc dbctx.Context, id int64, rawURL string) (bool, error) {
	return s.registry.UpdateURL(dbc, id, rawURL)
}
