package services

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	pkgerrors "github.com/yungbote/ttahub-resources-backend/internal/pkg/errors"
	"github.com/yungbote/ttahub-resources-backend/internal/pkg/urlextract"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

// ReconcileInput is the current text of one parent record.
//
// Resources holds the explicit, user-entered links. nil means "not part of this
// save" and keeps the existing explicit links; an empty slice clears them.
type ReconcileInput struct {
	ParentType types.ParentType
	ParentID   int64
	Fields     map[types.SourceField]string
	Resources  []string
	SeenAt     time.Time
}

type ReconcileResult struct {
	Created  int
	Updated  int
	Removed  int
	Enqueued int
}

type DestroyOptions struct {
	// AffectedParentIDs are goal/objective ids whose flags a bulk destroy of
	// report-level rows can touch, for when the join rows are already gone.
	AffectedParentIDs []int64
}

type DestroyResult struct {
	Removed        int
	FilesRemoved   int
	ResourcesSwept int
	FilesSwept     int
	Enqueued       int
}

type ResourceReconciler interface {
	Reconcile(dbc dbctx.Context, in ReconcileInput) (*ReconcileResult, error)
	Destroy(dbc dbctx.Context, parentType types.ParentType, parentID int64, opts DestroyOptions) (*DestroyResult, error)
}

type resourceReconciler struct {
	log          *logger.Logger
	associations repos.AssociationRepo
	files        repos.FileRepo
	registry     ResourceRegistry
	flags        FlagPropagator
	orphans      OrphanCollector
}

func NewResourceReconciler(
	baseLog *logger.Logger,
	associations repos.AssociationRepo,
	files repos.FileRepo,
	registry ResourceRegistry,
	flags FlagPropagator,
	orphans OrphanCollector,
) ResourceReconciler {
	return &resourceReconciler{
		log:          baseLog.With("service", "ResourceReconciler"),
		associations: associations,
		files:        files,
		registry:     registry,
		flags:        flags,
		orphans:      orphans,
	}
}

type linkKey struct {
	domain string
	url    string
}

// desiredLinks keeps links in first-seen order with their provenance.
type desiredLinks struct {
	order  []linkKey
	fields map[linkKey][]types.SourceField
}

func (d *desiredLinks) add(m urlextract.Match, f types.SourceField) {
	k := linkKey{domain: m.Domain, url: m.URL}
	if _, ok := d.fields[k]; !ok {
		d.order = append(d.order, k)
	}
	d.fields[k] = append(d.fields[k], f)
}

func (r *resourceReconciler) Reconcile(dbc dbctx.Context, in ReconcileInput) (*ReconcileResult, error) {
	spec, err := validateInput(in)
	if err != nil {
		return nil, err
	}
	seenAt := in.SeenAt
	if seenAt.IsZero() {
		seenAt = time.Now()
	}
	seenAt = seenAt.UTC()

	existing, err := r.associations.ListByParent(dbc, in.ParentType, in.ParentID)
	if err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}
	existingByKey := make(map[linkKey]*types.ResourceAssociation, len(existing))
	for _, a := range existing {
		if a.Resource == nil {
			continue
		}
		existingByKey[linkKey{domain: a.Resource.Domain, url: a.Resource.URL}] = a
	}

	want := &desiredLinks{fields: map[linkKey][]types.SourceField{}}
	for _, f := range spec.Fields {
		if f == types.FieldResource {
			continue
		}
		for _, m := range urlextract.Extract(in.Fields[f]) {
			want.add(m, f)
		}
	}
	if in.Resources != nil {
		for _, raw := range in.Resources {
			for _, m := range urlextract.Extract(raw) {
				want.add(m, types.FieldResource)
			}
		}
	} else {
		for _, a := range existing {
			if a.Resource != nil && a.Fields().Has(types.FieldResource) {
				want.add(urlextract.Match{Domain: a.Resource.Domain, URL: a.Resource.URL}, types.FieldResource)
			}
		}
	}

	out := &ReconcileResult{}
	for _, k := range want.order {
		fields := types.NewSourceFields(want.fields[k]...).Normalized()
		current := existingByKey[k]
		if current != nil && current.Fields().Equal(fields) {
			continue
		}
		up, err := r.registry.Upsert(dbc, k.domain, k.url, seenAt)
		if err != nil {
			return nil, fmt.Errorf("upsert resource: %w", err)
		}
		if up.Enqueued {
			out.Enqueued++
		}
		if current != nil {
			if err := r.associations.UpdateSourceFields(dbc, current.ID, fields, seenAt); err != nil {
				return nil, fmt.Errorf("update association: %w", err)
			}
			out.Updated++
			continue
		}
		created, err := r.associations.Create(dbc, []*types.ResourceAssociation{{
			ParentType:   in.ParentType,
			ParentID:     in.ParentID,
			ResourceID:   up.ID,
			SourceFields: datatypes.JSONSlice[types.SourceField](fields),
		}})
		if err != nil {
			return nil, fmt.Errorf("create association: %w", err)
		}
		assoc := created[0]
		if spec.ReportLevel {
			if err := r.flags.Activate(dbc, assoc); err != nil {
				return nil, err
			}
		}
		if spec.CarriesFlags {
			if err := r.flags.InitTarget(dbc, assoc); err != nil {
				return nil, err
			}
		}
		out.Created++
	}

	var stale []*types.ResourceAssociation
	for _, a := range existing {
		if a.Resource == nil {
			stale = append(stale, a)
			continue
		}
		if _, keep := want.fields[linkKey{domain: a.Resource.Domain, url: a.Resource.URL}]; !keep {
			stale = append(stale, a)
		}
	}
	removed, err := r.destroyAssociations(dbc, in.ParentType, in.ParentID, stale, nil)
	if err != nil {
		return nil, err
	}
	out.Removed = removed
	return out, nil
}

// destroyAssociations deletes rows, then recomputes flags and sweeps orphans.
// Order matters: the sweep only succeeds once the rows are gone.
func (r *resourceReconciler) destroyAssociations(dbc dbctx.Context, parentType types.ParentType, parentID int64, rows []*types.ResourceAssociation, targetHint []int64) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ids := make([]int64, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.ID)
	}
	resourceIDs := uniqueResourceIDs(rows)
	n, err := r.associations.DeleteByIDs(dbc, ids)
	if err != nil {
		return 0, fmt.Errorf("delete associations: %w", err)
	}
	if err := r.flags.Recompute(dbc, RecomputeInput{
		ParentType:  parentType,
		ParentID:    parentID,
		TargetIDs:   targetHint,
		ResourceIDs: resourceIDs,
		ExcludeIDs:  ids,
	}); err != nil {
		return 0, err
	}
	for _, id := range resourceIDs {
		if _, err := r.orphans.SweepResource(dbc, id); err != nil {
			return 0, fmt.Errorf("sweep resource %d: %w", id, err)
		}
	}
	return int(n), nil
}

func (r *resourceReconciler) Destroy(dbc dbctx.Context, parentType types.ParentType, parentID int64, opts DestroyOptions) (*DestroyResult, error) {
	_, ownsResources := types.LookupParent(parentType)
	ownsFiles := types.IsFileParent(parentType)
	if !ownsResources && !ownsFiles {
		return nil, fmt.Errorf("%w: unknown parent type %q", pkgerrors.ErrInvalidArgument, parentType)
	}
	if parentID <= 0 {
		return nil, fmt.Errorf("%w: parent id must be positive", pkgerrors.ErrInvalidArgument)
	}
	out := &DestroyResult{}

	if ownsResources {
		rows, err := r.associations.ListByParent(dbc, parentType, parentID)
		if err != nil {
			return nil, fmt.Errorf("list associations: %w", err)
		}
		removed, err := r.destroyAssociations(dbc, parentType, parentID, rows, opts.AffectedParentIDs)
		if err != nil {
			return nil, err
		}
		out.Removed = removed
		out.ResourcesSwept = len(uniqueResourceIDs(rows))
	}

	if ownsFiles {
		fas, err := r.files.ListAssociationsByParent(dbc, parentType, parentID)
		if err != nil {
			return nil, fmt.Errorf("list file associations: %w", err)
		}
		if len(fas) > 0 {
			ids := make([]int64, 0, len(fas))
			fileIDs := make([]int64, 0, len(fas))
			seen := map[int64]struct{}{}
			for _, fa := range fas {
				ids = append(ids, fa.ID)
				if _, ok := seen[fa.FileID]; !ok {
					seen[fa.FileID] = struct{}{}
					fileIDs = append(fileIDs, fa.FileID)
				}
			}
			n, err := r.files.DeleteAssociationsByIDs(dbc, ids)
			if err != nil {
				return nil, fmt.Errorf("delete file associations: %w", err)
			}
			out.FilesRemoved = int(n)
			for _, id := range fileIDs {
				deleted, err := r.orphans.SweepFile(dbc, id)
				if err != nil {
					return nil, fmt.Errorf("sweep file %d: %w", id, err)
				}
				out.FilesSwept++
				if deleted {
					out.Enqueued++
				}
			}
		}
	}
	return out, nil
}

func validateInput(in ReconcileInput) (types.ParentSpec, error) {
	spec, ok := types.LookupParent(in.ParentType)
	if !ok {
		return spec, fmt.Errorf("%w: unknown parent type %q", pkgerrors.ErrInvalidArgument, in.ParentType)
	}
	if in.ParentID <= 0 {
		return spec, fmt.Errorf("%w: parent id must be positive", pkgerrors.ErrInvalidArgument)
	}
	for f := range in.Fields {
		if f == types.FieldResource {
			return spec, fmt.Errorf("%w: %q links are passed as resources", pkgerrors.ErrInvalidArgument, f)
		}
		if !spec.Allows(f) {
			return spec, fmt.Errorf("%w: %s has no field %q", pkgerrors.ErrInvalidArgument, in.ParentType, f)
		}
	}
	return spec, nil
}

func uniqueResourceIDs(rows []*types.ResourceAssociation) []int64 {
	seen := map[int64]struct{}{}
	out := make([]int64, 0, len(rows))
	for _, a := range rows {
		if _, ok := seen[a.ResourceID]; ok {
			continue
		}
		seen[a.ResourceID] = struct{}{}
		out = append(out, a.ResourceID)
	}
	return out
}
