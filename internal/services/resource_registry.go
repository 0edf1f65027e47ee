package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	pkgerrors "github.com/yungbote/ttahub-resources-backend/internal/pkg/errors"
	"github.com/yungbote/ttahub-resources-backend/internal/pkg/urlextract"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

const upsertAttempts = 3

type UpsertResult struct {
	ID       int64
	Created  bool
	Enqueued bool
}

// MetadataUpdate is what one enrichment attempt learned about a resource.
// Zero values leave the matching column untouched.
type MetadataUpdate struct {
	Title      *string
	Metadata   map[string]any
	StatusCode int
	MimeType   string
	FetchedAt  time.Time
}

type ResourceRegistry interface {
	Upsert(dbc dbctx.Context, domain, url string, seenAt time.Time) (*UpsertResult, error)
	Get(dbc dbctx.Context, id int64) (*types.Resource, error)
	// Delete is reserved for the orphan collector.
	Delete(dbc dbctx.Context, id int64) (bool, error)
	UpdateURL(dbc dbctx.Context, id int64, rawURL string) (bool, error)
	UpdateMetadata(dbc dbctx.Context, id int64, u MetadataUpdate) error
}

type resourceRegistry struct {
	log          *logger.Logger
	resources    repos.ResourceRepo
	associations repos.AssociationRepo
	queue        EnrichmentQueue
}

func NewResourceRegistry(baseLog *logger.Logger, resources repos.ResourceRepo, associations repos.AssociationRepo, queue EnrichmentQueue) ResourceRegistry {
	return &resourceRegistry{
		log:          baseLog.With("service", "ResourceRegistry"),
		resources:    resources,
		associations: associations,
		queue:        queue,
	}
}

func (r *resourceRegistry) Upsert(dbc dbctx.Context, domain, url string, seenAt time.Time) (*UpsertResult, error) {
	if domain == "" || url == "" {
		return nil, fmt.Errorf("%w: domain and url are required", pkgerrors.ErrInvalidArgument)
	}
	if seenAt.IsZero() {
		seenAt = time.Now()
	}
	seenAt = seenAt.UTC()

	for attempt := 0; attempt < upsertAttempts; attempt++ {
		existing, err := r.resources.GetByDomainURL(dbc, domain, url)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if _, err := r.resources.WidenTimestamps(dbc, existing.ID, seenAt); err != nil {
				return nil, err
			}
			return &UpsertResult{ID: existing.ID}, nil
		}

		row := &types.Resource{Domain: domain, URL: url, CreatedAt: seenAt, UpdatedAt: seenAt}
		created, err := r.resources.InsertIfAbsent(dbc, row)
		if err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, err
			}
			created = false
		}
		if !created {
			r.log.Debug("resource insert lost race, re-reading", "domain", domain, "attempt", attempt+1)
			continue
		}
		enqueued, err := r.queue.Enqueue(dbc, row.ID, row.URL)
		if err != nil {
			return nil, err
		}
		return &UpsertResult{ID: row.ID, Created: true, Enqueued: enqueued}, nil
	}
	return nil, fmt.Errorf("%w: resource %s still contended after %d attempts", pkgerrors.ErrConflict, url, upsertAttempts)
}

func (r *resourceRegistry) Get(dbc dbctx.Context, id int64) (*types.Resource, error) {
	res, err := r.resources.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: resource %d", pkgerrors.ErrNotFound, id)
	}
	return res, nil
}

func (r *resourceRegistry) Delete(dbc dbctx.Context, id int64) (bool, error) {
	deleted, err := r.resources.DeleteIfUnreferenced(dbc, id)
	if err != nil {
		return false, err
	}
	if deleted {
		r.log.Debug("resource deleted", "resource_id", id)
		return true, nil
	}
	n, err := r.associations.CountForResource(dbc, id)
	if err != nil {
		return false, err
	}
	if n > 0 {
		r.log.Warn("resource still referenced, not deleted", "resource_id", id, "references", n)
	}
	return false, nil
}

// UpdateURL repoints a resource and re-derives its domain. It reports whether
// an enrichment job was enqueued for the new URL.
func (r *resourceRegistry) UpdateURL(dbc dbctx.Context, id int64, rawURL string) (bool, error) {
	m, ok := urlextract.Normalize(rawURL)
	if !ok {
		return false, fmt.Errorf("%w: unrecognised url %q", pkgerrors.ErrInvalidArgument, rawURL)
	}
	res, err := r.Get(dbc, id)
	if err != nil {
		return false, err
	}
	if res.URL == m.URL && res.Domain == m.Domain {
		return false, nil
	}
	other, err := r.resources.GetByDomainURL(dbc, m.Domain, m.URL)
	if err != nil {
		return false, err
	}
	if other != nil && other.ID != id {
		return false, fmt.Errorf("%w: %s already registered as resource %d", pkgerrors.ErrConflict, m.URL, other.ID)
	}
	if err := r.resources.UpdateURL(dbc, id, m.Domain, m.URL); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, fmt.Errorf("%w: %s", pkgerrors.ErrConflict, m.URL)
		}
		return false, err
	}
	if res.HasTitle() {
		return false, nil
	}
	return r.queue.Enqueue(dbc, id, m.URL)
}

func (r *resourceRegistry) UpdateMetadata(dbc dbctx.Context, id int64, u MetadataUpdate) error {
	fetchedAt := u.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	updates := map[string]interface{}{
		"metadata_updated_at": fetchedAt.UTC(),
	}
	if u.Title != nil {
		updates["title"] = *u.Title
	}
	if u.Metadata != nil {
		b, err := json.Marshal(u.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		updates["metadata"] = datatypes.JSON(b)
	}
	if u.StatusCode > 0 {
		updates["last_status_code"] = u.StatusCode
	}
	if u.MimeType != "" {
		updates["mime_type"] = u.MimeType
	}
	ok, err := r.resources.UpdateFields(dbc, id, updates)
	if err != nil {
		return err
	}
	if !ok {
		r.log.Debug("metadata update matched no resource", "resource_id", id)
	}
	return nil
}
