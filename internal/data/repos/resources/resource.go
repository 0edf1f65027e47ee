package resources

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

// UntitledFilter narrows the backfill listing of resources without a title.
type UntitledFilter struct {
	AfterID         int64
	Limit           int
	SkipMimeTypes   []string
	SkipStatusCodes []int
}

type ResourceRepo interface {
	GetByID(dbc dbctx.Context, id int64) (*types.Resource, error)
	GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Resource, error)
	GetByDomainURL(dbc dbctx.Context, domain, url string) (*types.Resource, error)
	InsertIfAbsent(dbc dbctx.Context, r *types.Resource) (bool, error)
	WidenTimestamps(dbc dbctx.Context, id int64, seenAt time.Time) (bool, error)
	UpdateURL(dbc dbctx.Context, id int64, domain, url string) error
	UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) (bool, error)
	DeleteIfUnreferenced(dbc dbctx.Context, id int64) (bool, error)
	ListUntitled(dbc dbctx.Context, f UntitledFilter) ([]*types.Resource, error)
}

type resourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
	return &resourceRepo{
		db:  db,
		log: baseLog.With("repo", "ResourceRepo"),
	}
}

func (r *resourceRepo) GetByID(dbc dbctx.Context, id int64) (*types.Resource, error) {
	if id <= 0 {
		return nil, nil
	}
	var row types.Resource
	err := dbc.DB(r.db).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *resourceRepo) GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Resource, error) {
	var out []*types.Resource
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *resourceRepo) GetByDomainURL(dbc dbctx.Context, domain, url string) (*types.Resource, error) {
	var row types.Resource
	err := dbc.DB(r.db).Where("domain = ? AND url = ?", domain, url).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// InsertIfAbsent inserts r unless (domain, url) already exists. It reports
// false when a concurrent writer got there first; r.ID is then unset.
func (r *resourceRepo) InsertIfAbsent(dbc dbctx.Context, row *types.Resource) (bool, error) {
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "domain"}, {Name: "url"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// WidenTimestamps moves created_at back and updated_at forward to cover seenAt.
// The row is only written when one of them actually moves.
func (r *resourceRepo) WidenTimestamps(dbc dbctx.Context, id int64, seenAt time.Time) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.Resource{}).
		Where("id = ? AND (created_at > ? OR updated_at < ?)", id, seenAt, seenAt).
		UpdateColumns(map[string]interface{}{
			"created_at": gorm.Expr("CASE WHEN created_at > ? THEN ? ELSE created_at END", seenAt, seenAt),
			"updated_at": gorm.Expr("CASE WHEN updated_at < ? THEN ? ELSE updated_at END", seenAt, seenAt),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *resourceRepo) UpdateURL(dbc dbctx.Context, id int64, domain, url string) error {
	return dbc.DB(r.db).
		Model(&types.Resource{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"domain":     domain,
			"url":        url,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *resourceRepo) UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) (bool, error) {
	if id <= 0 || len(updates) == 0 {
		return false, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := dbc.DB(r.db).
		Model(&types.Resource{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteIfUnreferenced removes the resource iff no association points at it.
// One anti-join; referenced or already-deleted ids are a no-op.
func (r *resourceRepo) DeleteIfUnreferenced(dbc dbctx.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	res := dbc.DB(r.db).Exec(`
		DELETE FROM resource
		WHERE id IN (
			SELECT r.id
			FROM resource r
			LEFT JOIN resource_association ra ON ra.resource_id = r.id
			WHERE r.id = ? AND ra.id IS NULL
		)
	`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *resourceRepo) ListUntitled(dbc dbctx.Context, f UntitledFilter) ([]*types.Resource, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}
	q := dbc.DB(r.db).
		Where("(title IS NULL OR title = '') AND id > ?", f.AfterID)
	if len(f.SkipMimeTypes) > 0 {
		q = q.Where("(mime_type IS NULL OR mime_type NOT IN ?)", f.SkipMimeTypes)
	}
	if len(f.SkipStatusCodes) > 0 {
		q = q.Where("(last_status_code IS NULL OR last_status_code NOT IN ?)", f.SkipStatusCodes)
	}
	var out []*types.Resource
	if err := q.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
