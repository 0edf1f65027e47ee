package resources

import (
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

type AssociationRepo interface {
	ListByParent(dbc dbctx.Context, parentType types.ParentType, parentID int64) ([]*types.ResourceAssociation, error)
	GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.ResourceAssociation, error)
	Create(dbc dbctx.Context, rows []*types.ResourceAssociation) ([]*types.ResourceAssociation, error)
	UpdateSourceFields(dbc dbctx.Context, id int64, fields types.SourceFields, seenAt time.Time) error
	DeleteByIDs(dbc dbctx.Context, ids []int64) (int64, error)
	CountForResource(dbc dbctx.Context, resourceID int64) (int64, error)

	FlagRepo
}

type associationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssociationRepo(db *gorm.DB, baseLog *logger.Logger) AssociationRepo {
	return &associationRepo{
		db:  db,
		log: baseLog.With("repo", "AssociationRepo"),
	}
}

func (r *associationRepo) ListByParent(dbc dbctx.Context, parentType types.ParentType, parentID int64) ([]*types.ResourceAssociation, error) {
	var out []*types.ResourceAssociation
	if parentType == "" || parentID <= 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Preload("Resource").
		Where("parent_type = ? AND parent_id = ?", parentType, parentID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *associationRepo) GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.ResourceAssociation, error) {
	var out []*types.ResourceAssociation
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *associationRepo) Create(dbc dbctx.Context, rows []*types.ResourceAssociation) ([]*types.ResourceAssociation, error) {
	if len(rows) == 0 {
		return []*types.ResourceAssociation{}, nil
	}
	if err := dbc.DB(r.db).Omit("Resource").Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *associationRepo) UpdateSourceFields(dbc dbctx.Context, id int64, fields types.SourceFields, seenAt time.Time) error {
	return dbc.DB(r.db).
		Model(&types.ResourceAssociation{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"source_fields": newFieldColumn(fields),
			"updated_at":    seenAt,
		}).Error
}

func (r *associationRepo) DeleteByIDs(dbc dbctx.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.ResourceAssociation{})
	return res.RowsAffected, res.Error
}

func (r *associationRepo) CountForResource(dbc dbctx.Context, resourceID int64) (int64, error) {
	var n int64
	err := dbc.DB(r.db).
		Model(&types.ResourceAssociation{}).
		Where("resource_id = ?", resourceID).
		Count(&n).Error
	return n, err
}
