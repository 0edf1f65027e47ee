package resources

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

type FileRepo interface {
	GetByID(dbc dbctx.Context, id int64) (*types.File, error)
	ListAssociationsByParent(dbc dbctx.Context, parentType types.ParentType, parentID int64) ([]*types.FileAssociation, error)
	CreateAssociation(dbc dbctx.Context, fa *types.FileAssociation) error
	DeleteAssociationsByIDs(dbc dbctx.Context, ids []int64) (int64, error)
	DeleteIfUnreferenced(dbc dbctx.Context, id int64) (bool, error)
}

type fileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileRepo(db *gorm.DB, baseLog *logger.Logger) FileRepo {
	return &fileRepo{
		db:  db,
		log: baseLog.With("repo", "FileRepo"),
	}
}

func (r *fileRepo) GetByID(dbc dbctx.Context, id int64) (*types.File, error) {
	if id <= 0 {
		return nil, nil
	}
	var row types.File
	err := dbc.DB(r.db).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *fileRepo) ListAssociationsByParent(dbc dbctx.Context, parentType types.ParentType, parentID int64) ([]*types.FileAssociation, error) {
	var out []*types.FileAssociation
	if err := dbc.DB(r.db).
		Where("parent_type = ? AND parent_id = ?", parentType, parentID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *fileRepo) CreateAssociation(dbc dbctx.Context, fa *types.FileAssociation) error {
	return dbc.DB(r.db).Omit("File").Create(fa).Error
}

func (r *fileRepo) DeleteAssociationsByIDs(dbc dbctx.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.FileAssociation{})
	return res.RowsAffected, res.Error
}

func (r *fileRepo) DeleteIfUnreferenced(dbc dbctx.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	res := dbc.DB(r.db).Exec(`
		DELETE FROM file
		WHERE id IN (
			SELECT f.id
			FROM file f
			LEFT JOIN file_association fa ON fa.file_id = f.id
			WHERE f.id = ? AND fa.id IS NULL
		)
	`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
