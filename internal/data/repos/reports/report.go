package reports

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/dbctx"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

// ActivityReportRepo reads report rows owned by report CRUD.
type ActivityReportRepo interface {
	GetByID(dbc dbctx.Context, id int64) (*types.ActivityReport, error)
	// ListIDs pages report ids in ascending order, starting after afterID.
	ListIDs(dbc dbctx.Context, afterID int64, limit int) ([]int64, error)
}

type activityReportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityReportRepo(db *gorm.DB, baseLog *logger.Logger) ActivityReportRepo {
	return &activityReportRepo{
		db:  db,
		log: baseLog.With("repo", "ActivityReportRepo"),
	}
}

func (r *activityReportRepo) GetByID(dbc dbctx.Context, id int64) (*types.ActivityReport, error) {
	if id <= 0 {
		return nil, nil
	}
	var row types.ActivityReport
	err := dbc.DB(r.db).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *activityReportRepo) ListIDs(dbc dbctx.Context, afterID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 500
	}
	var ids []int64
	err := dbc.DB(r.db).
		Model(&types.ActivityReport{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
