package testutil

import (
	"context"
	"testing"
	"time"

	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedReport(tb testing.TB, ctx context.Context, tx *gorm.DB, status string) *types.ActivityReport {
	tb.Helper()
	r := &types.ActivityReport{CalculatedStatus: status}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed report: %v", err)
	}
	return r
}

func SeedReportGoal(tb testing.TB, ctx context.Context, tx *gorm.DB, reportID, goalID int64) *types.ActivityReportGoal {
	tb.Helper()
	arg := &types.ActivityReportGoal{ActivityReportID: reportID, GoalID: goalID}
	if err := tx.WithContext(ctx).Create(arg).Error; err != nil {
		tb.Fatalf("seed report goal: %v", err)
	}
	return arg
}

func SeedReportObjective(tb testing.TB, ctx context.Context, tx *gorm.DB, reportID, objectiveID int64) *types.ActivityReportObjective {
	tb.Helper()
	aro := &types.ActivityReportObjective{ActivityReportID: reportID, ObjectiveID: objectiveID}
	if err := tx.WithContext(ctx).Create(aro).Error; err != nil {
		tb.Fatalf("seed report objective: %v", err)
	}
	return aro
}

func SeedResource(tb testing.TB, ctx context.Context, tx *gorm.DB, domain, url string, title *string) *types.Resource {
	tb.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	r := &types.Resource{
		Domain:    domain,
		URL:       url,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed resource: %v", err)
	}
	return r
}

func SeedAssociation(tb testing.TB, ctx context.Context, tx *gorm.DB, parentType types.ParentType, parentID, resourceID int64, fields ...types.SourceField) *types.ResourceAssociation {
	tb.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	a := &types.ResourceAssociation{
		ParentType:   parentType,
		ParentID:     parentID,
		ResourceID:   resourceID,
		SourceFields: []types.SourceField(types.NewSourceFields(fields...)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed association: %v", err)
	}
	return a
}

func SeedFile(tb testing.TB, ctx context.Context, tx *gorm.DB, key string) *types.File {
	tb.Helper()
	f := &types.File{
		Key:              key,
		OriginalFileName: "file.pdf",
		FileSize:         42,
		Status:           types.FileStatusUploaded,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed file: %v", err)
	}
	return f
}

func SeedFileAssociation(tb testing.TB, ctx context.Context, tx *gorm.DB, parentType types.ParentType, parentID, fileID int64) *types.FileAssociation {
	tb.Helper()
	fa := &types.FileAssociation{ParentType: parentType, ParentID: parentID, FileID: fileID}
	if err := tx.WithContext(ctx).Create(fa).Error; err != nil {
		tb.Fatalf("seed file association: %v", err)
	}
	return fa
}

func Ptr[T any](v T) *T { return &v }
