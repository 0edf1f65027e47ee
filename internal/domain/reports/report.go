// Package reports holds the slices of activity-report tables the resource
// engine reads. The rows are owned and written by report CRUD.
package reports

import "time"

const (
	ReportStatusDraft     = "draft"
	ReportStatusSubmitted = "submitted"
	ReportStatusApproved  = "approved"
)

type ActivityReport struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CalculatedStatus string    `gorm:"column:calculated_status;type:varchar(32);not null;default:'draft';index" json:"calculatedStatus"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (ActivityReport) TableName() string { return "activity_report" }

// ActivityReportGoal places a goal on a report.
type ActivityReportGoal struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ActivityReportID int64     `gorm:"column:activity_report_id;not null;index" json:"activityReportId"`
	GoalID           int64     `gorm:"column:goal_id;not null;index" json:"goalId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (ActivityReportGoal) TableName() string { return "activity_report_goal" }

// ActivityReportObjective places an objective on a report.
type ActivityReportObjective struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ActivityReportID int64     `gorm:"column:activity_report_id;not null;index" json:"activityReportId"`
	ObjectiveID      int64     `gorm:"column:objective_id;not null;index" json:"objectiveId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (ActivityReportObjective) TableName() string { return "activity_report_objective" }
