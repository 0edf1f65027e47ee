package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	// StatusDead is terminal: attempts are exhausted and the run will not be claimed again.
	StatusDead = "dead"
)

// RunnableStatuses are the statuses a deduplicating enqueue treats as "already pending".
var RunnableStatuses = []string{StatusQueued, StatusRunning, StatusFailed}

type JobRun struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobType       string         `gorm:"column:job_type;not null;index" json:"job_type"`
	EntityType    string         `gorm:"column:entity_type;index:idx_job_run_entity,priority:1" json:"entity_type,omitempty"`
	EntityID      string         `gorm:"column:entity_id;index:idx_job_run_entity,priority:2" json:"entity_id,omitempty"`
	Status        string         `gorm:"column:status;not null;index" json:"status"`
	Stage         string         `gorm:"column:stage;not null;default:'queued'" json:"stage"`
	Attempts      int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts   int            `gorm:"column:max_attempts;not null;default:3" json:"max_attempts"`
	Error         string         `gorm:"column:error" json:"error,omitempty"`
	LockedAt      *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt   *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt   *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	NextAttemptAt *time.Time     `gorm:"column:next_attempt_at;index" json:"next_attempt_at,omitempty"`
	Payload       datatypes.JSON `gorm:"column:payload" json:"payload"`
	Result        datatypes.JSON `gorm:"column:result" json:"result"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }

func (j *JobRun) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Stage == "" {
		j.Stage = j.Status
	}
	return nil
}
