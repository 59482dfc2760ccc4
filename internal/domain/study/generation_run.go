package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// StudyGenerationRun records one invocation of the generation pipeline: the state it
// reached, the study it created (if any) and a per-unit outcome report.
type StudyGenerationRun struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PreferenceID uuid.UUID  `gorm:"type:uuid;not null;index" json:"preference_id"`
	StudyID      *uuid.UUID `gorm:"type:uuid;index" json:"study_id,omitempty"`

	State     string `gorm:"column:state;not null;index" json:"state"`
	Status    string `gorm:"column:status;not null;index" json:"status"` // running|succeeded|failed
	Error     string `gorm:"column:error" json:"error,omitempty"`
	ErrorKind string `gorm:"column:error_kind" json:"error_kind,omitempty"`

	UnitsPlanned      int            `gorm:"column:units_planned;not null;default:0" json:"units_planned"`
	UnitsPersisted    int            `gorm:"column:units_persisted;not null;default:0" json:"units_persisted"`
	SessionsPersisted int            `gorm:"column:sessions_persisted;not null;default:0" json:"sessions_persisted"`
	Report            datatypes.JSON `gorm:"column:report" json:"report,omitempty"`

	StartedAt   time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt  *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
	HeartbeatAt *time.Time `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (StudyGenerationRun) TableName() string { return "study_generation_run" }

func (r *StudyGenerationRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
