package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Preference is the onboarding answer set a study is generated from. It is owned by
// the profile flows; the generation pipeline only reads it.
type Preference struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Goals                      datatypes.JSONSlice[string] `gorm:"column:goals" json:"goals"`
	Topics                     datatypes.JSONSlice[string] `gorm:"column:topics" json:"topics"`
	MinutesPerSession          int                         `gorm:"column:minutes_per_session;not null;default:15" json:"minutes_per_session"`
	Translation                string                      `gorm:"column:translation;not null;default:'NIV'" json:"translation"`
	ReadingLevel               string                      `gorm:"column:reading_level;not null;default:'conversational'" json:"reading_level"`
	IncludeDiscussionQuestions bool                        `gorm:"column:include_discussion_questions;not null;default:true" json:"include_discussion_questions"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Preference) TableName() string { return "study_preference" }

func (p *Preference) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
