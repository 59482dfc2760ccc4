package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StudySession struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UnitID       uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_unit_session_index,priority:1" json:"unit_id"`
	Unit         *StudyUnit `gorm:"constraint:OnDelete:CASCADE;foreignKey:UnitID;references:ID" json:"-"`
	SessionIndex int        `gorm:"column:session_index;not null;uniqueIndex:idx_unit_session_index,priority:2" json:"session_index"`

	Title               string                      `gorm:"column:title;not null" json:"title"`
	EstimatedMinutes    int                         `gorm:"column:estimated_minutes;not null;default:0" json:"estimated_minutes"`
	Passages            datatypes.JSONSlice[string] `gorm:"column:passages" json:"passages"`
	Context             string                      `gorm:"column:context;type:text" json:"context"`
	KeyInsights         datatypes.JSONSlice[string] `gorm:"column:key_insights" json:"key_insights"`
	ReflectionQuestions datatypes.JSONSlice[string] `gorm:"column:reflection_questions" json:"reflection_questions,omitempty"`
	PrayerPrompt        string                      `gorm:"column:prayer_prompt;type:text" json:"prayer_prompt"`
	ActionStep          string                      `gorm:"column:action_step;type:text" json:"action_step"`
	MemoryVerse         string                      `gorm:"column:memory_verse" json:"memory_verse,omitempty"`
	CrossReferences     datatypes.JSONSlice[string] `gorm:"column:cross_references" json:"cross_references,omitempty"`
	IsCompleted         bool                        `gorm:"column:is_completed;not null;default:false" json:"is_completed"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (StudySession) TableName() string { return "study_session" }

func (s *StudySession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
