package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StudyUnit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudyID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_study_unit_index,priority:1" json:"study_id"`
	Study     *Study    `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudyID;references:ID" json:"-"`
	UnitIndex int       `gorm:"column:unit_index;not null;uniqueIndex:idx_study_unit_index,priority:2" json:"unit_index"`

	Type              string                      `gorm:"column:type;not null" json:"type"`
	Scope             string                      `gorm:"column:scope;not null" json:"scope"`
	Title             string                      `gorm:"column:title;not null" json:"title"`
	PrimaryPassages   datatypes.JSONSlice[string] `gorm:"column:primary_passages" json:"primary_passages"`
	SecondaryPassages datatypes.JSONSlice[string] `gorm:"column:secondary_passages" json:"secondary_passages"`
	EstimatedMinutes  int                         `gorm:"column:estimated_minutes;not null;default:0" json:"estimated_minutes"`
	LearningGoal      string                      `gorm:"column:learning_goal" json:"learning_goal"`
	IsCompleted       bool                        `gorm:"column:is_completed;not null;default:false" json:"is_completed"`

	Sessions []*StudySession `gorm:"foreignKey:UnitID;references:ID" json:"sessions,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (StudyUnit) TableName() string { return "study_unit" }

func (u *StudyUnit) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
