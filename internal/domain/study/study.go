package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Study is the root of a generated curriculum. TotalUnits is the planned count; the
// number of persisted units can be lower when some units failed to generate.
type Study struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PreferenceID *uuid.UUID `gorm:"type:uuid;index" json:"preference_id,omitempty"`

	Title          string                   `gorm:"column:title;not null" json:"title"`
	Description    string                   `gorm:"column:description" json:"description"`
	TotalUnits     int                      `gorm:"column:total_units;not null;default:0" json:"total_units"`
	CompletedUnits int                      `gorm:"column:completed_units;not null;default:0" json:"completed_units"`
	IsActive       bool                     `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Tags           datatypes.JSONType[Tags] `gorm:"column:tags" json:"tags"`
	Metadata       datatypes.JSON           `gorm:"column:metadata" json:"metadata"`

	Units []*StudyUnit `gorm:"foreignKey:StudyID;references:ID" json:"units,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Study) TableName() string { return "study" }

func (s *Study) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Tags is the classifier output stored alongside the study for later filtering.
type Tags struct {
	PrimaryTags      []string `json:"primary_tags"`
	RelatedTags      []string `json:"related_tags"`
	SensitivityFlags []string `json:"sensitivity_flags"`
}
