package study

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type StudyUnitRepo interface {
	// Create fails with errors.ErrConflict when (study_id, unit_index) already exists.
	Create(ctx context.Context, tx *gorm.DB, units []*types.StudyUnit) ([]*types.StudyUnit, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, unitIDs []uuid.UUID) ([]*types.StudyUnit, error)
	GetByStudyIDs(ctx context.Context, tx *gorm.DB, studyIDs []uuid.UUID) ([]*types.StudyUnit, error)
	CountByStudyID(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) (int64, error)
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, unitIDs []uuid.UUID) error
}

type studyUnitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyUnitRepo(db *gorm.DB, baseLog *logger.Logger) StudyUnitRepo {
	repoLog := baseLog.With("repo", "StudyUnitRepo")
	return &studyUnitRepo{db: db, log: repoLog}
}

func (r *studyUnitRepo) Create(ctx context.Context, tx *gorm.DB, units []*types.StudyUnit) ([]*types.StudyUnit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(units) == 0 {
		return []*types.StudyUnit{}, nil
	}

	if err := transaction.WithContext(ctx).Omit("Sessions", "Study").Create(&units).Error; err != nil {
		return nil, translate("create study unit", err)
	}
	return units, nil
}

func (r *studyUnitRepo) GetByIDs(ctx context.Context, tx *gorm.DB, unitIDs []uuid.UUID) ([]*types.StudyUnit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StudyUnit
	if len(unitIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", unitIDs).
		Find(&results).Error; err != nil {
		return nil, translate("get study units", err)
	}
	return results, nil
}

func (r *studyUnitRepo) GetByStudyIDs(ctx context.Context, tx *gorm.DB, studyIDs []uuid.UUID) ([]*types.StudyUnit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StudyUnit
	if len(studyIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("study_id IN ?", studyIDs).
		Order("study_id, unit_index ASC").
		Find(&results).Error; err != nil {
		return nil, translate("get study units by study", err)
	}
	return results, nil
}

func (r *studyUnitRepo) CountByStudyID(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.StudyUnit{}).
		Where("study_id = ?", studyID).
		Count(&n).Error; err != nil {
		return 0, translate("count study units", err)
	}
	return n, nil
}

func (r *studyUnitRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, unitIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(unitIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", unitIDs).
		Delete(&types.StudyUnit{}).Error; err != nil {
		return translate("delete study units", err)
	}
	return nil
}
