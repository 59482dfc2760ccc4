package study

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type StudySessionRepo interface {
	// Create fails with errors.ErrConflict when (unit_id, session_index) already exists.
	Create(ctx context.Context, tx *gorm.DB, sessions []*types.StudySession) ([]*types.StudySession, error)
	GetByUnitIDs(ctx context.Context, tx *gorm.DB, unitIDs []uuid.UUID) ([]*types.StudySession, error)
	FullDeleteByUnitIDs(ctx context.Context, tx *gorm.DB, unitIDs []uuid.UUID) error
}

type studySessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudySessionRepo(db *gorm.DB, baseLog *logger.Logger) StudySessionRepo {
	repoLog := baseLog.With("repo", "StudySessionRepo")
	return &studySessionRepo{db: db, log: repoLog}
}

func (r *studySessionRepo) Create(ctx context.Context, tx *gorm.DB, sessions []*types.StudySession) ([]*types.StudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(sessions) == 0 {
		return []*types.StudySession{}, nil
	}

	if err := transaction.WithContext(ctx).Omit("Unit").Create(&sessions).Error; err != nil {
		return nil, translate("create study session", err)
	}
	return sessions, nil
}

func (r *studySessionRepo) GetByUnitIDs(ctx context.Context, tx *gorm.DB, unitIDs []uuid.UUID) ([]*types.StudySession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StudySession
	if len(unitIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("unit_id IN ?", unitIDs).
		Order("unit_id, session_index ASC").
		Find(&results).Error; err != nil {
		return nil, translate("get study sessions by unit", err)
	}
	return results, nil
}

func (r *studySessionRepo) FullDeleteByUnitIDs(ctx context.Context, tx *gorm.DB, unitIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(unitIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("unit_id IN ?", unitIDs).
		Delete(&types.StudySession{}).Error; err != nil {
		return translate("delete study sessions", err)
	}
	return nil
}
