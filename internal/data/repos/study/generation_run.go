package study

import (
	"context"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	pkgerrors "github.com/yungbote/studyforge-backend/internal/pkg/errors"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type StudyGenerationRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, runs []*types.StudyGenerationRun) ([]*types.StudyGenerationRun, error)
	GetByIDAndUserID(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.StudyGenerationRun, error)
	GetLatestByStudyID(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) (*types.StudyGenerationRun, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type studyGenerationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyGenerationRunRepo(db *gorm.DB, baseLog *logger.Logger) StudyGenerationRunRepo {
	repoLog := baseLog.With("repo", "StudyGenerationRunRepo")
	return &studyGenerationRunRepo{db: db, log: repoLog}
}

func (r *studyGenerationRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.StudyGenerationRun) ([]*types.StudyGenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(runs) == 0 {
		return []*types.StudyGenerationRun{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&runs).Error; err != nil {
		return nil, translate("create generation run", err)
	}
	return runs, nil
}

func (r *studyGenerationRunRepo) GetByIDAndUserID(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.StudyGenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StudyGenerationRun
	if err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, translate("get generation run", err)
	}
	if len(results) == 0 {
		return nil, pkgerrors.ErrNotFound
	}
	return results[0], nil
}

func (r *studyGenerationRunRepo) GetLatestByStudyID(ctx context.Context, tx *gorm.DB, studyID uuid.UUID) (*types.StudyGenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StudyGenerationRun
	if err := transaction.WithContext(ctx).
		Where("study_id = ?", studyID).
		Order("created_at DESC").
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, translate("get generation run by study", err)
	}
	if len(results) == 0 {
		return nil, pkgerrors.ErrNotFound
	}
	return results[0], nil
}

func (r *studyGenerationRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(updates) == 0 {
		return nil
	}

	res := transaction.WithContext(ctx).
		Model(&types.StudyGenerationRun{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return translate("update generation run", res.Error)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (r *studyGenerationRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.UpdateFields(ctx, tx, id, map[string]interface{}{
		"heartbeat_at": now,
		"updated_at":   now,
	})
}
