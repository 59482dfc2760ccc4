package study

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	pkgerrors "github.com/yungbote/studyforge-backend/internal/pkg/errors"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type StudyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, studies []*types.Study) ([]*types.Study, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, studyIDs []uuid.UUID) ([]*types.Study, error)
	GetByIDAndUserID(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Study, error)
	GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Study, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, studyIDs []uuid.UUID) error
}

type studyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyRepo(db *gorm.DB, baseLog *logger.Logger) StudyRepo {
	repoLog := baseLog.With("repo", "StudyRepo")
	return &studyRepo{db: db, log: repoLog}
}

func (r *studyRepo) Create(ctx context.Context, tx *gorm.DB, studies []*types.Study) ([]*types.Study, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(studies) == 0 {
		return []*types.Study{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&studies).Error; err != nil {
		return nil, translate("create study", err)
	}
	return studies, nil
}

func (r *studyRepo) GetByIDs(ctx context.Context, tx *gorm.DB, studyIDs []uuid.UUID) ([]*types.Study, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Study
	if len(studyIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", studyIDs).
		Find(&results).Error; err != nil {
		return nil, translate("get studies", err)
	}
	return results, nil
}

func (r *studyRepo) GetByIDAndUserID(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Study, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Study
	if err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, translate("get study", err)
	}
	if len(results) == 0 {
		return nil, pkgerrors.ErrNotFound
	}
	return results[0], nil
}

func (r *studyRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.Study, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Study
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, translate("get studies by user", err)
	}
	return results, nil
}

func (r *studyRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(updates) == 0 {
		return nil
	}

	res := transaction.WithContext(ctx).
		Model(&types.Study{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return translate("update study", res.Error)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (r *studyRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, studyIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(studyIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", studyIDs).
		Delete(&types.Study{}).Error; err != nil {
		return translate("delete studies", err)
	}
	return nil
}
