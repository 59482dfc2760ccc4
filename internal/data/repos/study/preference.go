package study

import (
	"context"

	"github.com/google/uuid"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	pkgerrors "github.com/yungbote/studyforge-backend/internal/pkg/errors"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type PreferenceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, prefs []*types.StudyPreference) ([]*types.StudyPreference, error)
	// GetByIDAndUserID is owner scoped: a preference that exists under another user
	// is reported as not found.
	GetByIDAndUserID(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.StudyPreference, error)
	GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.StudyPreference, error)
}

type preferenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPreferenceRepo(db *gorm.DB, baseLog *logger.Logger) PreferenceRepo {
	repoLog := baseLog.With("repo", "PreferenceRepo")
	return &preferenceRepo{db: db, log: repoLog}
}

func (r *preferenceRepo) Create(ctx context.Context, tx *gorm.DB, prefs []*types.StudyPreference) ([]*types.StudyPreference, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(prefs) == 0 {
		return []*types.StudyPreference{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&prefs).Error; err != nil {
		return nil, translate("create preference", err)
	}
	return prefs, nil
}

func (r *preferenceRepo) GetByIDAndUserID(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.StudyPreference, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StudyPreference
	if err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Find(&results).Error; err != nil {
		return nil, translate("get preference", err)
	}
	if len(results) == 0 {
		return nil, pkgerrors.ErrNotFound
	}
	return results[0], nil
}

func (r *preferenceRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.StudyPreference, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.StudyPreference
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, translate("get preferences by user", err)
	}
	return results, nil
}
