package studygen

import (
	"context"
	"errors"

	"github.com/google/uuid"

	studyrepo "github.com/yungbote/studyforge-backend/internal/data/repos/study"
	pkgerrors "github.com/yungbote/studyforge-backend/internal/pkg/errors"
)

// PreferenceReader loads one preference record, scoped to its owner.
type PreferenceReader struct {
	repo studyrepo.PreferenceRepo
}

func NewPreferenceReader(repo studyrepo.PreferenceRepo) *PreferenceReader {
	return &PreferenceReader{repo: repo}
}

func (r *PreferenceReader) Read(ctx context.Context, id uuid.UUID, userID uuid.UUID) (Preferences, error) {
	rec, err := r.repo.GetByIDAndUserID(ctx, nil, id, userID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return Preferences{}, &NotFoundError{Resource: "preference", ID: id.String()}
		}
		return Preferences{}, err
	}
	return PreferencesFromRecord(rec), nil
}
