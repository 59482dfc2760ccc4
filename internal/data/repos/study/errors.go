package study

import (
	"errors"
	"fmt"

	pkgerrors "github.com/yungbote/studyforge-backend/internal/pkg/errors"
	"gorm.io/gorm"
)

// translate maps driver errors (already normalized by gorm's TranslateError) onto
// the package sentinels so callers can branch without importing gorm.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w: %w", op, pkgerrors.ErrConflict, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, pkgerrors.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
