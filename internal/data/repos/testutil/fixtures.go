package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedPreference(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.StudyPreference {
	tb.Helper()
	p := &types.StudyPreference{
		ID:                         uuid.New(),
		UserID:                     userID,
		Goals:                      datatypes.JSONSlice[string]{"grow in prayer"},
		Topics:                     datatypes.JSONSlice[string]{"hope", "anxiety"},
		MinutesPerSession:          15,
		Translation:                "ESV",
		ReadingLevel:               "conversational",
		IncludeDiscussionQuestions: true,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed preference: %v", err)
	}
	return p
}

func SeedStudy(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, preferenceID *uuid.UUID) *types.Study {
	tb.Helper()
	s := &types.Study{
		ID:           uuid.New(),
		UserID:       userID,
		PreferenceID: preferenceID,
		Title:        "study",
		Description:  "summary",
		TotalUnits:   10,
		IsActive:     true,
		Tags: datatypes.NewJSONType(types.StudyTags{
			PrimaryTags:      []string{"hope"},
			RelatedTags:      []string{},
			SensitivityFlags: []string{},
		}),
		Metadata: datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed study: %v", err)
	}
	return s
}

func SeedStudyUnit(tb testing.TB, ctx context.Context, tx *gorm.DB, studyID uuid.UUID, index int) *types.StudyUnit {
	tb.Helper()
	u := &types.StudyUnit{
		ID:               uuid.New(),
		StudyID:          studyID,
		UnitIndex:        index,
		Type:             "devotional",
		Scope:            "single-day",
		Title:            "unit",
		PrimaryPassages:  datatypes.JSONSlice[string]{"Psalm 23"},
		EstimatedMinutes: 15,
	}
	if err := tx.WithContext(ctx).Omit("Sessions", "Study").Create(u).Error; err != nil {
		tb.Fatalf("seed study unit: %v", err)
	}
	return u
}

func SeedStudySession(tb testing.TB, ctx context.Context, tx *gorm.DB, unitID uuid.UUID, index int) *types.StudySession {
	tb.Helper()
	s := &types.StudySession{
		ID:               uuid.New(),
		UnitID:           unitID,
		SessionIndex:     index,
		Title:            "session",
		EstimatedMinutes: 15,
		Passages:         datatypes.JSONSlice[string]{"Psalm 23:1-3"},
		Context:          "context",
		KeyInsights:      datatypes.JSONSlice[string]{"a", "b"},
		PrayerPrompt:     "pray",
		ActionStep:       "act",
	}
	if err := tx.WithContext(ctx).Omit("Unit").Create(s).Error; err != nil {
		tb.Fatalf("seed study session: %v", err)
	}
	return s
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
