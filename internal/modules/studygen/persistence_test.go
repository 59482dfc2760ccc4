package studygen

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studyforge-backend/internal/data/repos/testutil"
)

func expandedUnit(index int, sessions ...int) ExpandedUnit {
	eu := ExpandedUnit{
		Outline: UnitOutline{
			Index:           index,
			Type:            UnitTypeTheme,
			Scope:           ScopeDeepDive3Days,
			Title:           "Rest for the weary",
			PrimaryPassages: []string{"Matthew 11:28-30"},
		},
		Attempts: 1,
	}
	for _, i := range sessions {
		eu.Sessions = append(eu.Sessions, GeneratedSession{
			SessionIndex: i,
			Title:        "s",
			Passages:     []string{"Matthew 11:28"},
			Context:      "c",
			KeyInsights:  []string{"a", "b"},
			PrayerPrompt: "p",
			ActionStep:   "a",
		})
	}
	return eu
}

func TestPersistUnit(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	p := NewPersister(f.studies, f.units, f.sessions, nil, testutil.Logger(t))

	prefs := Preferences{ID: f.prefID, UserID: f.userID, Translation: "ESV"}
	study, err := p.CreateStudy(ctx, prefs, Tags{PrimaryTags: []string{"rest"}}, PlanOutline{
		Title: "Rest",
		Units: make([]UnitOutline, 4),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, study.TotalUnits)
	assert.True(t, study.IsActive)

	r := p.PersistUnit(ctx, study.ID, expandedUnit(0, 0, 1, 2))
	assert.Equal(t, UnitStatusPersisted, r.Status)
	assert.Equal(t, 3, r.SessionsPersisted)
	require.NotNil(t, r.UnitID)

	// A session that never validated leaves the unit partial.
	eu := expandedUnit(1, 0, 2)
	eu.Failed = []int{1}
	r = p.PersistUnit(ctx, study.ID, eu)
	assert.Equal(t, UnitStatusPartial, r.Status)
	assert.Equal(t, "partial_unit", r.ErrorKind)
	assert.True(t, r.Persisted())

	// The store rejects a second session with the same index; the unit keeps the first.
	r = p.PersistUnit(ctx, study.ID, expandedUnit(2, 0, 0, 1))
	assert.Equal(t, UnitStatusPartial, r.Status)
	assert.Equal(t, 2, r.SessionsPersisted)

	// Same unit index again: the unit is skipped and nothing else changes.
	r = p.PersistUnit(ctx, study.ID, expandedUnit(0, 0))
	assert.Equal(t, UnitStatusSkipped, r.Status)
	assert.Equal(t, "persistence", r.ErrorKind)
	assert.False(t, r.Persisted())

	n, err := f.units.CountByStudyID(ctx, nil, study.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	require.NoError(t, p.MarkEmpty(ctx, study.ID))
	got, err := f.studies.GetByIDAndUserID(ctx, nil, study.ID, f.userID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	var pe *PersistenceError
	require.ErrorAs(t, p.MarkEmpty(ctx, uuid.New()), &pe)
}
