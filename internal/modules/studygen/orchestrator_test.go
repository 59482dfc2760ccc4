package studygen

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/studyforge-backend/internal/domain"
	pkgerrors "github.com/yungbote/studyforge-backend/internal/pkg/errors"
	"github.com/yungbote/studyforge-backend/internal/realtime"
)

func happyGenerator(t *testing.T) generateFunc {
	return func(_ context.Context, schemaName string, user string) (string, error) {
		switch schemaName {
		case schemaTags:
			return tagsJSON(t), nil
		case schemaPlan:
			return planJSON(t, 10, 2, 5, 8), nil
		default:
			return sessionJSON(t, user), nil
		}
	}
}

func TestRunCompletes(t *testing.T) {
	f := newPipelineFixture(t)
	gen := newFakeGenerator(happyGenerator(t))

	res, err := f.orchestrator(t, Config{}, gen).Run(context.Background(), f.request())
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.StudyID)
	assert.Equal(t, "Hope in Anxious Seasons", res.Title)
	assert.Equal(t, 10, res.UnitsPlanned)
	assert.Equal(t, 10, res.UnitsPersisted)
	assert.False(t, res.Partial)

	assert.Equal(t, 1, gen.Calls(schemaTags))
	assert.Equal(t, 1, gen.Calls(schemaPlan))
	// 7 single-day + 3-day + 2-day + 3-day
	assert.Equal(t, 7+3+2+3, gen.Calls(schemaSession))

	ctx := context.Background()
	units, err := f.units.GetByStudyIDs(ctx, nil, []uuid.UUID{*res.StudyID})
	require.NoError(t, err)
	require.Len(t, units, 10)
	unitIDs := make([]uuid.UUID, 0, len(units))
	for i, u := range units {
		assert.Equal(t, i, u.UnitIndex)
		unitIDs = append(unitIDs, u.ID)
	}
	sessions, err := f.sessions.GetByUnitIDs(ctx, nil, unitIDs)
	require.NoError(t, err)
	assert.Len(t, sessions, 15)

	run, err := f.runs.GetByIDAndUserID(ctx, nil, res.RunID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, string(StateCompleted), run.State)
	assert.Equal(t, types.RunStatusSucceeded, run.Status)
	assert.Equal(t, 10, run.UnitsPersisted)
	assert.Equal(t, 15, run.SessionsPersisted)

	events := f.notifier.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, realtime.EventStudyGenerationDone, events[len(events)-1])
}

// One unit never produces a valid session; the other nine are kept.
func TestRunKeepsSiblingsWhenOneUnitFails(t *testing.T) {
	f := newPipelineFixture(t)
	base := happyGenerator(t)
	gen := newFakeGenerator(func(ctx context.Context, schemaName string, user string) (string, error) {
		if schemaName == schemaSession && unitPrompt(user, 4) {
			return "", errors.New("upstream 500")
		}
		return base(ctx, schemaName, user)
	})

	res, err := f.orchestrator(t, Config{}, gen).Run(context.Background(), f.request())
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, res.Partial)
	assert.Equal(t, 9, res.UnitsPersisted)

	ctx := context.Background()
	study, err := f.studies.GetByIDAndUserID(ctx, nil, *res.StudyID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 10, study.TotalUnits)
	assert.True(t, study.IsActive)

	n, err := f.units.CountByStudyID(ctx, nil, study.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 9, n)

	units, err := f.units.GetByStudyIDs(ctx, nil, []uuid.UUID{study.ID})
	require.NoError(t, err)
	for _, u := range units {
		assert.NotEqual(t, 4, u.UnitIndex)
	}

	require.Len(t, res.Units, 10)
	assert.Equal(t, UnitStatusFailed, res.Units[4].Status)
	assert.Equal(t, "unit_generation", res.Units[4].ErrorKind)
	assert.Equal(t, 2, res.Units[4].Attempts)
}

// Classifier output missing a required key twice stops the run before any write.
func TestRunClassifierFailureWritesNothing(t *testing.T) {
	f := newPipelineFixture(t)
	gen := newFakeGenerator(func(_ context.Context, schemaName string, _ string) (string, error) {
		if schemaName == schemaTags {
			return `{"primary_tags":["hope"],"related_tags":[]}`, nil
		}
		t.Errorf("unexpected %s call", schemaName)
		return "", errors.New("unexpected")
	})

	res, err := f.orchestrator(t, Config{}, gen).Run(context.Background(), f.request())
	require.Error(t, err)
	var ce *ClassificationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2, ce.Attempts)
	assert.False(t, res.Success)
	assert.Nil(t, res.StudyID)
	assert.NotEmpty(t, res.Error)

	assert.Equal(t, 2, gen.Calls(schemaTags))
	assert.Equal(t, 0, gen.Calls(schemaPlan))
	assert.EqualValues(t, 0, f.studyCount(t))

	run, err := f.runs.GetByIDAndUserID(context.Background(), nil, res.RunID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusFailed, run.Status)
	assert.Equal(t, "classification", run.ErrorKind)
}

func TestRunPlanningFailureWritesNothing(t *testing.T) {
	f := newPipelineFixture(t)
	gen := newFakeGenerator(func(_ context.Context, schemaName string, _ string) (string, error) {
		if schemaName == schemaTags {
			return tagsJSON(t), nil
		}
		return planJSON(t, 9, 1, 2, 3), nil
	})

	_, err := f.orchestrator(t, Config{}, gen).Run(context.Background(), f.request())
	var pe *PlanningError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, gen.Calls(schemaPlan))
	assert.Equal(t, 0, gen.Calls(schemaSession))
	assert.EqualValues(t, 0, f.studyCount(t))
}

// Sessions complete in random order but rows carry dispatch indices.
func TestRunSessionIndicesFollowDispatchOrder(t *testing.T) {
	f := newPipelineFixture(t)
	gen := newFakeGenerator(func(_ context.Context, schemaName string, user string) (string, error) {
		switch schemaName {
		case schemaTags:
			return tagsJSON(t), nil
		case schemaPlan:
			return planJSON(t, 1, 0), nil
		default:
			time.Sleep(time.Duration(rand.IntN(20)) * time.Millisecond)
			return sessionJSON(t, user), nil
		}
	})

	cfg := Config{Plan: PlanConfig{Size: 1, DeepDiveUnits: 1}}
	res, err := f.orchestrator(t, cfg, gen).Run(context.Background(), f.request())
	require.NoError(t, err)
	require.True(t, res.Success)

	ctx := context.Background()
	units, err := f.units.GetByStudyIDs(ctx, nil, []uuid.UUID{*res.StudyID})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, ScopeDeepDive3Days, units[0].Scope)

	sessions, err := f.sessions.GetByUnitIDs(ctx, nil, []uuid.UUID{units[0].ID})
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	for i, s := range sessions {
		assert.Equal(t, i, s.SessionIndex)
		assert.Equal(t, []string{"Session 1", "Session 2", "Session 3"}[i], s.Title)
	}
}

func TestRunEmptyStudy(t *testing.T) {
	f := newPipelineFixture(t)
	base := happyGenerator(t)
	gen := newFakeGenerator(func(ctx context.Context, schemaName string, user string) (string, error) {
		if schemaName == schemaSession {
			return `{"title":""}`, nil
		}
		return base(ctx, schemaName, user)
	})

	res, err := f.orchestrator(t, Config{}, gen).Run(context.Background(), f.request())
	var ese *EmptyStudyError
	require.ErrorAs(t, err, &ese)
	assert.False(t, res.Success)
	require.NotNil(t, res.StudyID)
	assert.Equal(t, *res.StudyID, ese.StudyID)
	assert.Equal(t, 10, ese.Planned)

	study, err := f.studies.GetByIDAndUserID(context.Background(), nil, *res.StudyID, f.userID)
	require.NoError(t, err)
	assert.False(t, study.IsActive)

	run, err := f.runs.GetByIDAndUserID(context.Background(), nil, res.RunID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "empty_study", run.ErrorKind)
	require.NotNil(t, run.StudyID)
	assert.Equal(t, study.ID, *run.StudyID)
}

func TestRunRejectsInvalidInput(t *testing.T) {
	f := newPipelineFixture(t)
	gen := newFakeGenerator(happyGenerator(t))
	o := f.orchestrator(t, Config{}, gen)

	cases := []Request{
		{PreferenceID: "", UserID: f.userID.String()},
		{PreferenceID: "not-a-uuid", UserID: f.userID.String()},
		{PreferenceID: f.prefID.String(), UserID: ""},
		{PreferenceID: f.prefID.String(), UserID: uuid.Nil.String()},
	}
	for _, req := range cases {
		res, err := o.Run(context.Background(), req)
		var iie *InvalidInputError
		require.ErrorAs(t, err, &iie, "request %+v", req)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidArgument)
		assert.False(t, res.Success)
	}
	assert.Equal(t, 0, gen.Calls(schemaTags))
}

func TestRunPreferenceNotFound(t *testing.T) {
	f := newPipelineFixture(t)
	gen := newFakeGenerator(happyGenerator(t))
	o := f.orchestrator(t, Config{}, gen)

	_, err := o.Run(context.Background(), Request{PreferenceID: uuid.NewString(), UserID: f.userID.String()})
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	// Another user's preference is invisible.
	_, err = o.Run(context.Background(), Request{PreferenceID: f.prefID.String(), UserID: uuid.NewString()})
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, 0, gen.Calls(schemaTags))
}

func TestRunCreatesNewStudyEachTime(t *testing.T) {
	f := newPipelineFixture(t)
	o := f.orchestrator(t, Config{}, newFakeGenerator(happyGenerator(t)))

	first, err := o.Run(context.Background(), f.request())
	require.NoError(t, err)
	second, err := o.Run(context.Background(), f.request())
	require.NoError(t, err)
	assert.NotEqual(t, *first.StudyID, *second.StudyID)
	assert.EqualValues(t, 2, f.studyCount(t))
}

func TestRunBoundsInflightCalls(t *testing.T) {
	f := newPipelineFixture(t)
	base := happyGenerator(t)
	var inflight, peak atomic.Int32
	gen := newFakeGenerator(func(ctx context.Context, schemaName string, user string) (string, error) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		return base(ctx, schemaName, user)
	})

	res, err := f.orchestrator(t, Config{MaxInflight: 3}, gen).Run(context.Background(), f.request())
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRunCanceledBeforeStart(t *testing.T) {
	f := newPipelineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orchestrator(t, Config{}, newFakeGenerator(happyGenerator(t))).Run(ctx, f.request())
	require.Error(t, err)
	assert.EqualValues(t, 0, f.studyCount(t))
}

// sessionsBlockExcept answers sessions for the listed plan positions and holds every
// other session call until the run context ends.
func sessionsBlockExcept(t *testing.T, size int, fast ...int) generateFunc {
	return func(ctx context.Context, schemaName string, user string) (string, error) {
		switch schemaName {
		case schemaTags:
			return tagsJSON(t), nil
		case schemaPlan:
			return planJSON(t, size), nil
		}
		for _, pos := range fast {
			if unitPrompt(user, pos) {
				return sessionJSON(t, user), nil
			}
		}
		<-ctx.Done()
		return "", ctx.Err()
	}
}

func TestRunTimeoutKeepsPersistedUnits(t *testing.T) {
	f := newPipelineFixture(t)
	gen := newFakeGenerator(sessionsBlockExcept(t, 3, 0))
	cfg := Config{Plan: PlanConfig{Size: 3, DeepDiveUnits: 0}, RunTimeout: 500 * time.Millisecond}

	res, err := f.orchestrator(t, cfg, gen).Run(context.Background(), f.request())
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, res.Partial)
	assert.Equal(t, 3, res.UnitsPlanned)
	assert.Equal(t, 1, res.UnitsPersisted)

	require.Len(t, res.Units, 3)
	assert.Equal(t, UnitStatusPersisted, res.Units[0].Status)
	assert.Equal(t, UnitStatusCanceled, res.Units[1].Status)
	assert.Equal(t, UnitStatusCanceled, res.Units[2].Status)

	ctx := context.Background()
	n, err := f.units.CountByStudyID(ctx, nil, *res.StudyID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	study, err := f.studies.GetByIDAndUserID(ctx, nil, *res.StudyID, f.userID)
	require.NoError(t, err)
	assert.True(t, study.IsActive)
}

func TestRunTimeoutWithNoUnitsReportsDeadline(t *testing.T) {
	f := newPipelineFixture(t)
	gen := newFakeGenerator(sessionsBlockExcept(t, 3))
	cfg := Config{Plan: PlanConfig{Size: 3, DeepDiveUnits: 0}, RunTimeout: 300 * time.Millisecond}

	res, err := f.orchestrator(t, cfg, gen).Run(context.Background(), f.request())
	var ese *EmptyStudyError
	require.ErrorAs(t, err, &ese)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "empty_study", ErrorKind(err))
	require.NotNil(t, res.StudyID)

	study, err := f.studies.GetByIDAndUserID(context.Background(), nil, *res.StudyID, f.userID)
	require.NoError(t, err)
	assert.False(t, study.IsActive)
}

// A unit whose row cannot be written is skipped; its siblings still persist.
func TestRunUnitInsertFailureIsScoped(t *testing.T) {
	f := newPipelineFixture(t)
	f.unitWriter = failingUnitRepo{StudyUnitRepo: f.units, failIndex: map[int]bool{3: true}}
	gen := newFakeGenerator(happyGenerator(t))

	res, err := f.orchestrator(t, Config{}, gen).Run(context.Background(), f.request())
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, res.Partial)
	assert.Equal(t, 9, res.UnitsPersisted)

	require.Len(t, res.Units, 10)
	assert.Equal(t, UnitStatusSkipped, res.Units[3].Status)
	assert.Equal(t, "persistence", res.Units[3].ErrorKind)
	for i, r := range res.Units {
		if i != 3 {
			assert.Equal(t, UnitStatusPersisted, r.Status, "unit %d", i)
		}
	}

	units, err := f.units.GetByStudyIDs(context.Background(), nil, []uuid.UUID{*res.StudyID})
	require.NoError(t, err)
	require.Len(t, units, 9)
	for _, u := range units {
		assert.NotEqual(t, 3, u.UnitIndex)
	}
}

func TestRunStudyInsertFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t)
	f.studyWriter = failingStudyRepo{StudyRepo: f.studies}
	gen := newFakeGenerator(happyGenerator(t))

	res, err := f.orchestrator(t, Config{}, gen).Run(context.Background(), f.request())
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "study", pe.Entity)
	assert.Equal(t, "persistence", ErrorKind(err))
	assert.False(t, res.Success)
	assert.Nil(t, res.StudyID)
	assert.Zero(t, gen.Calls(schemaSession))

	assert.EqualValues(t, 0, f.studyCount(t))
	var units int64
	require.NoError(t, f.db.Table("study_unit").Count(&units).Error)
	assert.Zero(t, units)

	run, err := f.runs.GetByIDAndUserID(context.Background(), nil, res.RunID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "persistence", run.ErrorKind)
	assert.Nil(t, run.StudyID)
}
