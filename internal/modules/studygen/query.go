package studygen

import (
	"context"
	"errors"

	"github.com/google/uuid"

	studyrepo "github.com/yungbote/studyforge-backend/internal/data/repos/study"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	pkgerrors "github.com/yungbote/studyforge-backend/internal/pkg/errors"
)

type UnitView struct {
	*types.StudyUnit
	Sessions []*types.StudySession `json:"sessions"`
}

// Completeness compares what was planned with what is stored.
type Completeness struct {
	UnitsPlanned      int  `json:"units_planned"`
	UnitsPersisted    int  `json:"units_persisted"`
	SessionsPlanned   int  `json:"sessions_planned"`
	SessionsPersisted int  `json:"sessions_persisted"`
	Partial           bool `json:"partial"`
}

type StudyView struct {
	Study        *types.Study              `json:"study"`
	Units        []UnitView                `json:"units"`
	Completeness Completeness              `json:"completeness"`
	LatestRun    *types.StudyGenerationRun `json:"latest_run,omitempty"`
}

// Query serves the read side: a stored study with its units and sessions, and run
// records.
type Query struct {
	studies  studyrepo.StudyRepo
	units    studyrepo.StudyUnitRepo
	sessions studyrepo.StudySessionRepo
	runs     studyrepo.StudyGenerationRunRepo
}

func NewQuery(studies studyrepo.StudyRepo, units studyrepo.StudyUnitRepo, sessions studyrepo.StudySessionRepo, runs studyrepo.StudyGenerationRunRepo) *Query {
	return &Query{studies: studies, units: units, sessions: sessions, runs: runs}
}

func (q *Query) GetStudy(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*StudyView, error) {
	study, err := q.studies.GetByIDAndUserID(ctx, nil, id, userID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, &NotFoundError{Resource: "study", ID: id.String()}
		}
		return nil, err
	}
	units, err := q.units.GetByStudyIDs(ctx, nil, []uuid.UUID{study.ID})
	if err != nil {
		return nil, err
	}
	unitIDs := make([]uuid.UUID, 0, len(units))
	for _, u := range units {
		unitIDs = append(unitIDs, u.ID)
	}
	sessions, err := q.sessions.GetByUnitIDs(ctx, nil, unitIDs)
	if err != nil {
		return nil, err
	}
	byUnit := make(map[uuid.UUID][]*types.StudySession, len(units))
	for _, s := range sessions {
		byUnit[s.UnitID] = append(byUnit[s.UnitID], s)
	}

	view := &StudyView{
		Study: study,
		Units: make([]UnitView, 0, len(units)),
		Completeness: Completeness{
			UnitsPlanned:   study.TotalUnits,
			UnitsPersisted: len(units),
			Partial:        len(units) < study.TotalUnits,
		},
	}
	for _, u := range units {
		ss := byUnit[u.ID]
		if ss == nil {
			ss = []*types.StudySession{}
		}
		planned := SessionCount(u.Scope)
		view.Completeness.SessionsPlanned += planned
		view.Completeness.SessionsPersisted += len(ss)
		if len(ss) < planned {
			view.Completeness.Partial = true
		}
		view.Units = append(view.Units, UnitView{StudyUnit: u, Sessions: ss})
	}

	if q.runs != nil {
		run, err := q.runs.GetLatestByStudyID(ctx, nil, study.ID)
		if err == nil {
			view.LatestRun = run
		} else if !errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, err
		}
	}
	return view, nil
}

func (q *Query) GetRun(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*types.StudyGenerationRun, error) {
	run, err := q.runs.GetByIDAndUserID(ctx, nil, id, userID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, &NotFoundError{Resource: "generation run", ID: id.String()}
		}
		return nil, err
	}
	return run, nil
}
