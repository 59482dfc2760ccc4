package studygen

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	studyrepo "github.com/yungbote/studyforge-backend/internal/data/repos/study"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
)

const (
	UnitStatusPersisted = "persisted"
	UnitStatusPartial   = "partial"
	UnitStatusFailed    = "failed"
	UnitStatusSkipped   = "skipped"
	UnitStatusCanceled  = "canceled"
)

// UnitReport is the outcome of one planned unit.
type UnitReport struct {
	UnitIndex         int        `json:"unit_index"`
	Title             string     `json:"title"`
	Status            string     `json:"status"`
	UnitID            *uuid.UUID `json:"unit_id,omitempty"`
	SessionsPlanned   int        `json:"sessions_planned"`
	SessionsPersisted int        `json:"sessions_persisted"`
	Attempts          int        `json:"attempts"`
	ErrorKind         string     `json:"error_kind,omitempty"`
	Error             string     `json:"error,omitempty"`
}

func (r UnitReport) Persisted() bool {
	return r.Status == UnitStatusPersisted || r.Status == UnitStatusPartial
}

// Persister writes the study, its units and their sessions. There is no
// transaction spanning units: each unit row and each session row commits on its own
// and the store's uniqueness constraints reject duplicates.
type Persister struct {
	studies  studyrepo.StudyRepo
	units    studyrepo.StudyUnitRepo
	sessions studyrepo.StudySessionRepo
	metrics  Metrics
	log      *logger.Logger
}

func NewPersister(studies studyrepo.StudyRepo, units studyrepo.StudyUnitRepo, sessions studyrepo.StudySessionRepo, metrics Metrics, log *logger.Logger) *Persister {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Persister{
		studies:  studies,
		units:    units,
		sessions: sessions,
		metrics:  metrics,
		log:      log.With("component", "Persister"),
	}
}

func (p *Persister) CreateStudy(ctx context.Context, prefs Preferences, tags Tags, plan PlanOutline) (*types.Study, error) {
	meta, _ := json.Marshal(map[string]any{
		"translation":   prefs.Translation,
		"reading_level": prefs.ReadingLevel,
		"run_id":        runIDFrom(ctx),
	})
	prefID := prefs.ID
	study := &types.Study{
		ID:           uuid.New(),
		UserID:       prefs.UserID,
		PreferenceID: &prefID,
		Title:        plan.Title,
		Description:  plan.Summary,
		TotalUnits:   len(plan.Units),
		IsActive:     true,
		Tags: datatypes.NewJSONType(types.StudyTags{
			PrimaryTags:      tags.PrimaryTags,
			RelatedTags:      tags.RelatedTags,
			SensitivityFlags: tags.SensitivityFlags,
		}),
		Metadata: datatypes.JSON(meta),
	}
	if _, err := p.studies.Create(ctx, nil, []*types.Study{study}); err != nil {
		p.metrics.IncPersistenceError("study")
		return nil, &PersistenceError{Entity: "study", Err: err}
	}
	return study, nil
}

// PersistUnit writes one expanded unit and then each of its sessions. A failed unit
// insert skips the unit; a failed session insert leaves the unit partial.
func (p *Persister) PersistUnit(ctx context.Context, studyID uuid.UUID, eu ExpandedUnit) UnitReport {
	o := eu.Outline
	log := p.log.With(append(ctxutil.LogFields(ctx), "study_id", studyID, "unit_index", o.Index)...)
	report := UnitReport{
		UnitIndex:       o.Index,
		Title:           o.Title,
		SessionsPlanned: SessionCount(o.Scope),
		Attempts:        eu.Attempts,
	}

	unit := &types.StudyUnit{
		ID:                uuid.New(),
		StudyID:           studyID,
		UnitIndex:         o.Index,
		Type:              o.Type,
		Scope:             o.Scope,
		Title:             o.Title,
		PrimaryPassages:   datatypes.JSONSlice[string](o.PrimaryPassages),
		SecondaryPassages: datatypes.JSONSlice[string](o.SecondaryPassages),
		EstimatedMinutes:  o.EstimatedMinutes,
		LearningGoal:      o.LearningGoal,
	}
	if _, err := p.units.Create(ctx, nil, []*types.StudyUnit{unit}); err != nil {
		perr := &PersistenceError{Entity: "unit", UnitIndex: o.Index, Err: err}
		p.metrics.IncPersistenceError("unit")
		log.Error("Unit insert failed; skipping unit", "error", perr)
		report.Status = UnitStatusSkipped
		report.ErrorKind = ErrorKind(perr)
		report.Error = perr.Error()
		return report
	}
	report.UnitID = &unit.ID

	missing := append([]int(nil), eu.Failed...)
	for _, s := range eu.Sessions {
		row := &types.StudySession{
			ID:                  uuid.New(),
			UnitID:              unit.ID,
			SessionIndex:        s.SessionIndex,
			Title:               s.Title,
			EstimatedMinutes:    s.EstimatedMinutes,
			Passages:            datatypes.JSONSlice[string](s.Passages),
			Context:             s.Context,
			KeyInsights:         datatypes.JSONSlice[string](s.KeyInsights),
			ReflectionQuestions: datatypes.JSONSlice[string](s.ReflectionQuestions),
			PrayerPrompt:        s.PrayerPrompt,
			ActionStep:          s.ActionStep,
			MemoryVerse:         s.MemoryVerse,
			CrossReferences:     datatypes.JSONSlice[string](s.CrossReferences),
		}
		if _, err := p.sessions.Create(ctx, nil, []*types.StudySession{row}); err != nil {
			perr := &PersistenceError{Entity: "session", UnitIndex: o.Index, SessionIndex: s.SessionIndex, Err: err}
			p.metrics.IncPersistenceError("session")
			log.Error("Session insert failed", "session_index", s.SessionIndex, "error", perr)
			missing = append(missing, s.SessionIndex)
			continue
		}
		report.SessionsPersisted++
	}

	report.Status = UnitStatusPersisted
	if len(missing) > 0 {
		sort.Ints(missing)
		partial := &PartialUnitError{UnitIndex: o.Index, Planned: report.SessionsPlanned, Missing: missing}
		report.Status = UnitStatusPartial
		report.ErrorKind = ErrorKind(partial)
		report.Error = partial.Error()
		log.Warn("Unit persisted partially", "error", partial)
	}
	return report
}

// MarkEmpty deactivates a study none of whose units persisted.
func (p *Persister) MarkEmpty(ctx context.Context, studyID uuid.UUID) error {
	if err := p.studies.UpdateFields(ctx, nil, studyID, map[string]interface{}{"is_active": false}); err != nil {
		p.metrics.IncPersistenceError("study")
		return &PersistenceError{Entity: "study", Err: fmt.Errorf("mark empty: %w", err)}
	}
	return nil
}

func runIDFrom(ctx context.Context) string {
	if td := ctxutil.GetTraceData(ctx); td != nil {
		return td.RunID
	}
	return ""
}
