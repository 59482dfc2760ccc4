package studygen

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	studyrepo "github.com/yungbote/studyforge-backend/internal/data/repos/study"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
	"github.com/yungbote/studyforge-backend/internal/realtime"
)

// Notifier publishes progress events. bus.Bus satisfies it.
type Notifier interface {
	Publish(ctx context.Context, msg realtime.Message) error
}

// runTracker owns a run's state machine and mirrors it to the run row and the
// user's event channel. Row writes and events are best effort: a failure is logged
// and never changes the run's outcome.
type runTracker struct {
	id       uuid.UUID
	userID   uuid.UUID
	machine  *Machine
	repo     studyrepo.StudyGenerationRunRepo
	notifier Notifier
	metrics  Metrics
	log      *logger.Logger
	started  time.Time
	recorded bool
}

func (t *runTracker) start(ctx context.Context, preferenceID uuid.UUID) {
	if t.repo == nil {
		return
	}
	row := &types.StudyGenerationRun{
		ID:           t.id,
		UserID:       t.userID,
		PreferenceID: preferenceID,
		State:        string(StateIdle),
		Status:       types.RunStatusRunning,
		StartedAt:    t.started.UTC(),
	}
	if _, err := t.repo.Create(ctxutil.Detached(ctx), nil, []*types.StudyGenerationRun{row}); err != nil {
		t.log.Warn("Failed to record generation run", "error", err)
		return
	}
	t.recorded = true
}

func (t *runTracker) enter(ctx context.Context, next State, fields map[string]interface{}) error {
	prev := t.machine.State()
	spent, err := t.machine.Transition(next)
	if err != nil {
		return err
	}
	t.metrics.ObserveStage(string(prev), spent)
	t.log.Debug("Run state changed", "from", prev, "to", next, "elapsed_ms", spent.Milliseconds())

	updates := map[string]interface{}{"state": string(next)}
	for k, v := range fields {
		updates[k] = v
	}
	t.update(ctx, updates)
	t.publish(ctx, realtime.EventStudyGenerationState, map[string]any{
		"run_id": t.id,
		"state":  next,
	})
	return nil
}

func (t *runTracker) unitOutcome(ctx context.Context, report UnitReport, unitsPersisted int, sessionsPersisted int) {
	t.metrics.IncUnitOutcome(report.Status)
	t.update(ctx, map[string]interface{}{
		"units_persisted":    unitsPersisted,
		"sessions_persisted": sessionsPersisted,
		"heartbeat_at":       time.Now().UTC(),
	})
	t.publish(ctx, realtime.EventStudyUnitOutcome, map[string]any{
		"run_id":             t.id,
		"unit_index":         report.UnitIndex,
		"status":             report.Status,
		"sessions_persisted": report.SessionsPersisted,
	})
}

func (t *runTracker) complete(ctx context.Context, res *Result, reports []UnitReport) {
	if _, err := t.machine.Transition(StateCompleted); err != nil {
		t.log.Error("Run completion rejected", "error", err)
	}
	outcome := "completed"
	if res.Partial {
		outcome = "partial"
	}
	t.metrics.ObserveRun(outcome, time.Since(t.started))

	sessions := 0
	for _, r := range reports {
		sessions += r.SessionsPersisted
	}
	now := time.Now().UTC()
	t.update(ctx, map[string]interface{}{
		"state":              string(StateCompleted),
		"status":             types.RunStatusSucceeded,
		"units_persisted":    res.UnitsPersisted,
		"sessions_persisted": sessions,
		"report":             reportJSON(reports),
		"finished_at":        now,
	})
	t.publish(ctx, realtime.EventStudyGenerationDone, res)
}

func (t *runTracker) fail(ctx context.Context, runErr error, studyID *uuid.UUID, reports []UnitReport) {
	if _, err := t.machine.Transition(StateFailed); err != nil {
		t.log.Error("Run failure transition rejected", "error", err)
	}
	t.metrics.ObserveRun("failed", time.Since(t.started))

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"state":       string(StateFailed),
		"status":      types.RunStatusFailed,
		"error":       runErr.Error(),
		"error_kind":  ErrorKind(runErr),
		"finished_at": now,
	}
	if studyID != nil {
		updates["study_id"] = *studyID
	}
	if reports != nil {
		updates["report"] = reportJSON(reports)
	}
	t.update(ctx, updates)
	t.publish(ctx, realtime.EventStudyGenerationFailed, map[string]any{
		"run_id":     t.id,
		"error":      runErr.Error(),
		"error_kind": ErrorKind(runErr),
	})
}

func (t *runTracker) update(ctx context.Context, updates map[string]interface{}) {
	if t.repo == nil || !t.recorded {
		return
	}
	updates["updated_at"] = time.Now().UTC()
	if err := t.repo.UpdateFields(ctxutil.Detached(ctx), nil, t.id, updates); err != nil {
		t.log.Warn("Failed to update generation run", "error", err)
	}
}

func (t *runTracker) publish(ctx context.Context, event realtime.Event, data any) {
	if t.notifier == nil {
		return
	}
	msg := realtime.Message{Channel: realtime.UserChannel(t.userID), Event: event, Data: data}
	if err := t.notifier.Publish(ctxutil.Detached(ctx), msg); err != nil {
		t.log.Warn("Failed to publish run event", "event", event, "error", err)
	}
}

func reportJSON(reports []UnitReport) datatypes.JSON {
	raw, err := json.Marshal(map[string]any{"units": reports})
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}
