package studygen

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	studyrepo "github.com/yungbote/studyforge-backend/internal/data/repos/study"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
)

const tracerName = "github.com/yungbote/studyforge-backend/internal/modules/studygen"

type Config struct {
	Plan PlanConfig
	// UnitConcurrency bounds how many units expand at once.
	UnitConcurrency int
	// PersistConcurrency bounds how many validated units are written at once.
	PersistConcurrency int
	// MaxInflight bounds simultaneous generation calls within one run.
	MaxInflight int
	// RunTimeout, when positive, cuts a run off; rows already written stay.
	RunTimeout time.Duration
}

func (c Config) normalized() Config {
	c.Plan = c.Plan.Normalized()
	if c.MaxInflight <= 0 {
		c.MaxInflight = 10
	}
	if c.UnitConcurrency <= 0 {
		c.UnitConcurrency = c.MaxInflight
	}
	if c.PersistConcurrency <= 0 {
		c.PersistConcurrency = 4
	}
	return c
}

type Deps struct {
	Generator   Generator
	Preferences *PreferenceReader
	Persister   *Persister
	// Runs and Notifier are optional.
	Runs       studyrepo.StudyGenerationRunRepo
	Notifier   Notifier
	Metrics    Metrics
	Limiter    *rate.Limiter
	Vocabulary *Vocabulary
	Log        *logger.Logger
}

type Request struct {
	PreferenceID string `json:"preference_id"`
	UserID       string `json:"user_id"`
}

func (r Request) parse() (preferenceID uuid.UUID, userID uuid.UUID, err error) {
	parse := func(field, raw string) (uuid.UUID, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return uuid.Nil, &InvalidInputError{Field: field, Reason: "is required"}
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			return uuid.Nil, &InvalidInputError{Field: field, Reason: "must be a UUID"}
		}
		return id, nil
	}
	if preferenceID, err = parse("preference_id", r.PreferenceID); err != nil {
		return
	}
	userID, err = parse("user_id", r.UserID)
	return
}

// Result is the response for one run. Success stays true when some units failed;
// Partial and the unit counts tell the caller how complete the study is.
type Result struct {
	Success        bool       `json:"success"`
	StudyID        *uuid.UUID `json:"study_id,omitempty"`
	Title          string     `json:"title,omitempty"`
	Error          string     `json:"error,omitempty"`
	RunID          uuid.UUID  `json:"run_id"`
	UnitsPlanned   int        `json:"units_planned"`
	UnitsPersisted int        `json:"units_persisted"`
	Partial        bool       `json:"partial"`

	Units []UnitReport `json:"-"`
}

type Orchestrator struct {
	cfg        Config
	gen        Generator
	reader     *PreferenceReader
	persister  *Persister
	classifier *Classifier
	planner    *Planner
	expander   *Expander
	runs       studyrepo.StudyGenerationRunRepo
	notifier   Notifier
	metrics    Metrics
	limiter    *rate.Limiter
	log        *logger.Logger
}

func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	cfg = cfg.normalized()
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	log := deps.Log.With("service", "StudyGeneration")
	return &Orchestrator{
		cfg:        cfg,
		gen:        deps.Generator,
		reader:     deps.Preferences,
		persister:  deps.Persister,
		classifier: NewClassifier(deps.Vocabulary, log),
		planner:    NewPlanner(cfg.Plan, log),
		expander:   NewExpander(log),
		runs:       deps.Runs,
		notifier:   deps.Notifier,
		metrics:    metrics,
		limiter:    deps.Limiter,
		log:        log,
	}
}

// Run executes one generation. Failures up to and including planning return an
// error with no rows written. After the study row exists, unit and session
// failures are recorded per unit and the run completes if at least one unit
// persisted. Every call creates a new study.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	preferenceID, userID, err := req.parse()
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, err
	}

	runID := uuid.New()
	ctx = ctxutil.WithRunID(ctxutil.Default(ctx), runID.String())
	ctx, span := otel.Tracer(tracerName).Start(ctx, "studygen.Run")
	span.SetAttributes(attribute.String("run_id", runID.String()))
	defer span.End()
	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	log := o.log.With(append(ctxutil.LogFields(ctx), "user_id", userID, "preference_id", preferenceID)...)
	t := &runTracker{
		id:       runID,
		userID:   userID,
		machine:  NewMachine(),
		repo:     o.runs,
		notifier: o.notifier,
		metrics:  o.metrics,
		log:      log,
		started:  time.Now(),
	}
	t.start(ctx, preferenceID)
	res := &Result{RunID: runID}

	fail := func(err error, study *types.Study, reports []UnitReport) (*Result, error) {
		var studyID *uuid.UUID
		if study != nil {
			studyID = &study.ID
			res.StudyID = studyID
			res.Title = study.Title
		}
		res.Success = false
		res.Error = err.Error()
		res.Units = reports
		state := t.machine.State()
		if state.BeforeStudy() != (studyID == nil) {
			log.Warn("Failure state and study row disagree", "state", state, "study_exists", studyID != nil)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		t.fail(ctx, err, studyID, reports)
		log.Error("Study generation failed",
			"state", state,
			"error_kind", ErrorKind(err),
			"pre_study_stage", IsFatalBeforeStudy(err),
			"error", err,
		)
		return res, err
	}

	gated := newGatedGenerator(o.gen, NewGate(o.cfg.MaxInflight, o.limiter), o.metrics)

	if err := t.enter(ctx, StateFetchingPreferences, nil); err != nil {
		return fail(err, nil, nil)
	}
	prefs, err := o.reader.Read(ctx, preferenceID, userID)
	if err != nil {
		return fail(err, nil, nil)
	}

	if err := t.enter(ctx, StateClassifying, nil); err != nil {
		return fail(err, nil, nil)
	}
	tags, err := o.classifier.Classify(ctx, gated.forStage("classify"), prefs)
	if err != nil {
		return fail(err, nil, nil)
	}

	if err := t.enter(ctx, StatePlanning, nil); err != nil {
		return fail(err, nil, nil)
	}
	plan, err := o.planner.Plan(ctx, gated.forStage("plan"), prefs, tags)
	if err != nil {
		return fail(err, nil, nil)
	}
	res.UnitsPlanned = len(plan.Units)

	if err := t.enter(ctx, StatePersistingStudy, map[string]interface{}{"units_planned": len(plan.Units)}); err != nil {
		return fail(err, nil, nil)
	}
	study, err := o.persister.CreateStudy(ctx, prefs, tags, plan)
	if err != nil {
		return fail(err, nil, nil)
	}
	res.StudyID = &study.ID
	res.Title = study.Title
	log = log.With("study_id", study.ID)
	log.Info("Study created", "units_planned", len(plan.Units))

	if err := t.enter(ctx, StateExpandingUnits, map[string]interface{}{"study_id": study.ID}); err != nil {
		return fail(err, study, nil)
	}
	reports, err := o.expandAndPersist(ctx, t, gated.forStage("expand"), prefs, study.ID, plan)
	if err != nil {
		return fail(err, study, reports)
	}

	persisted, partial := 0, false
	for _, r := range reports {
		if r.Persisted() {
			persisted++
		}
		if r.Status != UnitStatusPersisted {
			partial = true
		}
	}
	res.UnitsPersisted = persisted
	res.Units = reports

	if persisted == 0 {
		if mErr := o.persister.MarkEmpty(ctxutil.Detached(ctx), study.ID); mErr != nil {
			log.Error("Failed to deactivate empty study", "error", mErr)
		}
		return fail(&EmptyStudyError{StudyID: study.ID, Planned: len(plan.Units), Err: ctx.Err()}, study, reports)
	}

	res.Success = true
	res.Partial = partial
	span.SetAttributes(
		attribute.Int("units_planned", res.UnitsPlanned),
		attribute.Int("units_persisted", res.UnitsPersisted),
		attribute.Bool("partial", partial),
	)
	t.complete(ctx, res, reports)
	log.Info("Study generation completed",
		"units_planned", res.UnitsPlanned,
		"units_persisted", res.UnitsPersisted,
		"partial", res.Partial,
		"elapsed_ms", time.Since(t.started).Milliseconds(),
	)
	return res, nil
}

// expandAndPersist fans out unit expansion and streams each validated unit to the
// persistence workers. reports is indexed by unit index.
func (o *Orchestrator) expandAndPersist(ctx context.Context, t *runTracker, gen Generator, prefs Preferences, studyID uuid.UUID, plan PlanOutline) ([]UnitReport, error) {
	reports := make([]UnitReport, len(plan.Units))
	ready := make(chan ExpandedUnit)

	var (
		mu                sync.Mutex
		unitsPersisted    int
		sessionsPersisted int
	)
	record := func(r UnitReport) {
		reports[r.UnitIndex] = r
		mu.Lock()
		if r.Persisted() {
			unitsPersisted++
			sessionsPersisted += r.SessionsPersisted
		}
		u, s := unitsPersisted, sessionsPersisted
		mu.Unlock()
		t.unitOutcome(ctx, r, u, s)
	}

	var persist errgroup.Group
	for w := 0; w < o.cfg.PersistConcurrency; w++ {
		persist.Go(func() error {
			for eu := range ready {
				record(o.persister.PersistUnit(ctx, studyID, eu))
			}
			return nil
		})
	}

	var expand errgroup.Group
	expand.SetLimit(o.cfg.UnitConcurrency)
	for _, unit := range plan.Units {
		expand.Go(func() error {
			eu, err := o.expander.Expand(ctx, gen, prefs, unit)
			if err != nil {
				status := UnitStatusFailed
				if ctx.Err() != nil {
					status = UnitStatusCanceled
				}
				record(UnitReport{
					UnitIndex:       unit.Index,
					Title:           unit.Title,
					Status:          status,
					SessionsPlanned: SessionCount(unit.Scope),
					Attempts:        eu.Attempts,
					ErrorKind:       ErrorKind(err),
					Error:           err.Error(),
				})
				return nil
			}
			select {
			case ready <- eu:
			case <-ctx.Done():
				record(UnitReport{
					UnitIndex:       unit.Index,
					Title:           unit.Title,
					Status:          UnitStatusCanceled,
					SessionsPlanned: SessionCount(unit.Scope),
					Attempts:        eu.Attempts,
					ErrorKind:       ErrorKind(ctx.Err()),
					Error:           ctx.Err().Error(),
				})
			}
			return nil
		})
	}
	_ = expand.Wait()
	close(ready)

	if err := t.enter(ctx, StatePersistingUnits, nil); err != nil {
		_ = persist.Wait()
		return reports, err
	}
	_ = persist.Wait()
	return reports, nil
}

// IsFatalBeforeStudy reports whether err came from a stage that runs before any row
// is written.
func IsFatalBeforeStudy(err error) bool {
	var (
		iie *InvalidInputError
		nfe *NotFoundError
		ce  *ConfigurationError
		cle *ClassificationError
		ple *PlanningError
	)
	return errors.As(err, &iie) || errors.As(err, &nfe) || errors.As(err, &ce) || errors.As(err, &cle) || errors.As(err, &ple)
}
