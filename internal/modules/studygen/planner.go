package studygen

import (
	"context"

	"github.com/yungbote/studyforge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
)

// Planner produces the unit outline. It is the last stage before anything is
// written, so every failure is fatal and there is no retry.
type Planner struct {
	cfg PlanConfig
	log *logger.Logger
}

func NewPlanner(cfg PlanConfig, log *logger.Logger) *Planner {
	return &Planner{cfg: cfg.Normalized(), log: log.With("stage", "plan")}
}

func (p *Planner) Config() PlanConfig { return p.cfg }

func (p *Planner) Plan(ctx context.Context, gen Generator, prefs Preferences, tags Tags) (PlanOutline, error) {
	log := p.log.With(ctxutil.LogFields(ctx)...)

	system, user := plannerPrompts(prefs, tags, p.cfg)
	raw, err := gen.GenerateStructured(ctx, system, user, schemaPlan, planSchema(p.cfg.Size))
	if err != nil {
		if ce, ok := asConfigurationError(err); ok {
			return PlanOutline{}, ce
		}
		return PlanOutline{}, &PlanningError{Err: err}
	}

	plan, err := decodePlan(raw, p.cfg, prefs)
	if err != nil {
		log.Warn("Planner output rejected", "error", err)
		return PlanOutline{}, &PlanningError{Err: err}
	}
	log.Info("Plan ready", "title", plan.Title, "units", len(plan.Units))
	return plan, nil
}
