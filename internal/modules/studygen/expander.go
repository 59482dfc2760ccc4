package studygen

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/studyforge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
)

// Expander generates the sessions of one unit. Sessions run concurrently; a
// failing session never cancels its siblings.
type Expander struct {
	log *logger.Logger
}

func NewExpander(log *logger.Logger) *Expander {
	return &Expander{log: log.With("stage", "expand")}
}

type sessionAttempt struct {
	sessions []*GeneratedSession
	errs     []error
}

func (a sessionAttempt) failed() int {
	n := 0
	for _, s := range a.sessions {
		if s == nil {
			n++
		}
	}
	return n
}

// Expand returns the validated sessions of unit, ordered by dispatch index. When
// more than half the sessions fail, the whole unit is generated once more and each
// index keeps the retry's session if it validated, else the first attempt's. A unit
// with no validated session yields *UnitGenerationError.
func (e *Expander) Expand(ctx context.Context, gen Generator, prefs Preferences, unit UnitOutline) (ExpandedUnit, error) {
	log := e.log.With(append(ctxutil.LogFields(ctx), "unit_index", unit.Index)...)
	count := SessionCount(unit.Scope)
	if count == 0 {
		return ExpandedUnit{}, &UnitGenerationError{
			UnitIndex: unit.Index,
			Err:       &ValidationError{Schema: schemaPlan, Field: "scope", Reason: "unknown scope " + unit.Scope},
		}
	}

	first := e.attempt(ctx, gen, prefs, unit, count)
	merged := first
	attempts := 1

	if failed := first.failed(); failed*2 > count && ctx.Err() == nil {
		log.Warn("Retrying unit", "failed_sessions", failed, "sessions", count)
		retry := e.attempt(ctx, gen, prefs, unit, count)
		attempts = 2
		merged = sessionAttempt{sessions: make([]*GeneratedSession, count), errs: make([]error, count)}
		for i := 0; i < count; i++ {
			switch {
			case retry.sessions[i] != nil:
				merged.sessions[i] = retry.sessions[i]
			case first.sessions[i] != nil:
				merged.sessions[i] = first.sessions[i]
			default:
				merged.errs[i] = retry.errs[i]
			}
		}
	}

	out := ExpandedUnit{Outline: unit, Attempts: attempts}
	var errs []error
	for i, s := range merged.sessions {
		if s == nil {
			out.Failed = append(out.Failed, i)
			if merged.errs[i] != nil {
				errs = append(errs, merged.errs[i])
			}
			continue
		}
		out.Sessions = append(out.Sessions, *s)
	}

	if len(out.Sessions) == 0 {
		err := &UnitGenerationError{UnitIndex: unit.Index, Attempts: attempts, Err: errors.Join(errs...)}
		log.Error("Unit generation failed", "attempts", attempts, "error", err)
		return out, err
	}
	if len(out.Failed) > 0 {
		log.Warn("Unit generated partially", "attempts", attempts, "missing_sessions", out.Failed)
	}
	return out, nil
}

func (e *Expander) attempt(ctx context.Context, gen Generator, prefs Preferences, unit UnitOutline, count int) sessionAttempt {
	res := sessionAttempt{
		sessions: make([]*GeneratedSession, count),
		errs:     make([]error, count),
	}
	schema := sessionSchema(prefs.IncludeDiscussionQuestions)

	// Plain Group: no shared context, so one failure does not cancel the others.
	var g errgroup.Group
	for i := 0; i < count; i++ {
		g.Go(func() error {
			system, user := sessionPrompts(prefs, unit, i, count)
			raw, err := gen.GenerateStructured(ctx, system, user, schemaSession, schema)
			if err != nil {
				res.errs[i] = err
				return nil
			}
			s, err := decodeSession(raw, i, prefs)
			if err != nil {
				res.errs[i] = err
				return nil
			}
			res.sessions[i] = &s
			return nil
		})
	}
	_ = g.Wait()
	return res
}
