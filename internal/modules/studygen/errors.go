package studygen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/yungbote/studyforge-backend/internal/pkg/errors"
)

// ValidationError reports generated output that does not satisfy its schema.
type ValidationError struct {
	Schema string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: invalid output: %s", e.Schema, e.Reason)
	}
	return fmt.Sprintf("%s: invalid output: %s: %s", e.Schema, e.Field, e.Reason)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == pkgerrors.ErrNotFound }

// ConfigurationError reports a generation backend that cannot be used as configured.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("generation backend misconfigured: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == pkgerrors.ErrMisconfigured }

// PersistenceError reports a failed store write. Entity is "study", "unit" or "session".
type PersistenceError struct {
	Entity       string
	UnitIndex    int
	SessionIndex int
	Err          error
}

func (e *PersistenceError) Error() string {
	switch e.Entity {
	case "unit":
		return fmt.Sprintf("persist unit %d: %v", e.UnitIndex, e.Err)
	case "session":
		return fmt.Sprintf("persist session %d of unit %d: %v", e.SessionIndex, e.UnitIndex, e.Err)
	default:
		return fmt.Sprintf("persist %s: %v", e.Entity, e.Err)
	}
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PartialUnitError records a unit that persisted with fewer sessions than planned.
type PartialUnitError struct {
	UnitIndex int
	Planned   int
	Missing   []int
}

func (e *PartialUnitError) Error() string {
	idx := make([]string, 0, len(e.Missing))
	for _, i := range e.Missing {
		idx = append(idx, fmt.Sprint(i))
	}
	return fmt.Sprintf("unit %d: %d of %d sessions missing (%s)", e.UnitIndex, len(e.Missing), e.Planned, strings.Join(idx, ","))
}

type ClassificationError struct {
	Attempts int
	Err      error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string { return fmt.Sprintf("planning failed: %v", e.Err) }

func (e *PlanningError) Unwrap() error { return e.Err }

// UnitGenerationError records a unit for which no session validated.
type UnitGenerationError struct {
	UnitIndex int
	Attempts  int
	Err       error
}

func (e *UnitGenerationError) Error() string {
	return fmt.Sprintf("unit %d: no sessions generated after %d attempt(s): %v", e.UnitIndex, e.Attempts, e.Err)
}

func (e *UnitGenerationError) Unwrap() error { return e.Err }

type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == pkgerrors.ErrInvalidArgument }

// EmptyStudyError is returned when a study row exists but none of its units persisted.
// Err is the context error when the run was cut off.
type EmptyStudyError struct {
	StudyID uuid.UUID
	Planned int
	Err     error
}

func (e *EmptyStudyError) Error() string {
	msg := fmt.Sprintf("study %s is empty: 0 of %d units persisted", e.StudyID, e.Planned)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EmptyStudyError) Unwrap() error { return e.Err }

// asConfigurationError wraps err when it reports a misconfigured backend.
func asConfigurationError(err error) (*ConfigurationError, bool) {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return ce, true
	}
	if errors.Is(err, pkgerrors.ErrMisconfigured) {
		return &ConfigurationError{Err: err}, true
	}
	return nil, false
}

// ErrorKind names the taxonomy entry for err, for run records and metrics.
func ErrorKind(err error) string {
	var (
		ve  *ValidationError
		nfe *NotFoundError
		ce  *ConfigurationError
		pe  *PersistenceError
		pue *PartialUnitError
		cle *ClassificationError
		ple *PlanningError
		uge *UnitGenerationError
		iie *InvalidInputError
		ese *EmptyStudyError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &iie):
		return "invalid_input"
	case errors.As(err, &nfe):
		return "not_found"
	case errors.As(err, &ce):
		return "configuration"
	case errors.As(err, &cle):
		return "classification"
	case errors.As(err, &ple):
		return "planning"
	case errors.As(err, &ese):
		return "empty_study"
	case errors.As(err, &uge):
		return "unit_generation"
	case errors.As(err, &pue):
		return "partial_unit"
	case errors.As(err, &pe):
		return "persistence"
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
