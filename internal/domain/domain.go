package domain

import (
	"github.com/yungbote/studyforge-backend/internal/domain/study"
)

const (
	RunStatusRunning   = study.RunStatusRunning
	RunStatusSucceeded = study.RunStatusSucceeded
	RunStatusFailed    = study.RunStatusFailed
)

type (
	StudyPreference    = study.Preference
	Study              = study.Study
	StudyTags          = study.Tags
	StudyUnit          = study.StudyUnit
	StudySession       = study.StudySession
	StudyGenerationRun = study.StudyGenerationRun
)

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&StudyPreference{},
		&Study{},
		&StudyUnit{},
		&StudySession{},
		&StudyGenerationRun{},
	}
}
