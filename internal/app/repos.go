package app

import (
	"gorm.io/gorm"

	studyrepo "github.com/yungbote/studyforge-backend/internal/data/repos/study"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
)

type Repos struct {
	Preference studyrepo.PreferenceRepo
	Study      studyrepo.StudyRepo
	Unit       studyrepo.StudyUnitRepo
	Session    studyrepo.StudySessionRepo
	Run        studyrepo.StudyGenerationRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Preference: studyrepo.NewPreferenceRepo(db, log),
		Study:      studyrepo.NewStudyRepo(db, log),
		Unit:       studyrepo.NewStudyUnitRepo(db, log),
		Session:    studyrepo.NewStudySessionRepo(db, log),
		Run:        studyrepo.NewStudyGenerationRunRepo(db, log),
	}
}
