package studygen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	studyrepo "github.com/yungbote/studyforge-backend/internal/data/repos/study"
	"github.com/yungbote/studyforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	pkgerrors "github.com/yungbote/studyforge-backend/internal/pkg/errors"
	"github.com/yungbote/studyforge-backend/internal/realtime"
)

type generateFunc func(ctx context.Context, schemaName string, user string) (string, error)

// fakeGenerator answers by schema name and counts calls per schema.
type fakeGenerator struct {
	mu    sync.Mutex
	calls map[string]int
	fn    generateFunc
}

func newFakeGenerator(fn generateFunc) *fakeGenerator {
	return &fakeGenerator{calls: map[string]int{}, fn: fn}
}

func (f *fakeGenerator) GenerateStructured(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (string, error) {
	f.mu.Lock()
	f.calls[schemaName]++
	f.mu.Unlock()
	return f.fn(ctx, schemaName, user)
}

func (f *fakeGenerator) Calls(schemaName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[schemaName]
}

func mustJSON(t testing.TB, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func tagsJSON(t testing.TB) string {
	return mustJSON(t, map[string]any{
		"primary_tags":      []string{"hope", "anxiety"},
		"related_tags":      []string{"lament"},
		"sensitivity_flags": []string{"mental-health"},
	})
}

// planJSON returns a valid plan of size units; units at deepDivePositions get a
// deep-dive scope. Unit titles are "Unit <position>".
func planJSON(t testing.TB, size int, deepDivePositions ...int) string {
	deep := map[int]string{}
	for i, p := range deepDivePositions {
		if i%2 == 0 {
			deep[p] = ScopeDeepDive3Days
		} else {
			deep[p] = ScopeDeepDive2Days
		}
	}
	units := make([]map[string]any, 0, size)
	for i := 0; i < size; i++ {
		scope := ScopeSingleDay
		if s, ok := deep[i]; ok {
			scope = s
		}
		units = append(units, map[string]any{
			"index":              i,
			"type":               unitTypes[i%len(unitTypes)],
			"scope":              scope,
			"title":              fmt.Sprintf("Unit %d", i),
			"primary_passages":   []string{fmt.Sprintf("Psalm %d:1-5", i+1)},
			"secondary_passages": []string{},
			"estimated_minutes":  15,
			"learning_goal":      "trust God in uncertainty",
		})
	}
	return mustJSON(t, map[string]any{
		"title":   "Hope in Anxious Seasons",
		"summary": "A ten unit journey through lament and trust.",
		"units":   units,
	})
}

// sessionJSON returns a valid session whose title echoes the prompt's position.
func sessionJSON(t testing.TB, user string) string {
	title := "Session"
	if n := sessionNumber(user); n > 0 {
		title = fmt.Sprintf("Session %d", n)
	}
	return mustJSON(t, map[string]any{
		"title":                title,
		"estimated_minutes":    15,
		"passages":             []string{"Psalm 23:1-3"},
		"context":              "David writes as a shepherd who became king.",
		"key_insights":         []string{"God leads", "God restores"},
		"reflection_questions": []string{"Where do you need rest?", "What worries you?", "Who shepherds you?"},
		"prayer_prompt":        "Thank God for his care.",
		"action_step":          "Take a quiet walk.",
		"memory_verse":         "Psalm 23:1",
		"cross_references":     []string{"John 10:11"},
	})
}

// sessionNumber is the 1-based session position named in a session prompt.
func sessionNumber(user string) int {
	for n := 1; n <= 3; n++ {
		if strings.Contains(user, fmt.Sprintf("session %d of", n)) {
			return n
		}
	}
	return 0
}

func unitPrompt(user string, position int) bool {
	return strings.Contains(user, fmt.Sprintf("Unit: Unit %d (", position))
}

// recordingNotifier keeps every published message.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []realtime.Message
}

func (n *recordingNotifier) Publish(_ context.Context, msg realtime.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *recordingNotifier) Events() []realtime.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]realtime.Event, 0, len(n.msgs))
	for _, m := range n.msgs {
		out = append(out, m.Event)
	}
	return out
}

type pipelineFixture struct {
	db       *gorm.DB
	studies  studyrepo.StudyRepo
	units    studyrepo.StudyUnitRepo
	sessions studyrepo.StudySessionRepo
	runs     studyrepo.StudyGenerationRunRepo
	notifier *recordingNotifier
	userID   uuid.UUID
	prefID   uuid.UUID

	// Optional write-path overrides for the persister.
	studyWriter studyrepo.StudyRepo
	unitWriter  studyrepo.StudyUnitRepo
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	userID := uuid.New()
	pref := testutil.SeedPreference(t, context.Background(), db, userID)
	return &pipelineFixture{
		db:       db,
		studies:  studyrepo.NewStudyRepo(db, log),
		units:    studyrepo.NewStudyUnitRepo(db, log),
		sessions: studyrepo.NewStudySessionRepo(db, log),
		runs:     studyrepo.NewStudyGenerationRunRepo(db, log),
		notifier: &recordingNotifier{},
		userID:   userID,
		prefID:   pref.ID,
	}
}

func (f *pipelineFixture) orchestrator(t *testing.T, cfg Config, gen Generator) *Orchestrator {
	t.Helper()
	log := testutil.Logger(t)
	return NewOrchestrator(cfg, Deps{
		Generator:   gen,
		Preferences: NewPreferenceReader(studyrepo.NewPreferenceRepo(f.db, log)),
		Persister:   NewPersister(f.studyRepo(), f.unitRepo(), f.sessions, nil, log),
		Runs:        f.runs,
		Notifier:    f.notifier,
		Log:         log,
	})
}

func (f *pipelineFixture) studyRepo() studyrepo.StudyRepo {
	if f.studyWriter != nil {
		return f.studyWriter
	}
	return f.studies
}

func (f *pipelineFixture) unitRepo() studyrepo.StudyUnitRepo {
	if f.unitWriter != nil {
		return f.unitWriter
	}
	return f.units
}

// failingStudyRepo rejects every study insert.
type failingStudyRepo struct {
	studyrepo.StudyRepo
}

func (failingStudyRepo) Create(context.Context, *gorm.DB, []*types.Study) ([]*types.Study, error) {
	return nil, errors.New("insert study: connection reset")
}

// failingUnitRepo rejects inserts for the listed unit indices.
type failingUnitRepo struct {
	studyrepo.StudyUnitRepo
	failIndex map[int]bool
}

func (r failingUnitRepo) Create(ctx context.Context, tx *gorm.DB, units []*types.StudyUnit) ([]*types.StudyUnit, error) {
	for _, u := range units {
		if r.failIndex[u.UnitIndex] {
			return nil, fmt.Errorf("insert unit %d: %w", u.UnitIndex, pkgerrors.ErrConflict)
		}
	}
	return r.StudyUnitRepo.Create(ctx, tx, units)
}

func (f *pipelineFixture) request() Request {
	return Request{PreferenceID: f.prefID.String(), UserID: f.userID.String()}
}

func (f *pipelineFixture) studyCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Table("study").Count(&n).Error; err != nil {
		t.Fatalf("count studies: %v", err)
	}
	return n
}
