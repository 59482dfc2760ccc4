package studygen

import (
	"github.com/google/uuid"

	types "github.com/yungbote/studyforge-backend/internal/domain"
)

const (
	UnitTypeDevotional = "devotional"
	UnitTypeInductive  = "inductive"
	UnitTypeCharacter  = "character"
	UnitTypeTheme      = "theme"
	UnitTypeWordStudy  = "word-study"

	ScopeSingleDay     = "single-day"
	ScopeDeepDive2Days = "deep-dive-2days"
	ScopeDeepDive3Days = "deep-dive-3days"
)

var (
	unitTypes  = []string{UnitTypeDevotional, UnitTypeInductive, UnitTypeCharacter, UnitTypeTheme, UnitTypeWordStudy}
	unitScopes = []string{ScopeSingleDay, ScopeDeepDive2Days, ScopeDeepDive3Days}
)

// SessionCount is the number of sessions a unit of the given scope expands into.
// Unknown scopes yield 0.
func SessionCount(scope string) int {
	switch scope {
	case ScopeSingleDay:
		return 1
	case ScopeDeepDive2Days:
		return 2
	case ScopeDeepDive3Days:
		return 3
	default:
		return 0
	}
}

func isDeepDive(scope string) bool {
	return scope == ScopeDeepDive2Days || scope == ScopeDeepDive3Days
}

// Preferences is the subset of a stored preference record the pipeline reads.
type Preferences struct {
	ID                         uuid.UUID
	UserID                     uuid.UUID
	Goals                      []string
	Topics                     []string
	MinutesPerSession          int
	Translation                string
	ReadingLevel               string
	IncludeDiscussionQuestions bool
}

func PreferencesFromRecord(p *types.StudyPreference) Preferences {
	out := Preferences{
		ID:                         p.ID,
		UserID:                     p.UserID,
		Goals:                      append([]string(nil), p.Goals...),
		Topics:                     append([]string(nil), p.Topics...),
		MinutesPerSession:          p.MinutesPerSession,
		Translation:                p.Translation,
		ReadingLevel:               p.ReadingLevel,
		IncludeDiscussionQuestions: p.IncludeDiscussionQuestions,
	}
	if out.MinutesPerSession <= 0 {
		out.MinutesPerSession = 15
	}
	if out.Translation == "" {
		out.Translation = "NIV"
	}
	if out.ReadingLevel == "" {
		out.ReadingLevel = "conversational"
	}
	return out
}

type Tags struct {
	PrimaryTags      []string `json:"primary_tags"`
	RelatedTags      []string `json:"related_tags"`
	SensitivityFlags []string `json:"sensitivity_flags"`
}

type PlanOutline struct {
	Title   string        `json:"title"`
	Summary string        `json:"summary"`
	Units   []UnitOutline `json:"units"`
}

type UnitOutline struct {
	Index             int      `json:"index"`
	Type              string   `json:"type"`
	Scope             string   `json:"scope"`
	Title             string   `json:"title"`
	PrimaryPassages   []string `json:"primary_passages"`
	SecondaryPassages []string `json:"secondary_passages"`
	EstimatedMinutes  int      `json:"estimated_minutes"`
	LearningGoal      string   `json:"learning_goal"`
}

type GeneratedSession struct {
	SessionIndex        int      `json:"session_index"`
	Title               string   `json:"title"`
	EstimatedMinutes    int      `json:"estimated_minutes"`
	Passages            []string `json:"passages"`
	Context             string   `json:"context"`
	KeyInsights         []string `json:"key_insights"`
	ReflectionQuestions []string `json:"reflection_questions,omitempty"`
	PrayerPrompt        string   `json:"prayer_prompt"`
	ActionStep          string   `json:"action_step"`
	MemoryVerse         string   `json:"memory_verse,omitempty"`
	CrossReferences     []string `json:"cross_references,omitempty"`
}

// ExpandedUnit is a unit whose sessions passed validation. Sessions is ordered by
// SessionIndex; indices of failed sessions are absent.
type ExpandedUnit struct {
	Outline  UnitOutline
	Sessions []GeneratedSession
	Attempts int
	// Failed lists the session indices that never validated.
	Failed []int
}
