package studygen

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	maxRelatedTags         = 5
	maxSummaryWords        = 80
	maxContextWords        = 100
	minKeyInsights         = 2
	maxKeyInsights         = 3
	minReflectionQuestions = 3
	maxReflectionQuestions = 6
)

// extractWithKeys extracts the JSON object from raw and checks that every key is present.
// The returned text is safe to unmarshal.
func extractWithKeys(schema string, raw string, keys ...string) (string, error) {
	text := ExtractJSON(raw)
	if text == "" || !gjson.Valid(text) {
		return "", &ValidationError{Schema: schema, Reason: "malformed JSON"}
	}
	for _, k := range keys {
		if !gjson.Get(text, k).Exists() {
			return "", &ValidationError{Schema: schema, Field: k, Reason: "missing required key"}
		}
	}
	return text, nil
}

func requireArray(schema, text, key string) error {
	if v := gjson.Get(text, key); v.Exists() && !v.IsArray() {
		return &ValidationError{Schema: schema, Field: key, Reason: "must be an array"}
	}
	return nil
}

// decodeTags validates classifier output against vocab. Tags are normalized and
// de-duplicated in first-seen order before the subset checks.
func decodeTags(raw string, vocab *Vocabulary) (Tags, error) {
	text, err := extractWithKeys(schemaTags, raw, "primary_tags", "related_tags", "sensitivity_flags")
	if err != nil {
		return Tags{}, err
	}
	for _, k := range []string{"primary_tags", "related_tags", "sensitivity_flags"} {
		if err := requireArray(schemaTags, text, k); err != nil {
			return Tags{}, err
		}
	}

	var tags Tags
	if err := json.Unmarshal([]byte(text), &tags); err != nil {
		return Tags{}, &ValidationError{Schema: schemaTags, Reason: err.Error()}
	}
	tags.PrimaryTags = normalizeSet(tags.PrimaryTags)
	tags.RelatedTags = normalizeSet(tags.RelatedTags)
	tags.SensitivityFlags = normalizeSet(tags.SensitivityFlags)

	for _, t := range tags.PrimaryTags {
		if !vocab.HasPrimary(t) {
			return Tags{}, &ValidationError{Schema: schemaTags, Field: "primary_tags", Reason: fmt.Sprintf("%q not in vocabulary", t)}
		}
	}
	for _, f := range tags.SensitivityFlags {
		if !vocab.HasSensitivity(f) {
			return Tags{}, &ValidationError{Schema: schemaTags, Field: "sensitivity_flags", Reason: fmt.Sprintf("%q not in vocabulary", f)}
		}
	}
	if len(tags.RelatedTags) > maxRelatedTags {
		return Tags{}, &ValidationError{Schema: schemaTags, Field: "related_tags", Reason: fmt.Sprintf("%d entries, max %d", len(tags.RelatedTags), maxRelatedTags)}
	}
	return tags, nil
}

type PlanConfig struct {
	Size          int
	DeepDiveUnits int
}

// Normalized fills defaults. The zero value is 10 units, 3 of them deep dives; a
// negative DeepDiveUnits means 3 deep dives per 10 units of Size.
func (c PlanConfig) Normalized() PlanConfig {
	if c.Size <= 0 {
		c.Size = 10
		if c.DeepDiveUnits == 0 {
			c.DeepDiveUnits = -1
		}
	}
	if c.DeepDiveUnits < 0 {
		c.DeepDiveUnits = (c.Size*3 + 5) / 10
	}
	if c.DeepDiveUnits > c.Size {
		c.DeepDiveUnits = c.Size
	}
	return c
}

// decodePlan validates planner output and rewrites unit indices to 0..n-1, ordered
// by the returned index and then by position.
func decodePlan(raw string, cfg PlanConfig, prefs Preferences) (PlanOutline, error) {
	cfg = cfg.Normalized()
	text, err := extractWithKeys(schemaPlan, raw, "title", "units")
	if err != nil {
		return PlanOutline{}, err
	}
	if err := requireArray(schemaPlan, text, "units"); err != nil {
		return PlanOutline{}, err
	}
	if n := int(gjson.Get(text, "units.#").Int()); n != cfg.Size {
		return PlanOutline{}, &ValidationError{Schema: schemaPlan, Field: "units", Reason: fmt.Sprintf("got %d units, want %d", n, cfg.Size)}
	}

	var plan PlanOutline
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return PlanOutline{}, &ValidationError{Schema: schemaPlan, Reason: err.Error()}
	}
	plan.Title = strings.TrimSpace(plan.Title)
	if plan.Title == "" {
		return PlanOutline{}, &ValidationError{Schema: schemaPlan, Field: "title", Reason: "empty"}
	}
	plan.Summary = strings.TrimSpace(plan.Summary)
	if n := wordCount(plan.Summary); n > maxSummaryWords {
		return PlanOutline{}, &ValidationError{Schema: schemaPlan, Field: "summary", Reason: fmt.Sprintf("%d words, max %d", n, maxSummaryWords)}
	}

	deepDives := 0
	for i := range plan.Units {
		u := &plan.Units[i]
		field := fmt.Sprintf("units[%d]", i)
		u.Type = NormalizeTag(u.Type)
		u.Scope = NormalizeTag(u.Scope)
		u.Title = strings.TrimSpace(u.Title)
		u.LearningGoal = strings.TrimSpace(u.LearningGoal)
		u.PrimaryPassages = cleanList(u.PrimaryPassages)
		u.SecondaryPassages = cleanList(u.SecondaryPassages)

		if !slices.Contains(unitTypes, u.Type) {
			return PlanOutline{}, &ValidationError{Schema: schemaPlan, Field: field + ".type", Reason: fmt.Sprintf("unknown type %q", u.Type)}
		}
		if SessionCount(u.Scope) == 0 {
			return PlanOutline{}, &ValidationError{Schema: schemaPlan, Field: field + ".scope", Reason: fmt.Sprintf("unknown scope %q", u.Scope)}
		}
		if u.Title == "" {
			return PlanOutline{}, &ValidationError{Schema: schemaPlan, Field: field + ".title", Reason: "empty"}
		}
		if len(u.PrimaryPassages) == 0 {
			return PlanOutline{}, &ValidationError{Schema: schemaPlan, Field: field + ".primary_passages", Reason: "at least one passage required"}
		}
		if u.EstimatedMinutes <= 0 {
			u.EstimatedMinutes = prefs.MinutesPerSession * SessionCount(u.Scope)
		}
		if isDeepDive(u.Scope) {
			deepDives++
		}
	}
	if deepDives != cfg.DeepDiveUnits {
		return PlanOutline{}, &ValidationError{Schema: schemaPlan, Field: "units", Reason: fmt.Sprintf("got %d deep-dive units, want %d", deepDives, cfg.DeepDiveUnits)}
	}

	sort.SliceStable(plan.Units, func(i, j int) bool { return plan.Units[i].Index < plan.Units[j].Index })
	for i := range plan.Units {
		plan.Units[i].Index = i
	}
	return plan, nil
}

// decodeSession validates one generated session. The session index comes from the
// caller's dispatch order, not from the payload.
func decodeSession(raw string, index int, prefs Preferences) (GeneratedSession, error) {
	text, err := extractWithKeys(schemaSession, raw, "title", "passages", "context", "key_insights", "prayer_prompt", "action_step")
	if err != nil {
		return GeneratedSession{}, err
	}
	for _, k := range []string{"passages", "key_insights", "reflection_questions", "cross_references"} {
		if err := requireArray(schemaSession, text, k); err != nil {
			return GeneratedSession{}, err
		}
	}

	var s GeneratedSession
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return GeneratedSession{}, &ValidationError{Schema: schemaSession, Reason: err.Error()}
	}
	s.SessionIndex = index
	s.Title = strings.TrimSpace(s.Title)
	s.Context = strings.TrimSpace(s.Context)
	if n := wordCount(s.Context); n > maxContextWords {
		return GeneratedSession{}, &ValidationError{Schema: schemaSession, Field: "context", Reason: fmt.Sprintf("%d words, max %d", n, maxContextWords)}
	}
	s.PrayerPrompt = strings.TrimSpace(s.PrayerPrompt)
	s.ActionStep = strings.TrimSpace(s.ActionStep)
	s.MemoryVerse = strings.TrimSpace(s.MemoryVerse)
	s.Passages = cleanList(s.Passages)
	s.KeyInsights = cleanList(s.KeyInsights)
	s.ReflectionQuestions = cleanList(s.ReflectionQuestions)
	s.CrossReferences = cleanList(s.CrossReferences)

	required := []struct {
		field string
		empty bool
	}{
		{"title", s.Title == ""},
		{"passages", len(s.Passages) == 0},
		{"context", s.Context == ""},
		{"prayer_prompt", s.PrayerPrompt == ""},
		{"action_step", s.ActionStep == ""},
	}
	for _, r := range required {
		if r.empty {
			return GeneratedSession{}, &ValidationError{Schema: schemaSession, Field: r.field, Reason: "empty"}
		}
	}
	if n := len(s.KeyInsights); n < minKeyInsights || n > maxKeyInsights {
		return GeneratedSession{}, &ValidationError{Schema: schemaSession, Field: "key_insights", Reason: fmt.Sprintf("got %d, want %d-%d", n, minKeyInsights, maxKeyInsights)}
	}
	if prefs.IncludeDiscussionQuestions {
		if n := len(s.ReflectionQuestions); n < minReflectionQuestions || n > maxReflectionQuestions {
			return GeneratedSession{}, &ValidationError{Schema: schemaSession, Field: "reflection_questions", Reason: fmt.Sprintf("got %d, want %d-%d", n, minReflectionQuestions, maxReflectionQuestions)}
		}
	} else {
		s.ReflectionQuestions = nil
	}
	if s.EstimatedMinutes <= 0 {
		s.EstimatedMinutes = prefs.MinutesPerSession
	}
	return s, nil
}
