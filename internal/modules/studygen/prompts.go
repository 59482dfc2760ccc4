package studygen

import (
	"fmt"
	"strings"
)

func classifierPrompts(prefs Preferences, vocab *Vocabulary, strict bool) (system string, user string) {
	var sb strings.Builder
	sb.WriteString("You classify a Bible study learner's goals and topics into a fixed tag vocabulary.\n")
	sb.WriteString("primary_tags: choose only from this list: ")
	sb.WriteString(strings.Join(vocab.PrimaryTags, ", "))
	sb.WriteString("\nsensitivity_flags: choose only from this list (may be empty): ")
	sb.WriteString(strings.Join(vocab.SensitivityFlags, ", "))
	fmt.Fprintf(&sb, "\nrelated_tags: up to %d short lower-case kebab-case tags for nearby themes.\n", maxRelatedTags)
	sb.WriteString("Return JSON only.")
	if strict {
		sb.WriteString("\n\nYour previous answer was rejected. Return exactly one JSON object with the keys ")
		sb.WriteString("primary_tags, related_tags and sensitivity_flags, all present, all arrays of strings. ")
		sb.WriteString("Use no value that is not listed above. No prose, no markdown.")
	}

	user = fmt.Sprintf("Goals:\n%s\n\nTopics:\n%s\n", bulletList(prefs.Goals), bulletList(prefs.Topics))
	return sb.String(), user
}

func plannerPrompts(prefs Preferences, tags Tags, cfg PlanConfig) (system string, user string) {
	cfg = cfg.Normalized()
	singles := cfg.Size - cfg.DeepDiveUnits

	var sb strings.Builder
	sb.WriteString("You design a personal Bible study plan made of units.\n")
	fmt.Fprintf(&sb, "Produce exactly %d units: %d with scope single-day and %d with a deep-dive scope (deep-dive-2days or deep-dive-3days).\n", cfg.Size, singles, cfg.DeepDiveUnits)
	sb.WriteString("Unit types: devotional, inductive, character, theme, word-study. Interleave types; avoid two adjacent units of the same type where possible.\n")
	sb.WriteString("Number units with index starting at 0 in reading order.\n")
	sb.WriteString("Every unit needs at least one primary passage reference (e.g. \"Psalm 23:1-6\").\n")
	fmt.Fprintf(&sb, "The summary is at most %d words.\n", maxSummaryWords)
	if len(tags.SensitivityFlags) > 0 {
		sb.WriteString("The learner may be in a sensitive season (")
		sb.WriteString(strings.Join(tags.SensitivityFlags, ", "))
		sb.WriteString("). Keep tone gentle and pastoral.\n")
	}
	sb.WriteString("Return JSON only.")

	user = fmt.Sprintf(
		"Goals:\n%s\n\nTopics:\n%s\n\nPrimary tags: %s\nRelated tags: %s\nTranslation: %s\nReading level: %s\nMinutes per session: %d\n",
		bulletList(prefs.Goals),
		bulletList(prefs.Topics),
		strings.Join(tags.PrimaryTags, ", "),
		strings.Join(tags.RelatedTags, ", "),
		prefs.Translation,
		prefs.ReadingLevel,
		prefs.MinutesPerSession,
	)
	return sb.String(), user
}

func sessionPrompts(prefs Preferences, unit UnitOutline, sessionIndex int, sessionCount int) (system string, user string) {
	var sb strings.Builder
	sb.WriteString("You write one session of a Bible study unit.\n")
	fmt.Fprintf(&sb, "Quote and cite the %s translation. Write at a %s reading level.\n", prefs.Translation, prefs.ReadingLevel)
	fmt.Fprintf(&sb, "context: at most %d words of historical and literary background.\n", maxContextWords)
	fmt.Fprintf(&sb, "key_insights: %d to %d items.\n", minKeyInsights, maxKeyInsights)
	if prefs.IncludeDiscussionQuestions {
		fmt.Fprintf(&sb, "reflection_questions: %d to %d open questions.\n", minReflectionQuestions, maxReflectionQuestions)
	} else {
		sb.WriteString("reflection_questions: return an empty array.\n")
	}
	sb.WriteString("memory_verse and cross_references are optional; use an empty string or array when none fit.\n")
	sb.WriteString("Return JSON only.")

	user = fmt.Sprintf(
		"Unit: %s (%s, %s)\nLearning goal: %s\nPrimary passages: %s\nSecondary passages: %s\nThis is session %d of %d. Target about %d minutes.\n",
		unit.Title,
		unit.Type,
		unit.Scope,
		unit.LearningGoal,
		strings.Join(unit.PrimaryPassages, "; "),
		strings.Join(unit.SecondaryPassages, "; "),
		sessionIndex+1,
		sessionCount,
		prefs.MinutesPerSession,
	)
	return sb.String(), user
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			lines = append(lines, "- "+it)
		}
	}
	if len(lines) == 0 {
		return "- (none)"
	}
	return strings.Join(lines, "\n")
}
