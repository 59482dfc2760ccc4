package studygen

const (
	schemaTags    = "study_tags"
	schemaPlan    = "study_plan"
	schemaSession = "study_session"
)

func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func enumArray(values []string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string", "enum": values}}
}

func tagsSchema(vocab *Vocabulary) map[string]any {
	related := stringArray()
	related["maxItems"] = maxRelatedTags
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"primary_tags", "related_tags", "sensitivity_flags"},
		"properties": map[string]any{
			"primary_tags":      enumArray(vocab.PrimaryTags),
			"related_tags":      related,
			"sensitivity_flags": enumArray(vocab.SensitivityFlags),
		},
	}
}

func planSchema(size int) map[string]any {
	primary := stringArray()
	primary["minItems"] = 1
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"title", "summary", "units"},
		"properties": map[string]any{
			"title":   map[string]any{"type": "string"},
			"summary": map[string]any{"type": "string"},
			"units": map[string]any{
				"type":     "array",
				"minItems": size,
				"maxItems": size,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required": []string{
						"index", "type", "scope", "title", "primary_passages",
						"secondary_passages", "estimated_minutes", "learning_goal",
					},
					"properties": map[string]any{
						"index":              map[string]any{"type": "integer"},
						"type":               map[string]any{"type": "string", "enum": unitTypes},
						"scope":              map[string]any{"type": "string", "enum": unitScopes},
						"title":              map[string]any{"type": "string"},
						"primary_passages":   primary,
						"secondary_passages": stringArray(),
						"estimated_minutes":  map[string]any{"type": "integer"},
						"learning_goal":      map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

// sessionSchema lists every field as required (strict mode); optional content is
// expressed as an empty string or list.
func sessionSchema(withQuestions bool) map[string]any {
	insights := stringArray()
	insights["minItems"] = minKeyInsights
	insights["maxItems"] = maxKeyInsights

	questions := stringArray()
	if withQuestions {
		questions["minItems"] = minReflectionQuestions
		questions["maxItems"] = maxReflectionQuestions
	} else {
		questions["maxItems"] = 0
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required": []string{
			"title", "estimated_minutes", "passages", "context", "key_insights",
			"reflection_questions", "prayer_prompt", "action_step", "memory_verse", "cross_references",
		},
		"properties": map[string]any{
			"title":                map[string]any{"type": "string"},
			"estimated_minutes":    map[string]any{"type": "integer"},
			"passages":             stringArray(),
			"context":              map[string]any{"type": "string"},
			"key_insights":         insights,
			"reflection_questions": questions,
			"prayer_prompt":        map[string]any{"type": "string"},
			"action_step":          map[string]any{"type": "string"},
			"memory_verse":         map[string]any{"type": "string"},
			"cross_references":     stringArray(),
		},
	}
}
