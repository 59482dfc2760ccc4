package studygen

import (
	"context"

	"github.com/yungbote/studyforge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studyforge-backend/internal/pkg/logger"
)

const classifierAttempts = 2

// Classifier maps free-text goals and topics onto the canonical vocabulary.
type Classifier struct {
	vocab *Vocabulary
	log   *logger.Logger
}

func NewClassifier(vocab *Vocabulary, log *logger.Logger) *Classifier {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Classifier{vocab: vocab, log: log.With("stage", "classify")}
}

// Classify makes at most two calls: a failed first attempt (backend error, malformed
// JSON or schema violation) is retried once with a stricter instruction. A
// misconfigured backend is returned as *ConfigurationError without a retry.
func (c *Classifier) Classify(ctx context.Context, gen Generator, prefs Preferences) (Tags, error) {
	log := c.log.With(ctxutil.LogFields(ctx)...)
	schema := tagsSchema(c.vocab)

	var lastErr error
	for attempt := 1; attempt <= classifierAttempts; attempt++ {
		system, user := classifierPrompts(prefs, c.vocab, attempt > 1)
		raw, err := gen.GenerateStructured(ctx, system, user, schemaTags, schema)
		if err != nil {
			if ce, ok := asConfigurationError(err); ok {
				return Tags{}, ce
			}
			if ctx.Err() != nil {
				return Tags{}, &ClassificationError{Attempts: attempt, Err: ctx.Err()}
			}
			lastErr = err
			log.Warn("Classifier call failed", "attempt", attempt, "error", err)
			continue
		}

		tags, err := decodeTags(raw, c.vocab)
		if err == nil {
			log.Debug("Classified preferences",
				"attempt", attempt,
				"primary_tags", tags.PrimaryTags,
				"sensitivity_flags", tags.SensitivityFlags,
			)
			return tags, nil
		}
		lastErr = err
		log.Warn("Classifier output rejected", "attempt", attempt, "error", err)
	}
	return Tags{}, &ClassificationError{Attempts: classifierAttempts, Err: lastErr}
}
