package studygen

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabularyYAML []byte

// Vocabulary is the closed set of tags the classifier may return.
type Vocabulary struct {
	PrimaryTags      []string `yaml:"primary_tags"`
	SensitivityFlags []string `yaml:"sensitivity_flags"`

	primary     map[string]struct{}
	sensitivity map[string]struct{}
}

func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	v.PrimaryTags = normalizeSet(v.PrimaryTags)
	v.SensitivityFlags = normalizeSet(v.SensitivityFlags)
	if len(v.PrimaryTags) == 0 {
		return nil, fmt.Errorf("parse vocabulary: primary_tags is empty")
	}
	v.primary = toSet(v.PrimaryTags)
	v.sensitivity = toSet(v.SensitivityFlags)
	return &v, nil
}

func LoadVocabularyFile(path string) (*Vocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	return ParseVocabulary(raw)
}

var (
	defaultVocabOnce sync.Once
	defaultVocab     *Vocabulary
)

// DefaultVocabulary returns the embedded vocabulary.
func DefaultVocabulary() *Vocabulary {
	defaultVocabOnce.Do(func() {
		v, err := ParseVocabulary(defaultVocabularyYAML)
		if err != nil {
			panic(err)
		}
		defaultVocab = v
	})
	return defaultVocab
}

func (v *Vocabulary) HasPrimary(tag string) bool {
	_, ok := v.primary[tag]
	return ok
}

func (v *Vocabulary) HasSensitivity(flag string) bool {
	_, ok := v.sensitivity[flag]
	return ok
}

// NormalizeTag lower-cases tag and folds whitespace and underscores into single dashes.
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	var b strings.Builder
	lastDash := false
	for _, r := range tag {
		switch {
		case r == ' ' || r == '_' || r == '-' || r == '\t':
			if !lastDash && b.Len() > 0 {
				b.WriteRune('-')
				lastDash = true
			}
		default:
			b.WriteRune(r)
			lastDash = false
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// normalizeSet normalizes every entry, drops empties and keeps the first occurrence.
func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		n := NormalizeTag(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func toSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		out[s] = struct{}{}
	}
	return out
}
