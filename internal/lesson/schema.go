package lesson

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const lessonSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "title", "segments"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "title": {"type": "string", "minLength": 1},
    "estimated_duration": {"type": "string"},
    "intro": {"type": "string"},
    "segments": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "title"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"enum": ["lecture", "quiz"]},
          "title": {"type": "string"},
          "transcript": {"type": "array", "items": {"type": "string"}},
          "key_points": {"type": "array", "items": {"type": "string"}},
          "options": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["key", "text"],
              "properties": {
                "key": {"type": "string", "minLength": 1},
                "text": {"type": "string"}
              }
            }
          }
        },
        "if": {"properties": {"type": {"const": "quiz"}}},
        "then": {"required": ["question", "options", "answer"]}
      }
    }
  }
}`

var loadLessonSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(lessonSchemaJSON))
})

// ValidateDocument checks a decoded lesson document (as produced by
// yaml.Unmarshal into map[string]any) against the lesson schema.
func ValidateDocument(doc any) error {
	schema, err := loadLessonSchema()
	if err != nil {
		return fmt.Errorf("compile lesson schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate lesson: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid lesson: %s", strings.Join(msgs, "; "))
}

// Validate checks the structural rules the schema cannot express: unique
// segment ids, unique option keys and an answer that names one of the options.
func (l *Lesson) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(l.Segments))
	for i, seg := range l.Segments {
		if seen[seg.ID] {
			errs = append(errs, fmt.Errorf("segment %d: duplicate id %q", i, seg.ID))
		}
		seen[seg.ID] = true

		if !seg.IsQuiz() {
			continue
		}
		keys := make(map[string]bool, len(seg.Options))
		for _, opt := range seg.Options {
			if keys[opt.Key] {
				errs = append(errs, fmt.Errorf("segment %q: duplicate option key %q", seg.ID, opt.Key))
			}
			keys[opt.Key] = true
		}
		if !keys[seg.Answer] {
			errs = append(errs, fmt.Errorf("segment %q: answer %q is not an option", seg.ID, seg.Answer))
		}
	}
	return errors.Join(errs...)
}
