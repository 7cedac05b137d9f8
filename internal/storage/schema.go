package storage

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// reviewSchema describes a review_YYYY-MM-DD.json record.
const reviewSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["categories", "selected"],
  "properties": {
    "date": {"type": "string"},
    "total_articles": {"type": "integer", "minimum": 0},
    "categories": {
      "type": "object",
      "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/article"}}
    },
    "selected": {"type": "array", "items": {"$ref": "#/definitions/article"}}
  },
  "definitions": {
    "article": {
      "type": "object",
      "required": ["title"],
      "properties": {
        "id": {"type": "integer"},
        "title": {"type": "string"},
        "url": {"type": "string"},
        "source": {"type": "string"},
        "category": {"type": "string"},
        "score": {"type": "number"},
        "summary": {"type": "string"},
        "published": {"type": ["string", "null"]},
        "selected": {"type": "boolean"}
      }
    }
  }
}`

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

var (
	compileOnce    sync.Once
	compiledSchema *gojsonschema.Schema
	compileErr     error
)

func schema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(reviewSchema))
	})
	return compiledSchema, compileErr
}

// ValidateReview checks raw record bytes against the review schema.
func ValidateReview(data []byte) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("failed to load review schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to parse review record: %w", err)
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{}
	for _, e := range result.Errors() {
		ve.Errors = append(ve.Errors, FieldError{Field: e.Field(), Message: e.Description()})
	}
	return ve
}
