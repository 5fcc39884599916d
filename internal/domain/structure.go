package domain

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/structure.schema.json
var structureSchema string

var structureLoader = gojsonschema.NewStringLoader(structureSchema)

// FieldError is one schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StructureError lists every problem found in an assessment structure document.
type StructureError struct {
	Errors []FieldError
}

func (e *StructureError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid assessment structure: " + strings.Join(parts, "; ")
}

// ParseStructure validates raw JSON against the structure schema and decodes it.
// Question ids must be unique and dependsOn must point at an earlier question.
func ParseStructure(data []byte) (*Structure, error) {
	result, err := gojsonschema.Validate(structureLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate structure: %w", err)
	}
	if !result.Valid() {
		serr := &StructureError{Errors: make([]FieldError, 0, len(result.Errors()))}
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			serr.Errors = append(serr.Errors, FieldError{Field: field, Message: desc.Description()})
		}
		return nil, serr
	}
	var s Structure
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode structure: %w", err)
	}
	if err := s.checkReferences(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s Structure) checkReferences() error {
	seen := map[string]struct{}{}
	var problems []FieldError
	for _, sec := range s.Sections {
		for _, q := range sec.Questions {
			b := q.Base()
			if _, dup := seen[b.ID]; dup {
				problems = append(problems, FieldError{Field: b.ID, Message: "duplicate question id"})
			}
			if b.DependsOn != nil {
				if _, ok := seen[b.DependsOn.QuestionID]; !ok {
					problems = append(problems, FieldError{Field: b.ID, Message: "dependsOn must reference an earlier question"})
				}
			}
			seen[b.ID] = struct{}{}
		}
	}
	if len(problems) > 0 {
		return &StructureError{Errors: problems}
	}
	return nil
}
