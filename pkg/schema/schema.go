// Package schema implements structural validation of a row against a
// declared JSON-shaped schema. Only type, properties and required are
// enforced normatively; every other recognized field is advisory.
package schema

import (
	"encoding/json"
	"fmt"

	dberrors "github.com/Syras206/slimcryptdb/pkg/errors"
)

// Schema mirrors the recognized fields a declared schema may carry.
// Fields beyond Type/Properties/Required are parsed but never enforced.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	Format               string             `json:"format,omitempty"`
	MinLength            *int               `json:"minLength,omitempty"`
	MaxLength            *int               `json:"maxLength,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty"`
	Pattern              string             `json:"pattern,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
}

// Parse decodes raw schema JSON. A nil/empty schema parses to nil,
// meaning "no validation applies".
func Parse(raw json.RawMessage) (*Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &dberrors.FormatError{Op: "schema.parse", Reason: err.Error()}
	}
	return &s, nil
}

// Validate checks row (a decoded JSON value, normally map[string]any for
// object schemas) against s. A nil schema always validates.
func Validate(s *Schema, row any) error {
	if s == nil {
		return nil
	}
	return validateAt(s, row, "$")
}

func validateAt(s *Schema, value any, path string) error {
	if s.Type != "" {
		if err := validateType(s, value, path); err != nil {
			return err
		}
	}

	if s.Type == "object" || (s.Type == "" && isObject(value)) {
		obj, ok := value.(map[string]any)
		if !ok {
			// Defensive only: validateType has already rejected a
			// non-object under type "object", and an untyped schema
			// reaches this block only with an object.
			return nil
		}

		for _, field := range s.Required {
			if _, present := obj[field]; !present {
				return &dberrors.ValidationError{Field: field, Reason: "required field is missing"}
			}
		}

		for field, propSchema := range s.Properties {
			fieldValue, present := obj[field]
			if !present {
				continue
			}
			if err := validateAt(propSchema, fieldValue, path+"."+field); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateType matches the JSON type tag, with the array-declared-but-
// object-given concession: an object value is accepted where an array
// was declared, since the engine's rows are always objects and some
// declared schemas describe array-shaped sub-documents loosely.
func validateType(s *Schema, value any, path string) error {
	switch s.Type {
	case "object":
		if !isObject(value) {
			return &dberrors.ValidationError{Field: path, Reason: "expected an object"}
		}
	case "array":
		if isObject(value) {
			return nil
		}
		if _, ok := value.([]any); !ok {
			return &dberrors.ValidationError{Field: path, Reason: "expected an array"}
		}
	case "string":
		if _, ok := value.(string); !ok {
			return &dberrors.ValidationError{Field: path, Reason: "expected a string"}
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return &dberrors.ValidationError{Field: path, Reason: "expected a number"}
		}
	case "integer":
		f, ok := value.(float64)
		if !ok || f != float64(int64(f)) {
			return &dberrors.ValidationError{Field: path, Reason: "expected an integer"}
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return &dberrors.ValidationError{Field: path, Reason: "expected a boolean"}
		}
	case "null":
		if value != nil {
			return &dberrors.ValidationError{Field: path, Reason: "expected null"}
		}
	default:
		return &dberrors.ValidationError{Field: path, Reason: fmt.Sprintf("unrecognized type %q", s.Type)}
	}
	return nil
}

func isObject(value any) bool {
	_, ok := value.(map[string]any)
	return ok
}
