// Package mapping covers the column-to-field assignment step of an import:
// scoring source columns against a target field catalogue, proposing a
// non-conflicting assignment, and validating the operator's final submission.
package mapping

import "errors"

// ErrInvalidMapping marks a mapping submission that violates one of the
// validation rules. The wrapped message names the offending column or field.
var ErrInvalidMapping = errors.New("invalid mapping")

// Field describes one target field of an entity's import catalogue. The
// catalogue doubles as the vocabulary for similarity matching and is never
// mutated at runtime.
type Field struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Entry is one submitted assignment of a source column to a target field.
type Entry struct {
	TargetField  string `json:"targetField"`
	SourceColumn string `json:"sourceColumn"`
}

// FieldMapping is the validated, operator-confirmed assignment. Replacing it
// overwrites the previous value wholesale; there is no partial merge.
type FieldMapping struct {
	Fields         map[string]string `json:"fields"` // target field key -> source column
	IgnoredColumns []string          `json:"ignoredColumns"`
}

// Source returns the source column mapped to the given target field, or ""
// when the field is unmapped.
func (m *FieldMapping) Source(field string) string {
	if m == nil {
		return ""
	}
	return m.Fields[field]
}

// Mapped reports whether the operator assigned a source column to the field.
// Unmapped fields are preserved on update (sparse update semantics).
func (m *FieldMapping) Mapped(field string) bool {
	return m.Source(field) != ""
}
