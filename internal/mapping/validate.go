package mapping

// validate.go enforces the structural rules on a submitted mapping. Rules
// run in a fixed order and the first violation wins: unknown source column,
// duplicate target field, duplicate source column, then the entity-specific
// required-field rules supplied by the caller. Validation always runs from
// scratch on every save; there is no incremental state.

import (
	"fmt"
	"strings"
)

// RequiredRule is an entity-specific required-field check. It receives the
// validated field-to-column map and returns an error naming the missing
// field(s) when the rule is violated.
type RequiredRule func(fields map[string]string) error

// Validate checks a mapping submission against the file's headers and the
// entity's required-field rules, returning the immutable FieldMapping on
// success. Source column names are trimmed before the existence check, which
// is otherwise exact and case-sensitive.
func Validate(headers []string, entries []Entry, ignored []string, rules []RequiredRule) (*FieldMapping, error) {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}

	fields := make(map[string]string, len(entries))
	usedColumn := make(map[string]bool, len(entries))

	for _, e := range entries {
		col := strings.TrimSpace(e.SourceColumn)
		if col == "" {
			continue
		}
		if !known[col] {
			return nil, fmt.Errorf("%w: source column %q does not exist in the file", ErrInvalidMapping, col)
		}
		if _, dup := fields[e.TargetField]; dup {
			return nil, fmt.Errorf("%w: target field %q is mapped more than once", ErrInvalidMapping, e.TargetField)
		}
		if usedColumn[col] {
			return nil, fmt.Errorf("%w: source column %q is mapped to more than one field", ErrInvalidMapping, col)
		}
		fields[e.TargetField] = col
		usedColumn[col] = true
	}

	for _, rule := range rules {
		if err := rule(fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
		}
	}

	return &FieldMapping{
		Fields:         fields,
		IgnoredColumns: append([]string(nil), ignored...),
	}, nil
}

// Require returns a rule demanding that the named field is mapped.
func Require(field, label string) RequiredRule {
	return func(fields map[string]string) error {
		if fields[field] == "" {
			return fmt.Errorf("required field %q must be mapped", label)
		}
		return nil
	}
}

// RequireAny returns a rule demanding that at least one alternative is
// mapped, e.g. a full-name column or both first and last name columns.
func RequireAny(message string, alternatives ...[]string) RequiredRule {
	return func(fields map[string]string) error {
		for _, alt := range alternatives {
			satisfied := true
			for _, f := range alt {
				if fields[f] == "" {
					satisfied = false
					break
				}
			}
			if satisfied && len(alt) > 0 {
				return nil
			}
		}
		return fmt.Errorf("%s", message)
	}
}
