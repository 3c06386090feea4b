package importer

// transform.go centralizes row extraction and coercion. Extraction is the
// single place raw cells are read through the operator's mapping, so every
// call site gets identical trimming and absence semantics; coercion then
// applies the catalogue's field types on top.

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"importcore/internal/coerce"
	"importcore/internal/mapping"
	"importcore/internal/resolve"
	"importcore/internal/sanitize"
	"importcore/internal/tabular"
)

// rowError marks a failure scoped to a single row: recorded against the row,
// never aborting the batch.
type rowError struct {
	msg string
}

func (e *rowError) Error() string { return e.msg }

// RowFailure builds a row-scoped error: recorded against its row without
// aborting the batch.
func RowFailure(format string, args ...any) error {
	return &rowError{msg: fmt.Sprintf(format, args...)}
}

// isRowScoped classifies errors the per-row handler may swallow. Anything
// else is infrastructure and aborts the run.
func isRowScoped(err error) bool {
	var (
		pe *coerce.ParseError
		ue *resolve.UnresolvedError
		ae *resolve.AmbiguousError
		re *rowError
	)
	return errors.As(err, &pe) || errors.As(err, &ue) || errors.As(err, &ae) || errors.As(err, &re)
}

// extractRaw reads the mapped cells out of a row: target field key to
// trimmed text, with unmapped fields absent from the map entirely. Ignored
// and unmapped source columns are invisible here, which is what makes
// sparse updates safe.
func extractRaw(row tabular.Row, fm *mapping.FieldMapping) map[string]string {
	out := make(map[string]string, len(fm.Fields))
	for field, column := range fm.Fields {
		out[field] = strings.TrimSpace(row[column])
	}
	return out
}

// transformRow coerces the extracted raw values per the catalogue. Absent
// and empty values stay absent; a non-empty value that refuses its type is a
// row failure carrying the offending text.
func transformRow(def *Definition, raw map[string]string, refDate time.Time) (map[string]any, error) {
	values := make(map[string]any, len(raw))

	for field, text := range raw {
		if text == "" {
			continue
		}

		switch def.fieldType(field) {
		case FieldText:
			values[field] = text

		case FieldDate:
			t, ok, err := coerce.Date(text, refDate)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", field, err)
			}
			if ok {
				values[field] = t
			}

		case FieldDecimal:
			f, ok, err := coerce.Decimal(text)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", field, err)
			}
			if ok {
				values[field] = f
			}

		case FieldInteger:
			n, ok, err := coerce.Integer(text)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", field, err)
			}
			if ok {
				values[field] = n
			}

		case FieldBool:
			b, ok, err := coerce.Boolean(text)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", field, err)
			}
			if ok {
				values[field] = b
			}

		case FieldList:
			if items := coerce.List(text); len(items) > 0 {
				values[field] = items
			}

		case FieldEnum:
			spec := def.Enums[field]
			resolved := coerce.Enum(text, spec.Values, spec.Synonyms, spec.Fallback)
			if resolved == "" {
				return nil, fmt.Errorf("field %q: %w", field, &coerce.ParseError{Kind: "enum", Raw: text})
			}
			values[field] = resolved

		case FieldRichText:
			values[field] = sanitize.Strip(text)

		case FieldRichTextLinks:
			values[field] = sanitize.StripPreservingLinks(text)
		}
	}

	return values, nil
}

// reference assembles the resolver input for a ResolveSpec from raw row
// values.
func (spec ResolveSpec) reference(raw map[string]string) resolve.Reference {
	get := func(field string) string {
		if field == "" {
			return ""
		}
		return raw[field]
	}
	return resolve.Reference{
		Email:      get(spec.EmailField),
		CardNumber: get(spec.CardField),
		Code:       get(spec.CodeField),
		FirstName:  get(spec.FirstNameField),
		LastName:   get(spec.LastNameField),
	}
}

// empty reports whether the reference carries no identifier at all.
func referenceEmpty(ref resolve.Reference) bool {
	return ref.Email == "" && ref.CardNumber == "" && ref.Code == "" &&
		ref.FirstName == "" && ref.LastName == ""
}
