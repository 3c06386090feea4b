package importer

// aggregate.go collapses many source rows into one logical record before
// reconciliation. The group key is the resolved entity plus a calendar date
// pulled from free text when available (daily reports arrive as one row per
// task, all describing the same person-day).

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"importcore/internal/coerce"
)

// workRow is one parsed source row mid-flight through an execute run.
type workRow struct {
	// number is the physical row number in the uploaded file, 1-based with
	// the header as row 1.
	number int

	raw    map[string]string
	values map[string]any
}

// rowGroup is one logical record assembled from one or more source rows.
type rowGroup struct {
	rows   []*workRow
	values map[string]any
}

// first returns the physical row number errors for this group report
// against.
func (g *rowGroup) first() int { return g.rows[0].number }

var (
	isoDateToken   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	shortDateToken = regexp.MustCompile(`\b\d{1,2}[/.\-]\d{1,2}(?:[/.\-]\d{2,4})?\b`)
)

// groupDate derives the calendar date for a row per the grouping heuristic:
// an explicit date token inside the free-text field wins, then a
// today/yesterday keyword, then the row's own date field. The boolean is
// false when no date can be derived at all.
func groupDate(spec *GroupingSpec, row *workRow, refDate time.Time) (time.Time, bool) {
	if spec.TextField != "" {
		if text, ok := row.values[spec.TextField].(string); ok && text != "" {
			if t, ok := dateFromText(text, refDate); ok {
				return t, true
			}
		}
	}
	if spec.DateField != "" {
		if t, ok := row.values[spec.DateField].(time.Time); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func dateFromText(text string, refDate time.Time) (time.Time, bool) {
	for _, re := range []*regexp.Regexp{isoDateToken, shortDateToken} {
		if token := re.FindString(text); token != "" {
			if t, ok, err := coerce.Date(token, refDate); err == nil && ok {
				return t, true
			}
		}
	}

	lower := strings.ToLower(text)
	day := refDate.Truncate(24 * time.Hour)
	if strings.Contains(lower, "yesterday") {
		return day.AddDate(0, 0, -1), true
	}
	if strings.Contains(lower, "today") {
		return day, true
	}
	return time.Time{}, false
}

// groupRows buckets transformed rows by entity and date, preserving the
// order groups first appear in the file. Rows without a derivable date each
// form their own group so nothing is silently merged.
func groupRows(def *Definition, rows []*workRow, refDate time.Time) []*rowGroup {
	spec := def.Grouping
	if spec == nil {
		groups := make([]*rowGroup, len(rows))
		for i, row := range rows {
			groups[i] = &rowGroup{rows: []*workRow{row}, values: row.values}
		}
		return groups
	}

	var (
		order  []*rowGroup
		byKey  = make(map[string]*rowGroup)
		anonID int
	)
	for _, row := range rows {
		key := groupKey(def, row, refDate)
		if key == "" {
			anonID++
			key = "\x00anon:" + strconv.Itoa(anonID)
		}
		g, ok := byKey[key]
		if !ok {
			g = &rowGroup{values: make(map[string]any)}
			byKey[key] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, row)
		mergeInto(spec, g.values, row.values)
	}

	for _, g := range order {
		if date, ok := groupDate(spec, g.rows[0], refDate); ok && spec.DateField != "" {
			g.values[spec.DateField] = date
		}
	}
	return order
}

// groupKey is the composite of the resolved entity id (falling back to the
// natural unique key) and the derived calendar date.
func groupKey(def *Definition, row *workRow, refDate time.Time) string {
	var parts []string

	if len(def.Resolve) > 0 {
		if id, ok := row.values[def.Resolve[0].TargetIDField].(string); ok && id != "" {
			parts = append(parts, id)
		}
	}
	if len(parts) == 0 {
		for _, field := range def.UniqueKey {
			if v := row.raw[field]; v != "" {
				parts = append(parts, strings.ToLower(v))
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}

	if date, ok := groupDate(def.Grouping, row, refDate); ok {
		parts = append(parts, date.Format("2006-01-02"))
	}
	return strings.Join(parts, "|")
}

// mergeInto folds one row's values into the group accumulator. Scalars keep
// the first non-empty value; additive fields sum; list fields concatenate,
// with de-duplication only where the catalogue asks for it.
func mergeInto(spec *GroupingSpec, acc, values map[string]any) {
	for field, v := range values {
		switch {
		case contains(spec.Additive, field):
			acc[field] = asFloat(acc[field]) + asFloat(v)

		case contains(spec.ListFields, field):
			acc[field] = append(asList(acc[field]), asList(v)...)

		case contains(spec.DedupeFields, field):
			acc[field] = appendDedupe(asList(acc[field]), asList(v))

		default:
			if _, exists := acc[field]; !exists {
				acc[field] = v
			}
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func asList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case string:
		if l == "" {
			return nil
		}
		return []string{l}
	}
	return nil
}

func appendDedupe(acc, add []string) []string {
	seen := make(map[string]bool, len(acc))
	for _, v := range acc {
		seen[v] = true
	}
	for _, v := range add {
		if !seen[v] {
			seen[v] = true
			acc = append(acc, v)
		}
	}
	return acc
}
