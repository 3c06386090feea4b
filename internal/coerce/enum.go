package coerce

// enum.go resolves open-ended tagged strings (stage, status, type of work)
// against a closed value set. Exact matching normalizes case and the
// space/underscore distinction; after that an explicit, data-driven synonym
// table is consulted so the fuzzy layer stays auditable on its own.

import "strings"

// SynonymTable maps a canonical enum value to the substrings that imply it.
// Matching is containment on the normalized input, in the order given by
// Order when deterministic precedence matters.
type SynonymTable struct {
	Order    []string
	Synonyms map[string][]string
}

// Enum resolves raw against the allowed value set. Resolution order: exact
// match under normalization, then the synonym table, then the caller's
// fallback. The fallback is returned as-is, so an empty fallback means
// "unresolved".
func Enum(raw string, values []string, synonyms *SynonymTable, fallback string) string {
	norm := normalizeEnum(raw)
	if norm == "" {
		return fallback
	}

	for _, v := range values {
		if normalizeEnum(v) == norm {
			return v
		}
	}

	if synonyms != nil {
		order := synonyms.Order
		if len(order) == 0 {
			order = values
		}
		for _, canonical := range order {
			for _, sub := range synonyms.Synonyms[canonical] {
				if strings.Contains(norm, normalizeEnum(sub)) {
					return canonical
				}
			}
		}
	}

	return fallback
}

// normalizeEnum uppercases and collapses spaces, hyphens, and underscores so
// "In Progress", "in_progress", and "IN-PROGRESS" compare equal.
func normalizeEnum(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}
