// Package coerce converts raw spreadsheet cell text into typed values.
//
// Every parser follows the same contract: empty input means "absent" and
// reports ok=false with no error; non-empty input either parses or fails
// with a *ParseError carrying the offending raw value. Parsers are pure and
// hold no state, so call sites get identical trimming and absence semantics
// everywhere.
package coerce

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseError reports a cell value that could not be coerced to its target
// type. It is always row-scoped: the reconciliation layer records it against
// the row and continues with the batch.
type ParseError struct {
	Kind string // "date", "decimal", "integer", "boolean", "enum"
	Raw  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s value %q", e.Kind, e.Raw)
}

// numericCleanRegex drops everything outside digits, separators, and sign.
var numericCleanRegex = regexp.MustCompile(`[^0-9.,\-]`)

// listSplitRegex separates delimited list items.
var listSplitRegex = regexp.MustCompile(`[,;|\n\t]+`)

// Decimal parses a decimal number. Currency symbols and other non-numeric
// characters are stripped; a lone comma separator is coerced to a dot; when
// both comma and dot appear, commas are treated as thousands separators.
func Decimal(raw string) (float64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}

	s := numericCleanRegex.ReplaceAllString(raw, "")
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ","):
		if strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, &ParseError{Kind: "decimal", Raw: raw}
	}
	return f, true, nil
}

// Integer parses a whole number with the same cleanup as Decimal. A value
// with a nonzero fractional part is rejected.
func Integer(raw string) (int64, bool, error) {
	f, ok, err := Decimal(raw)
	if err != nil {
		return 0, false, &ParseError{Kind: "integer", Raw: strings.TrimSpace(raw)}
	}
	if !ok {
		return 0, false, nil
	}
	n := int64(f)
	if float64(n) != f {
		return 0, false, &ParseError{Kind: "integer", Raw: strings.TrimSpace(raw)}
	}
	return n, true, nil
}

// Boolean parses the usual spreadsheet truthy and falsy spellings. Anything
// else is a ParseError: unparseable booleans are never silently treated as
// absent.
func Boolean(raw string) (bool, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false, nil
	}

	switch strings.ToLower(raw) {
	case "true", "1", "yes", "y":
		return true, true, nil
	case "false", "0", "no", "n":
		return false, true, nil
	}
	return false, false, &ParseError{Kind: "boolean", Raw: raw}
}

// List parses a multi-valued cell. A JSON array is honored as-is; otherwise
// bracket and quote wrapping is stripped and the text is split on commas,
// semicolons, pipes, newlines, and tabs. Items are trimmed, empties dropped,
// and duplicates removed preserving first-seen order.
func List(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var arr []string
	if json.Unmarshal([]byte(raw), &arr) == nil {
		return dedupe(arr)
	}

	s := strings.Trim(raw, "[]")
	parts := listSplitRegex.Split(s, -1)
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p != "" {
			items = append(items, p)
		}
	}
	return dedupe(items)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
