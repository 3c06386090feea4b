package resolve

// emailindex.go implements cross-format email matching. Every known email is
// expanded into normalized variants and indexed; an input email is expanded
// the same way and matches only when all hit variants agree on a single
// record. A variant shared by two records is poisoned: probing it fails
// loudly instead of silently picking either record.

import "strings"

const ambiguousMarker = "\x00ambiguous"

type emailIndex struct {
	variants map[string]string // variant -> record id, or ambiguousMarker
}

// buildEmailIndex indexes known emails (address -> record id) by variant.
func buildEmailIndex(known map[string]string) *emailIndex {
	idx := &emailIndex{variants: make(map[string]string, len(known)*4)}
	for email, recordID := range known {
		for _, v := range emailVariants(email) {
			existing, ok := idx.variants[v]
			if ok && existing != recordID {
				idx.variants[v] = ambiguousMarker
				continue
			}
			idx.variants[v] = recordID
		}
	}
	return idx
}

// find probes the input's variants in generation order. The first hit wins;
// a poisoned variant is an AmbiguousError; no hit is a clean miss ("" id).
func (idx *emailIndex) find(email string) (string, error) {
	for _, v := range emailVariants(email) {
		id, ok := idx.variants[v]
		if !ok {
			continue
		}
		if id == ambiguousMarker {
			return "", &AmbiguousError{Key: v}
		}
		return id, nil
	}
	return "", nil
}

// emailVariants expands an address into its matchable forms: the full
// address, alias-stripped, dot-stripped, punctuation-stripped (each with the
// domain), the bare local part, and the alias-stripped local part. Order
// matters: more specific variants probe first.
func emailVariants(email string) []string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return nil
	}
	local, domain := email[:at], email[at+1:]

	noAlias := local
	if plus := strings.Index(local, "+"); plus >= 0 {
		noAlias = local[:plus]
	}
	noDots := strings.ReplaceAll(noAlias, ".", "")
	noPunct := stripPunct(noAlias)

	seen := make(map[string]bool, 6)
	var out []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	add(email)
	add(noAlias + "@" + domain)
	add(noDots + "@" + domain)
	add(noPunct + "@" + domain)
	add(noAlias)
	add(noPunct)
	return out
}

// stripPunct removes everything outside letters and digits.
func stripPunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
