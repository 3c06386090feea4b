// Package resolve turns loosely-specified identifiers from import rows
// (emails, card numbers, unique codes, name pairs) into persisted-record
// ids. Exact matches on strong keys win; a fuzzy email-variant index is the
// last resort and refuses to guess when two records collide on a variant.
//
// All lookups flow through a run-scoped Cache so repeated identifiers cost
// one store round trip per distinct value, not one per row.
package resolve

import (
	"context"
	"fmt"
	"strings"
)

// KeyKind names the exact-match key families the record store supports.
type KeyKind string

const (
	KeyEmail      KeyKind = "email"
	KeyCardNumber KeyKind = "cardNumber"
	KeyCode       KeyKind = "code"
	KeyName       KeyKind = "name" // composite first+last, case-insensitive
)

// Lookup is the read-only record access the resolver needs. Implementations
// compare strings case-insensitively.
type Lookup interface {
	// FindByKey returns the record id for an exact key match, ok=false when
	// no record matches.
	FindByKey(ctx context.Context, kind KeyKind, values ...string) (string, bool, error)

	// KnownEmails returns every stored email with its record id, used to
	// build the fuzzy variant index once per run.
	KnownEmails(ctx context.Context) (map[string]string, error)
}

// UnresolvedError reports a reference that matched nothing and had no manual
// override.
type UnresolvedError struct {
	Identifier string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("no matching record for %q", e.Identifier)
}

// AmbiguousError reports a fuzzy email key associated with more than one
// record. Resolution fails explicitly rather than picking one.
type AmbiguousError struct {
	Key string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("identifier %q matches more than one record", e.Key)
}

// Reference carries whatever identifying fields a row provided. Empty fields
// are skipped; at least one must be set.
type Reference struct {
	Email      string
	CardNumber string
	Code       string
	FirstName  string
	LastName   string
}

// display picks the most specific identifier for error text.
func (ref Reference) display() string {
	switch {
	case ref.Email != "":
		return ref.Email
	case ref.CardNumber != "":
		return ref.CardNumber
	case ref.Code != "":
		return ref.Code
	case ref.FirstName != "" || ref.LastName != "":
		return strings.TrimSpace(ref.FirstName + " " + ref.LastName)
	default:
		return "(no identifier)"
	}
}

// Resolver resolves references for one execute/validate run. It is not safe
// for concurrent use; each run builds its own.
type Resolver struct {
	lookup   Lookup
	cache    *Cache
	manual   map[string]string
	emailIdx *emailIndex
}

// New builds a run-scoped resolver. manual maps operator-supplied identifier
// strings to record ids and takes precedence over every automatic step; keys
// are matched both raw and normalized.
func New(lookup Lookup, cache *Cache, manual map[string]string) *Resolver {
	normalized := make(map[string]string, len(manual)*2)
	for k, v := range manual {
		normalized[k] = v
		normalized[normalizeIdentifier(k)] = v
	}
	return &Resolver{lookup: lookup, cache: cache, manual: normalized}
}

// Resolve resolves a reference to a record id, short-circuiting on the first
// hit: manual overrides, card number, email, unique code, first+last name,
// then the fuzzy email index. Results, including misses, are cached for the
// rest of the run.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) (string, error) {
	for _, id := range []string{ref.Email, ref.CardNumber, ref.Code, strings.TrimSpace(ref.FirstName + " " + ref.LastName)} {
		if id == "" {
			continue
		}
		if recordID, ok := r.manual[id]; ok {
			return recordID, nil
		}
		if recordID, ok := r.manual[normalizeIdentifier(id)]; ok {
			return recordID, nil
		}
	}

	if ref.CardNumber != "" {
		if id, ok, err := r.cachedFind(ctx, KeyCardNumber, ref.CardNumber); err != nil || ok {
			return id, err
		}
	}
	if ref.Email != "" {
		if id, ok, err := r.cachedFind(ctx, KeyEmail, strings.ToLower(strings.TrimSpace(ref.Email))); err != nil || ok {
			return id, err
		}
	}
	if ref.Code != "" {
		if id, ok, err := r.cachedFind(ctx, KeyCode, ref.Code); err != nil || ok {
			return id, err
		}
	}
	if ref.FirstName != "" && ref.LastName != "" {
		if id, ok, err := r.cachedFind(ctx, KeyName, ref.FirstName, ref.LastName); err != nil || ok {
			return id, err
		}
	}

	if ref.Email != "" {
		id, err := r.resolveFuzzyEmail(ctx, ref.Email)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}

	return "", &UnresolvedError{Identifier: ref.display()}
}

// cachedFind is FindByKey behind the run cache, negative results included.
func (r *Resolver) cachedFind(ctx context.Context, kind KeyKind, values ...string) (string, bool, error) {
	normalized := make([]string, len(values))
	for i, v := range values {
		normalized[i] = strings.ToLower(strings.TrimSpace(v))
	}
	cacheKey := string(kind) + ":" + strings.Join(normalized, "|")

	if id, ok := r.cache.Get(cacheKey); ok {
		return id, id != "", nil
	}

	id, found, err := r.lookup.FindByKey(ctx, kind, normalized...)
	if err != nil {
		return "", false, fmt.Errorf("lookup %s: %w", kind, err)
	}
	if !found {
		id = ""
	}
	r.cache.Put(cacheKey, id)
	return id, found, nil
}

// resolveFuzzyEmail probes the variant index, building it on first use.
// Returns "" with nil error on a clean miss.
func (r *Resolver) resolveFuzzyEmail(ctx context.Context, email string) (string, error) {
	cacheKey := "fuzzy-email:" + strings.ToLower(strings.TrimSpace(email))
	if id, ok := r.cache.Get(cacheKey); ok {
		return id, nil
	}

	if r.emailIdx == nil {
		known, err := r.lookup.KnownEmails(ctx)
		if err != nil {
			return "", fmt.Errorf("load email index: %w", err)
		}
		r.emailIdx = buildEmailIndex(known)
	}

	id, err := r.emailIdx.find(email)
	if err != nil {
		return "", err
	}
	r.cache.Put(cacheKey, id)
	return id, nil
}

// normalizeIdentifier lowercases and collapses interior whitespace so manual
// match keys tolerate formatting differences.
func normalizeIdentifier(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
