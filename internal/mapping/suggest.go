package mapping

// suggest.go scores column-name-to-field similarity and proposes an initial
// assignment. The output is advisory: the operator can override everything
// before validation, and only the validated submission is persisted.

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Suggestion is one proposed column-to-field assignment with its score.
type Suggestion struct {
	SourceColumn string  `json:"sourceColumn"`
	TargetField  string  `json:"targetField"`
	Confidence   float64 `json:"confidence"`
}

// Blend weights for the non-trivial similarity path.
const (
	tokenWeight = 0.65
	levWeight   = 0.35
)

// Token pair scores: partial credit short of exact equality.
const (
	tokenContainScore = 0.8
	tokenPrefixScore  = 0.6
	tokenEditScore    = 0.5
)

// Suggest proposes a non-conflicting assignment of columns to fields. Every
// (column, field) pair is scored; pairs below minConfidence are discarded;
// the remainder are accepted greedily in descending score order, each claim
// removing its column and field from further consideration. Ties keep the
// generation order (columns outer, fields inner), so the result is
// deterministic. This greedily approximates maximum-weight bipartite
// matching rather than solving it exactly.
func Suggest(columns []string, fields []Field, minConfidence float64) []Suggestion {
	var scored []Suggestion
	for _, col := range columns {
		if strings.TrimSpace(col) == "" {
			continue
		}
		for _, f := range fields {
			score := bestFieldScore(col, f)
			if score >= minConfidence {
				scored = append(scored, Suggestion{
					SourceColumn: col,
					TargetField:  f.Key,
					Confidence:   score,
				})
			}
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Confidence > scored[j].Confidence
	})

	usedColumn := make(map[string]bool)
	usedField := make(map[string]bool)
	var out []Suggestion
	for _, s := range scored {
		if usedColumn[s.SourceColumn] || usedField[s.TargetField] {
			continue
		}
		usedColumn[s.SourceColumn] = true
		usedField[s.TargetField] = true
		out = append(out, s)
	}
	return out
}

// bestFieldScore scores a column against a field using whichever of the
// field's key and label matches better.
func bestFieldScore(column string, f Field) float64 {
	score := Similarity(column, f.Key)
	if f.Label != "" {
		if s := Similarity(column, f.Label); s > score {
			score = s
		}
	}
	return score
}

// Similarity scores two names in [0, 1]. Exact case-insensitive equality is
// 1.0 and substring containment either direction is 0.9; everything else is
// a weighted blend of token overlap and normalized Levenshtein similarity on
// the full strings.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.9
	}
	return tokenWeight*tokenOverlap(a, b) + levWeight*levenshteinSimilarity(a, b)
}

// splitTokens splits a name on whitespace, hyphens, and underscores.
func splitTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == '_'
	})
}

// tokenOverlap computes the overlap ratio between the token sets of a and b:
// each token of the smaller set contributes its best pairwise score against
// the other set, normalized by the larger set's size.
func tokenOverlap(a, b string) float64 {
	at := splitTokens(a)
	bt := splitTokens(b)
	if len(at) == 0 || len(bt) == 0 {
		return 0
	}
	if len(at) > len(bt) {
		at, bt = bt, at
	}

	var sum float64
	for _, t := range at {
		best := 0.0
		for _, u := range bt {
			if s := tokenPairScore(t, u); s > best {
				best = s
			}
		}
		sum += best
	}
	return sum / float64(len(bt))
}

// tokenPairScore scores a single token pair: equality 1.0, containment 0.8,
// shared 3-letter prefix 0.6, edit distance at most 2 scores 0.5.
func tokenPairScore(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return tokenContainScore
	}
	if len(a) >= 3 && len(b) >= 3 && a[:3] == b[:3] {
		return tokenPrefixScore
	}
	if levenshtein.ComputeDistance(a, b) <= 2 {
		return tokenEditScore
	}
	return 0
}

// levenshteinSimilarity is 1 - dist/maxLen over the full lowercased strings.
func levenshteinSimilarity(a, b string) float64 {
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	sim := 1.0 - float64(dist)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}
