package mapping

import "testing"

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "exact match", a: "email", b: "email", want: 1.0},
		{name: "case insensitive exact", a: "Email", b: "EMAIL", want: 1.0},
		{name: "substring containment", a: "email address", b: "email", want: 0.9},
		{name: "containment other direction", a: "email", b: "work email", want: 0.9},
		{name: "empty input", a: "", b: "email", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); got != tt.want {
				t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilarity_Reflexive(t *testing.T) {
	for _, s := range []string{"email", "first_name", "Hire Date", "x", "Total Hours Worked"} {
		if got := Similarity(s, s); got != 1.0 {
			t.Errorf("Similarity(%q, %q) = %v, want 1.0", s, s, got)
		}
	}
}

func TestSimilarity_FuzzyOrdering(t *testing.T) {
	// A near-match must outrank an unrelated name without reaching the
	// containment tier.
	near := Similarity("frist name", "first_name") // transposition typo
	far := Similarity("invoice total", "first_name")

	if near <= far {
		t.Fatalf("near = %v, far = %v, want near > far", near, far)
	}
	if near >= 0.9 {
		t.Fatalf("near = %v, want below the containment tier", near)
	}
}

func TestSuggest(t *testing.T) {
	fields := []Field{
		{Key: "email", Label: "Email", Required: true},
		{Key: "firstName", Label: "First Name"},
		{Key: "lastName", Label: "Last Name"},
		{Key: "hireDate", Label: "Hire Date"},
	}

	tests := []struct {
		name    string
		columns []string
		want    map[string]string // source column -> target field
	}{
		{
			name:    "exact headers",
			columns: []string{"Email", "First Name", "Last Name"},
			want: map[string]string{
				"Email":      "email",
				"First Name": "firstName",
				"Last Name":  "lastName",
			},
		},
		{
			name:    "underscored variants",
			columns: []string{"email_address", "first_name", "last_name"},
			want: map[string]string{
				"email_address": "email",
				"first_name":    "firstName",
				"last_name":     "lastName",
			},
		},
		{
			name:    "unrelated column unassigned",
			columns: []string{"Email", "Shoe Size"},
			want: map[string]string{
				"Email": "email",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suggest(tt.columns, fields, 0.55)

			assigned := make(map[string]string, len(got))
			for _, s := range got {
				assigned[s.SourceColumn] = s.TargetField
			}
			for col, field := range tt.want {
				if assigned[col] != field {
					t.Errorf("column %q assigned to %q, want %q", col, assigned[col], field)
				}
			}
			for col := range assigned {
				if _, ok := tt.want[col]; !ok {
					t.Errorf("column %q unexpectedly assigned to %q", col, assigned[col])
				}
			}
		})
	}
}

func TestSuggest_NoConflicts(t *testing.T) {
	fields := []Field{
		{Key: "email", Label: "Email"},
		{Key: "workEmail", Label: "Work Email"},
	}
	got := Suggest([]string{"Email", "Work Email"}, fields, 0.5)

	seenCol := make(map[string]bool)
	seenField := make(map[string]bool)
	for _, s := range got {
		if seenCol[s.SourceColumn] {
			t.Errorf("column %q claimed twice", s.SourceColumn)
		}
		if seenField[s.TargetField] {
			t.Errorf("field %q claimed twice", s.TargetField)
		}
		seenCol[s.SourceColumn] = true
		seenField[s.TargetField] = true
	}

	// The exact pairs must win over the cross pairs.
	for _, s := range got {
		switch s.SourceColumn {
		case "Email":
			if s.TargetField != "email" {
				t.Errorf("Email assigned to %q, want email", s.TargetField)
			}
		case "Work Email":
			if s.TargetField != "workEmail" {
				t.Errorf("Work Email assigned to %q, want workEmail", s.TargetField)
			}
		}
	}
}

func TestSuggest_ExactMatchConfidence(t *testing.T) {
	fields := []Field{{Key: "email", Label: "Email", Required: true}}
	got := Suggest([]string{"Email"}, fields, 0.5)

	if len(got) != 1 {
		t.Fatalf("len(Suggest()) = %d, want 1", len(got))
	}
	if got[0].Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", got[0].Confidence)
	}
}
