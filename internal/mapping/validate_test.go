package mapping

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	headers := []string{"Email", "First", "Last", "Notes"}

	tests := []struct {
		name    string
		entries []Entry
		rules   []RequiredRule
		wantErr string // substring of the error, empty for success
	}{
		{
			name: "valid mapping",
			entries: []Entry{
				{TargetField: "email", SourceColumn: "Email"},
				{TargetField: "firstName", SourceColumn: "First"},
			},
		},
		{
			name: "unknown source column",
			entries: []Entry{
				{TargetField: "email", SourceColumn: "E-mail"},
			},
			wantErr: `"E-mail" does not exist`,
		},
		{
			name: "column names trimmed before lookup",
			entries: []Entry{
				{TargetField: "email", SourceColumn: "  Email  "},
			},
		},
		{
			name: "duplicate target field",
			entries: []Entry{
				{TargetField: "email", SourceColumn: "Email"},
				{TargetField: "email", SourceColumn: "First"},
			},
			wantErr: `"email" is mapped more than once`,
		},
		{
			name: "duplicate source column",
			entries: []Entry{
				{TargetField: "email", SourceColumn: "Email"},
				{TargetField: "workEmail", SourceColumn: "Email"},
			},
			wantErr: `"Email" is mapped to more than one field`,
		},
		{
			name: "missing required field",
			entries: []Entry{
				{TargetField: "firstName", SourceColumn: "First"},
			},
			rules:   []RequiredRule{Require("email", "Email")},
			wantErr: `"Email" must be mapped`,
		},
		{
			name: "required alternative satisfied by pair",
			entries: []Entry{
				{TargetField: "email", SourceColumn: "Email"},
				{TargetField: "firstName", SourceColumn: "First"},
				{TargetField: "lastName", SourceColumn: "Last"},
			},
			rules: []RequiredRule{
				Require("email", "Email"),
				RequireAny("either full name or both first and last name must be mapped",
					[]string{"fullName"}, []string{"firstName", "lastName"}),
			},
		},
		{
			name: "required alternative unsatisfied",
			entries: []Entry{
				{TargetField: "email", SourceColumn: "Email"},
				{TargetField: "firstName", SourceColumn: "First"},
			},
			rules: []RequiredRule{
				RequireAny("either full name or both first and last name must be mapped",
					[]string{"fullName"}, []string{"firstName", "lastName"}),
			},
			wantErr: "either full name or both first and last name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(headers, tt.entries, nil, tt.rules)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Validate() = %+v, want error containing %q", got, tt.wantErr)
				}
				if !errors.Is(err, ErrInvalidMapping) {
					t.Errorf("error %v is not ErrInvalidMapping", err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if len(got.Fields) == 0 {
				t.Fatal("Validate() returned empty field map")
			}
		})
	}
}

func TestValidate_IgnoredColumnsCopied(t *testing.T) {
	ignored := []string{"Notes"}
	got, err := Validate([]string{"Email", "Notes"}, []Entry{
		{TargetField: "email", SourceColumn: "Email"},
	}, ignored, nil)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	ignored[0] = "mutated"
	if got.IgnoredColumns[0] != "Notes" {
		t.Errorf("IgnoredColumns[0] = %q, want isolated copy", got.IgnoredColumns[0])
	}
}
