package entities

import (
	"importcore/internal/coerce"
	"importcore/internal/importer"
	"importcore/internal/mapping"
	"importcore/internal/sanitize"
)

func init() {
	registerCandidates()
}

var candidateStages = []string{"APPLIED", "SCREENING", "INTERVIEW", "OFFER", "HIRED", "REJECTED"}

var candidateStageSynonyms = &coerce.SynonymTable{
	Order: []string{"REJECTED", "HIRED", "OFFER", "INTERVIEW", "SCREENING", "APPLIED"},
	Synonyms: map[string][]string{
		"APPLIED":   {"new", "applied", "received"},
		"SCREENING": {"screen", "phone", "review"},
		"INTERVIEW": {"interview", "onsite", "technical"},
		"OFFER":     {"offer", "negotiat"},
		"HIRED":     {"hired", "accepted", "joined", "start"},
		"REJECTED":  {"reject", "declined", "withdrawn", "no_hire"},
	},
}

func registerCandidates() {
	importer.Register(importer.Definition{
		Type:  importer.EntityCandidates,
		Label: "Candidates",
		Fields: []mapping.Field{
			{Key: "email", Label: "Email", Required: true},
			{Key: "firstName", Label: "First Name"},
			{Key: "lastName", Label: "Last Name"},
			{Key: "fullName", Label: "Full Name"},
			{Key: "phone", Label: "Phone"},
			{Key: "stage", Label: "Stage"},
			{Key: "source", Label: "Source"},
			{Key: "position", Label: "Position Applied For"},
			{Key: "skills", Label: "Skills"},
			{Key: "appliedAt", Label: "Applied Date"},
			{Key: "notes", Label: "Notes"},
			{Key: "resume", Label: "Resume / CV Link"},
			{Key: "recruiterEmail", Label: "Recruiter Email"},
		},
		FieldTypes: map[string]importer.FieldType{
			"stage":     importer.FieldEnum,
			"skills":    importer.FieldList,
			"appliedAt": importer.FieldDate,
			"notes":     importer.FieldRichText,
			"resume":    importer.FieldRichTextLinks,
		},
		Enums: map[string]importer.EnumSpec{
			"stage": {Values: candidateStages, Synonyms: candidateStageSynonyms, Fallback: "APPLIED"},
		},
		Rules: []mapping.RequiredRule{
			mapping.Require("email", "Email"),
			mapping.RequireAny("first/last name or full name must be mapped",
				[]string{"firstName", "lastName"},
				[]string{"fullName"},
			),
		},
		RowRules:   []importer.RowRule{nameRule},
		Transforms: []importer.RowTransform{resumeLink},
		UniqueKey:  []string{"email"},
		Identity: importer.IdentitySpec{
			EmailField:     "email",
			FirstNameField: "firstName",
			LastNameField:  "lastName",
		},
		Resolve: []importer.ResolveSpec{
			{
				Against:       importer.EntityEmployees,
				TargetIDField: "recruiterId",
				EmailField:    "recruiterEmail",
			},
		},
	})
}

// resumeLink derives a normalized resume document reference from the pasted
// resume text: a recognized cloud-storage link wins, then any generic
// document URL.
func resumeLink(values map[string]any) {
	text, _ := values["resume"].(string)
	if text == "" {
		return
	}
	if link, ok := sanitize.ExtractStorageLink(text); ok {
		values["resumeUrl"] = link.URL
		return
	}
	if url, ok := sanitize.ExtractDocumentURL(text); ok {
		values["resumeUrl"] = url
	}
}

// nameRule enforces the per-row name requirement shared by person entities:
// either a full name or both halves.
func nameRule(raw map[string]string) error {
	if raw["fullName"] != "" {
		return nil
	}
	if raw["firstName"] != "" && raw["lastName"] != "" {
		return nil
	}
	return importer.RowFailure("first/last name required")
}
