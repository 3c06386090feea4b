package entities

import (
	"importcore/internal/coerce"
	"importcore/internal/importer"
	"importcore/internal/mapping"
)

func init() {
	registerContacts()
	registerLeads()
}

func registerContacts() {
	importer.Register(importer.Definition{
		Type:  importer.EntityContacts,
		Label: "Contacts",
		Fields: []mapping.Field{
			{Key: "email", Label: "Email", Required: true},
			{Key: "firstName", Label: "First Name"},
			{Key: "lastName", Label: "Last Name"},
			{Key: "company", Label: "Company"},
			{Key: "title", Label: "Job Title"},
			{Key: "phone", Label: "Phone"},
			{Key: "tags", Label: "Tags"},
			{Key: "notes", Label: "Notes"},
		},
		FieldTypes: map[string]importer.FieldType{
			"tags":  importer.FieldList,
			"notes": importer.FieldRichTextLinks,
		},
		Rules: []mapping.RequiredRule{
			mapping.Require("email", "Email"),
		},
		UniqueKey: []string{"email"},
		Identity: importer.IdentitySpec{
			EmailField:     "email",
			FirstNameField: "firstName",
			LastNameField:  "lastName",
		},
	})
}

var leadStages = []string{"NEW", "CONTACTED", "QUALIFIED", "PROPOSAL", "WON", "LOST"}

var leadStageSynonyms = &coerce.SynonymTable{
	Order: []string{"LOST", "WON", "PROPOSAL", "QUALIFIED", "CONTACTED", "NEW"},
	Synonyms: map[string][]string{
		"NEW":       {"open", "fresh", "untouched"},
		"CONTACTED": {"contact", "reached", "outreach", "follow"},
		"QUALIFIED": {"qualif", "interested", "demo"},
		"PROPOSAL":  {"proposal", "quote", "negotiat"},
		"WON":       {"won", "closed_won", "signed", "customer"},
		"LOST":      {"lost", "closed_lost", "dead", "churn"},
	},
}

func registerLeads() {
	importer.Register(importer.Definition{
		Type:  importer.EntityLeads,
		Label: "Leads",
		Fields: []mapping.Field{
			{Key: "email", Label: "Email", Required: true},
			{Key: "firstName", Label: "First Name"},
			{Key: "lastName", Label: "Last Name"},
			{Key: "company", Label: "Company"},
			{Key: "stage", Label: "Stage"},
			{Key: "value", Label: "Deal Value"},
			{Key: "source", Label: "Source"},
			{Key: "notes", Label: "Notes"},
			{Key: "ownerEmail", Label: "Owner Email"},
		},
		FieldTypes: map[string]importer.FieldType{
			"stage": importer.FieldEnum,
			"value": importer.FieldDecimal,
			"notes": importer.FieldRichText,
		},
		Enums: map[string]importer.EnumSpec{
			"stage": {Values: leadStages, Synonyms: leadStageSynonyms, Fallback: "NEW"},
		},
		Rules: []mapping.RequiredRule{
			mapping.Require("email", "Email"),
		},
		UniqueKey: []string{"email"},
		Identity: importer.IdentitySpec{
			EmailField:     "email",
			FirstNameField: "firstName",
			LastNameField:  "lastName",
		},
		Resolve: []importer.ResolveSpec{
			{
				Against:       importer.EntityEmployees,
				TargetIDField: "ownerId",
				EmailField:    "ownerEmail",
			},
		},
	})
}
