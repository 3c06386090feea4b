package entities

import (
	"importcore/internal/coerce"
	"importcore/internal/importer"
	"importcore/internal/mapping"
)

func init() {
	registerInvoices()
}

var invoiceStatuses = []string{"DRAFT", "SENT", "PAID", "OVERDUE", "VOID"}

var invoiceStatusSynonyms = &coerce.SynonymTable{
	Order: []string{"VOID", "OVERDUE", "PAID", "SENT", "DRAFT"},
	Synonyms: map[string][]string{
		"DRAFT":   {"draft", "pending", "new"},
		"SENT":    {"sent", "issued", "open", "outstanding"},
		"PAID":    {"paid", "settled", "complete"},
		"OVERDUE": {"overdue", "late", "past_due"},
		"VOID":    {"void", "cancel", "written_off"},
	},
}

func registerInvoices() {
	importer.Register(importer.Definition{
		Type:  importer.EntityInvoices,
		Label: "Invoices",
		Fields: []mapping.Field{
			{Key: "invoiceNumber", Label: "Invoice Number", Required: true},
			{Key: "customerEmail", Label: "Customer Email"},
			{Key: "issueDate", Label: "Issue Date"},
			{Key: "dueDate", Label: "Due Date"},
			{Key: "amount", Label: "Amount"},
			{Key: "currency", Label: "Currency"},
			{Key: "status", Label: "Status"},
			{Key: "externalId", Label: "External ID"},
			{Key: "lineItems", Label: "Line Items"},
			{Key: "notes", Label: "Notes"},
		},
		FieldTypes: map[string]importer.FieldType{
			"issueDate": importer.FieldDate,
			"dueDate":   importer.FieldDate,
			"amount":    importer.FieldDecimal,
			"status":    importer.FieldEnum,
			"lineItems": importer.FieldList,
			"notes":     importer.FieldRichText,
		},
		Enums: map[string]importer.EnumSpec{
			"status": {Values: invoiceStatuses, Synonyms: invoiceStatusSynonyms, Fallback: "DRAFT"},
		},
		Rules: []mapping.RequiredRule{
			mapping.Require("invoiceNumber", "Invoice Number"),
		},
		UniqueKey:       []string{"invoiceNumber"},
		SecondaryUnique: []string{"externalId"},
		Resolve: []importer.ResolveSpec{
			{
				Against:       importer.EntityContacts,
				TargetIDField: "customerId",
				EmailField:    "customerEmail",
			},
		},
	})
}
