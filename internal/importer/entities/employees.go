package entities

import (
	"importcore/internal/importer"
	"importcore/internal/mapping"
)

func init() {
	registerEmployees()
}

func registerEmployees() {
	importer.Register(importer.Definition{
		Type:  importer.EntityEmployees,
		Label: "Employees",
		Fields: []mapping.Field{
			{Key: "email", Label: "Email", Required: true},
			{Key: "firstName", Label: "First Name"},
			{Key: "lastName", Label: "Last Name"},
			{Key: "fullName", Label: "Full Name"},
			{Key: "cardNumber", Label: "Card Number"},
			{Key: "employeeCode", Label: "Employee Code"},
			{Key: "position", Label: "Position"},
			{Key: "department", Label: "Department"},
			{Key: "hireDate", Label: "Hire Date"},
			{Key: "hourlyRate", Label: "Hourly Rate"},
			{Key: "active", Label: "Active"},
			{Key: "phone", Label: "Phone"},
		},
		FieldTypes: map[string]importer.FieldType{
			"hireDate":   importer.FieldDate,
			"hourlyRate": importer.FieldDecimal,
			"active":     importer.FieldBool,
		},
		Rules: []mapping.RequiredRule{
			mapping.Require("email", "Email"),
			mapping.RequireAny("first/last name or full name must be mapped",
				[]string{"firstName", "lastName"},
				[]string{"fullName"},
			),
		},
		RowRules:        []importer.RowRule{nameRule},
		UniqueKey:       []string{"email"},
		SecondaryUnique: []string{"cardNumber", "employeeCode"},
		Identity: importer.IdentitySpec{
			EmailField:     "email",
			CardField:      "cardNumber",
			CodeField:      "employeeCode",
			FirstNameField: "firstName",
			LastNameField:  "lastName",
		},
	})
}
