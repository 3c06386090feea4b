package entities

import (
	"importcore/internal/coerce"
	"importcore/internal/importer"
	"importcore/internal/mapping"
)

func init() {
	registerAttendanceEvents()
	registerDailyReports()
}

var attendanceEventTypes = []string{"CHECK_IN", "CHECK_OUT", "BREAK_START", "BREAK_END"}

var attendanceEventSynonyms = &coerce.SynonymTable{
	Order: []string{"BREAK_END", "BREAK_START", "CHECK_OUT", "CHECK_IN"},
	Synonyms: map[string][]string{
		"CHECK_IN":    {"in", "arrival", "clock_in", "start"},
		"CHECK_OUT":   {"out", "departure", "clock_out", "leave", "end"},
		"BREAK_START": {"break_start", "pause"},
		"BREAK_END":   {"break_end", "resume"},
	},
}

func registerAttendanceEvents() {
	importer.Register(importer.Definition{
		Type:  importer.EntityAttendance,
		Label: "Attendance Events",
		Fields: []mapping.Field{
			{Key: "employeeEmail", Label: "Employee Email"},
			{Key: "cardNumber", Label: "Card Number"},
			{Key: "eventDate", Label: "Event Date", Required: true},
			{Key: "eventType", Label: "Event Type", Required: true},
			{Key: "eventTime", Label: "Event Time"},
			{Key: "location", Label: "Location"},
		},
		FieldTypes: map[string]importer.FieldType{
			"eventDate": importer.FieldDate,
			"eventType": importer.FieldEnum,
		},
		Enums: map[string]importer.EnumSpec{
			"eventType": {Values: attendanceEventTypes, Synonyms: attendanceEventSynonyms},
		},
		Rules: []mapping.RequiredRule{
			mapping.RequireAny("employee email or card number must be mapped",
				[]string{"employeeEmail"},
				[]string{"cardNumber"},
			),
			mapping.Require("eventDate", "Event Date"),
			mapping.Require("eventType", "Event Type"),
		},
		UniqueKey: []string{"employeeId", "eventDate", "eventType"},
		Resolve: []importer.ResolveSpec{
			{
				Against:       importer.EntityEmployees,
				TargetIDField: "employeeId",
				EmailField:    "employeeEmail",
				CardField:     "cardNumber",
				Required:      true,
			},
		},
	})
}

func registerDailyReports() {
	importer.Register(importer.Definition{
		Type:  importer.EntityDailyReport,
		Label: "Daily Reports",
		Fields: []mapping.Field{
			{Key: "employeeEmail", Label: "Employee Email", Required: true},
			{Key: "reportDate", Label: "Report Date"},
			{Key: "tasks", Label: "Tasks"},
			{Key: "summary", Label: "Summary"},
			{Key: "hoursWorked", Label: "Hours Worked"},
			{Key: "blockers", Label: "Blockers"},
		},
		FieldTypes: map[string]importer.FieldType{
			"reportDate":  importer.FieldDate,
			"tasks":       importer.FieldList,
			"hoursWorked": importer.FieldDecimal,
			"blockers":    importer.FieldRichText,
		},
		Rules: []mapping.RequiredRule{
			mapping.Require("employeeEmail", "Employee Email"),
		},
		UniqueKey: []string{"employeeId", "reportDate"},
		Resolve: []importer.ResolveSpec{
			{
				Against:       importer.EntityEmployees,
				TargetIDField: "employeeId",
				EmailField:    "employeeEmail",
				Required:      true,
			},
		},
		Grouping: &importer.GroupingSpec{
			DateField:    "reportDate",
			TextField:    "summary",
			Additive:     []string{"hoursWorked"},
			ListFields:   []string{"tasks"},
			DedupeFields: []string{"summary"},
		},
	})
}
