// Package importer owns the import job lifecycle and the reconciliation
// engine: transforming parsed rows into typed field values, resolving
// references to existing records, grouping one-to-many source rows, and
// executing the create-or-update pass with per-row error isolation.
package importer

import (
	"context"
	"time"

	"importcore/internal/mapping"
)

// EntityType tags which domain catalogue an import job targets.
type EntityType string

const (
	EntityCandidates  EntityType = "candidates"
	EntityEmployees   EntityType = "employees"
	EntityContacts    EntityType = "contacts"
	EntityLeads       EntityType = "leads"
	EntityInvoices    EntityType = "invoices"
	EntityAttendance  EntityType = "attendance_events"
	EntityDailyReport EntityType = "daily_reports"
)

// Status is the import job state machine. A job is created PENDING on
// upload, moves to PROCESSING when execute begins, and ends COMPLETED even
// when individual rows failed; FAILED is reserved for an unexpected error
// escaping the per-row handling. There is no cancelled state and no
// checkpointing: a failed run re-executes from row one.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// MaxReportedErrors caps the per-job error list. Rows past the cap still
// count as failures but are not individually reported.
const MaxReportedErrors = 50

// RowError is one recorded row failure.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Job is one unit of import work. It is created on upload and mutated only
// by the mapping-save and execute operations; the core never deletes jobs.
type Job struct {
	ID               string
	EntityType       EntityType
	SourceFileRef    string
	OriginalFileName string
	Status           Status
	FieldMapping     *mapping.FieldMapping
	TotalRecords     int
	SuccessCount     int
	FailureCount     int
	Errors           []RowError
	StartedAt        *time.Time
	CompletedAt      *time.Time
	CreatedAt        time.Time
}

// Summary is the synchronous result of one execute call, also persisted onto
// the job. It is the single source of truth for what happened: partial
// success is never reported as overall failure.
type Summary struct {
	ImportID  string `json:"importId"`
	TotalRows int    `json:"totalRows"`

	// ProcessedRows counts every source row the run examined, including
	// rows that ended up skipped or failed; it overlaps the outcome
	// counters rather than partitioning with them.
	ProcessedRows int `json:"processedRows"`
	CreatedCount  int        `json:"createdCount"`
	UpdatedCount  int        `json:"updatedCount"`
	SkippedCount  int        `json:"skippedCount"`
	FailedCount   int        `json:"failedCount"`
	Errors        []RowError `json:"errors"`
}

// Options controls one execute call.
type Options struct {
	// UpdateExisting enables updating records matched by the natural unique
	// key. When false, matched rows are counted as skipped.
	UpdateExisting bool

	// ManualMatches maps operator-supplied identifier strings to record ids,
	// overriding automatic resolution.
	ManualMatches map[string]string

	// ReferenceDate anchors ambiguous date parsing; zero means now.
	ReferenceDate time.Time
}

// Record is a persisted domain record as the engine sees it.
type Record struct {
	ID     string
	Fields map[string]any
}

// JobStore persists import jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	UpdateJob(ctx context.Context, job *Job) error
}

// RecordStore is the record persistence surface the engine reconciles
// against. String key comparisons are case-insensitive.
type RecordStore interface {
	// FindByUnique looks a record up by the entity's natural unique key.
	FindByUnique(ctx context.Context, entity EntityType, key map[string]string) (*Record, bool, error)

	// FindByField looks a record up by a single field value.
	FindByField(ctx context.Context, entity EntityType, field, value string) (*Record, bool, error)

	// ListFieldValues returns every non-empty value of a field with its
	// record id, for building run-scoped match indexes.
	ListFieldValues(ctx context.Context, entity EntityType, field string) (map[string]string, error)

	CreateRecord(ctx context.Context, entity EntityType, fields map[string]any) (string, error)
	UpdateRecord(ctx context.Context, entity EntityType, id string, fields map[string]any) error
}
