package importer_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"importcore/internal/blob"
	"importcore/internal/importer"
	_ "importcore/internal/importer/entities"
	"importcore/internal/mapping"
	"importcore/internal/store"
)

type testEnv struct {
	svc     *importer.Service
	jobs    *store.MemoryJobStore
	records *store.MemoryRecordStore
}

func newTestEnv() *testEnv {
	jobs := store.NewMemoryJobStore()
	records := store.NewMemoryRecordStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		svc:     importer.NewService(jobs, records, blob.NewMemory(), log),
		jobs:    jobs,
		records: records,
	}
}

func (e *testEnv) upload(t *testing.T, entity importer.EntityType, csv string) *importer.UploadResult {
	t.Helper()
	result, err := e.svc.Upload(context.Background(), entity, []byte(csv), "upload.csv")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	return result
}

func (e *testEnv) mapFields(t *testing.T, importID string, pairs map[string]string) {
	t.Helper()
	entries := make([]mapping.Entry, 0, len(pairs))
	for field, column := range pairs {
		entries = append(entries, mapping.Entry{TargetField: field, SourceColumn: column})
	}
	if _, err := e.svc.SaveMapping(context.Background(), importID, entries, nil); err != nil {
		t.Fatalf("SaveMapping() error = %v", err)
	}
}

var june10 = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

func TestImport_CreateWithRowFailure(t *testing.T) {
	env := newTestEnv()
	csv := "Email,First,Last\na@x.com,Ann,Lee\n,,\nb@x.com,Bo,\n"

	result := env.upload(t, importer.EntityCandidates, csv)

	// The fully blank row is dropped at parse time.
	if result.TotalRows != 2 {
		t.Errorf("TotalRows = %d, want 2", result.TotalRows)
	}
	found := false
	for _, sug := range result.Suggested {
		if sug.SourceColumn == "Email" && sug.TargetField == "email" {
			found = true
			if sug.Confidence != 1.0 {
				t.Errorf("Email suggestion confidence = %v, want 1.0", sug.Confidence)
			}
		}
	}
	if !found {
		t.Error("no suggestion for Email column")
	}

	// A mapping without the required email field is rejected.
	_, err := env.svc.SaveMapping(context.Background(), result.ImportID,
		[]mapping.Entry{
			{TargetField: "firstName", SourceColumn: "First"},
			{TargetField: "lastName", SourceColumn: "Last"},
		}, nil)
	if !errors.Is(err, mapping.ErrInvalidMapping) {
		t.Fatalf("SaveMapping() error = %v, want ErrInvalidMapping", err)
	}

	env.mapFields(t, result.ImportID, map[string]string{
		"email":     "Email",
		"firstName": "First",
		"lastName":  "Last",
	})

	summary, err := env.svc.Execute(context.Background(), result.ImportID, importer.Options{ReferenceDate: june10})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if summary.CreatedCount != 1 {
		t.Errorf("CreatedCount = %d, want 1", summary.CreatedCount)
	}
	if summary.FailedCount != 1 {
		t.Errorf("FailedCount = %d, want 1", summary.FailedCount)
	}
	if len(summary.Errors) != 1 || !strings.Contains(summary.Errors[0].Message, "first/last name required") {
		t.Errorf("Errors = %+v, want one first/last name failure", summary.Errors)
	}
	if env.records.Count(importer.EntityCandidates) != 1 {
		t.Errorf("record count = %d, want 1", env.records.Count(importer.EntityCandidates))
	}

	job, err := env.svc.GetJob(context.Background(), result.ImportID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != importer.StatusCompleted {
		t.Errorf("job status = %s, want COMPLETED", job.Status)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Error("job timestamps not set")
	}
}

func TestImport_AggregatesRowsPerEmployeeDay(t *testing.T) {
	env := newTestEnv()
	env.records.Seed(importer.EntityEmployees, "emp-1", map[string]any{
		"email": "x@y.com", "firstName": "Pat", "lastName": "Li",
	})

	csv := "Email,Date,Hours,Task\n" +
		"x@y.com,2024-06-01,4,Fence repair\n" +
		"x@y.com,2024-06-01,3.5,Painting\n"
	result := env.upload(t, importer.EntityDailyReport, csv)
	env.mapFields(t, result.ImportID, map[string]string{
		"employeeEmail": "Email",
		"reportDate":    "Date",
		"hoursWorked":   "Hours",
		"tasks":         "Task",
	})

	summary, err := env.svc.Execute(context.Background(), result.ImportID, importer.Options{ReferenceDate: june10})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if summary.CreatedCount != 1 {
		t.Fatalf("CreatedCount = %d, want 1 aggregated record", summary.CreatedCount)
	}
	if summary.ProcessedRows != 2 {
		t.Errorf("ProcessedRows = %d, want 2", summary.ProcessedRows)
	}
	if env.records.Count(importer.EntityDailyReport) != 1 {
		t.Fatalf("record count = %d, want 1", env.records.Count(importer.EntityDailyReport))
	}

	// Single record: fetch it through the natural unique key.
	rec, ok, err := env.records.FindByUnique(context.Background(), importer.EntityDailyReport, map[string]string{
		"employeeId": "emp-1",
		"reportDate": "2024-06-01",
	})
	if err != nil || !ok {
		t.Fatalf("FindByUnique() = %v, %v", ok, err)
	}
	fields := rec.Fields

	if got := fields["hoursWorked"]; got != 7.5 {
		t.Errorf("hoursWorked = %v, want 7.5", got)
	}
	tasks, _ := fields["tasks"].([]string)
	if len(tasks) != 2 {
		t.Errorf("tasks = %v, want 2 entries", tasks)
	}
}

func TestImport_SparseUpdatePreservesUnmappedFields(t *testing.T) {
	env := newTestEnv()
	env.records.Seed(importer.EntityCandidates, "cand-1", map[string]any{
		"email": "a@x.com", "firstName": "Ann", "lastName": "Lee", "phone": "555-0100",
	})

	csv := "Email,First,Last\na@x.com,Anna,Lee\n"
	result := env.upload(t, importer.EntityCandidates, csv)
	env.mapFields(t, result.ImportID, map[string]string{
		"email":     "Email",
		"firstName": "First",
		"lastName":  "Last",
	})

	summary, err := env.svc.Execute(context.Background(), result.ImportID, importer.Options{
		UpdateExisting: true,
		ReferenceDate:  june10,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if summary.UpdatedCount != 1 || summary.CreatedCount != 0 {
		t.Fatalf("summary = %+v, want one update", summary)
	}

	fields, _ := env.records.Get(importer.EntityCandidates, "cand-1")
	if fields["firstName"] != "Anna" {
		t.Errorf("firstName = %v, want Anna", fields["firstName"])
	}
	if fields["phone"] != "555-0100" {
		t.Errorf("phone = %v, unmapped field was not preserved", fields["phone"])
	}
}

func TestImport_SkipsMatchesWithoutUpdateExisting(t *testing.T) {
	env := newTestEnv()
	env.records.Seed(importer.EntityCandidates, "cand-1", map[string]any{
		"email": "a@x.com", "firstName": "Ann", "lastName": "Lee",
	})

	csv := "Email,First,Last\na@x.com,Anna,Lee\n"
	result := env.upload(t, importer.EntityCandidates, csv)
	env.mapFields(t, result.ImportID, map[string]string{
		"email":     "Email",
		"firstName": "First",
		"lastName":  "Last",
	})

	summary, err := env.svc.Execute(context.Background(), result.ImportID, importer.Options{ReferenceDate: june10})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if summary.SkippedCount != 1 || summary.UpdatedCount != 0 || summary.CreatedCount != 0 {
		t.Errorf("summary = %+v, want one skip", summary)
	}

	fields, _ := env.records.Get(importer.EntityCandidates, "cand-1")
	if fields["firstName"] != "Ann" {
		t.Errorf("firstName = %v, skipped row must not modify the record", fields["firstName"])
	}
}

func TestImport_IdempotentReExecution(t *testing.T) {
	env := newTestEnv()
	csv := "Email,First,Last\na@x.com,Ann,Lee\nb@x.com,Bo,Ray\n"
	result := env.upload(t, importer.EntityCandidates, csv)
	env.mapFields(t, result.ImportID, map[string]string{
		"email":     "Email",
		"firstName": "First",
		"lastName":  "Last",
	})
	opts := importer.Options{UpdateExisting: true, ReferenceDate: june10}

	first, err := env.svc.Execute(context.Background(), result.ImportID, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if first.CreatedCount != 2 {
		t.Fatalf("first run CreatedCount = %d, want 2", first.CreatedCount)
	}

	second, err := env.svc.Execute(context.Background(), result.ImportID, opts)
	if err != nil {
		t.Fatalf("Execute() second run error = %v", err)
	}
	if second.CreatedCount != 0 || second.UpdatedCount != 2 {
		t.Errorf("second run = %+v, want zero creates and two updates", second)
	}
	if env.records.Count(importer.EntityCandidates) != 2 {
		t.Errorf("record count = %d, want 2", env.records.Count(importer.EntityCandidates))
	}
}

func TestImport_ErrorListCapped(t *testing.T) {
	env := newTestEnv()

	var b strings.Builder
	b.WriteString("Email,First,Last\n")
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "u%d@x.com,Solo,\n", i) // missing last name fails every row
	}
	result := env.upload(t, importer.EntityCandidates, b.String())
	env.mapFields(t, result.ImportID, map[string]string{
		"email":     "Email",
		"firstName": "First",
		"lastName":  "Last",
	})

	summary, err := env.svc.Execute(context.Background(), result.ImportID, importer.Options{ReferenceDate: june10})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if summary.FailedCount != 60 {
		t.Errorf("FailedCount = %d, want 60", summary.FailedCount)
	}
	if len(summary.Errors) != importer.MaxReportedErrors {
		t.Errorf("len(Errors) = %d, want %d", len(summary.Errors), importer.MaxReportedErrors)
	}
}

// flakyRecordStore fails a chosen CreateRecord call to simulate the backing
// store going away mid-run.
type flakyRecordStore struct {
	*store.MemoryRecordStore
	failOnCreate int
	creates      int
}

func (s *flakyRecordStore) CreateRecord(ctx context.Context, entity importer.EntityType, fields map[string]any) (string, error) {
	s.creates++
	if s.creates == s.failOnCreate {
		return "", errors.New("connection reset by peer")
	}
	return s.MemoryRecordStore.CreateRecord(ctx, entity, fields)
}

func TestImport_FailedRunKeepsPartialCounts(t *testing.T) {
	jobs := store.NewMemoryJobStore()
	records := &flakyRecordStore{MemoryRecordStore: store.NewMemoryRecordStore(), failOnCreate: 2}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := importer.NewService(jobs, records, blob.NewMemory(), log)

	csv := "Email,First,Last\na@x.com,Ann,Lee\nb@x.com,Bo,Ray\n"
	result, err := svc.Upload(context.Background(), importer.EntityCandidates, []byte(csv), "upload.csv")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	entries := []mapping.Entry{
		{TargetField: "email", SourceColumn: "Email"},
		{TargetField: "firstName", SourceColumn: "First"},
		{TargetField: "lastName", SourceColumn: "Last"},
	}
	if _, err := svc.SaveMapping(context.Background(), result.ImportID, entries, nil); err != nil {
		t.Fatalf("SaveMapping() error = %v", err)
	}

	if _, err := svc.Execute(context.Background(), result.ImportID, importer.Options{ReferenceDate: june10}); err == nil {
		t.Fatal("Execute() error = nil, want the store failure to propagate")
	}

	job, err := svc.GetJob(context.Background(), result.ImportID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != importer.StatusFailed {
		t.Errorf("job status = %s, want FAILED", job.Status)
	}
	// The first row committed before the abort; the job row must not hide it.
	if job.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want the partial progress persisted", job.SuccessCount)
	}
	if records.Count(importer.EntityCandidates) != 1 {
		t.Errorf("record count = %d, want 1", records.Count(importer.EntityCandidates))
	}
	if job.CompletedAt == nil {
		t.Error("CompletedAt not set on failure")
	}
}

func TestImport_DerivesResumeLink(t *testing.T) {
	env := newTestEnv()
	csv := "Email,First,Last,Resume\n" +
		"a@x.com,Ann,Lee,<a href='https://drive.google.com/file/d/1AbC2dEf3GhI4jK/view'>CV</a>\n"
	result := env.upload(t, importer.EntityCandidates, csv)
	env.mapFields(t, result.ImportID, map[string]string{
		"email":     "Email",
		"firstName": "First",
		"lastName":  "Last",
		"resume":    "Resume",
	})

	summary, err := env.svc.Execute(context.Background(), result.ImportID, importer.Options{ReferenceDate: june10})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if summary.CreatedCount != 1 {
		t.Fatalf("CreatedCount = %d, want 1", summary.CreatedCount)
	}

	rec, ok, err := env.records.FindByUnique(context.Background(), importer.EntityCandidates, map[string]string{
		"email": "a@x.com",
	})
	if err != nil || !ok {
		t.Fatalf("FindByUnique() = %v, %v", ok, err)
	}
	want := "https://drive.google.com/file/d/1AbC2dEf3GhI4jK/view"
	if got := rec.Fields["resumeUrl"]; got != want {
		t.Errorf("resumeUrl = %v, want %q", got, want)
	}
}

func TestImport_RequiresMappingBeforeExecute(t *testing.T) {
	env := newTestEnv()
	result := env.upload(t, importer.EntityCandidates, "Email,First,Last\na@x.com,Ann,Lee\n")

	job, err := env.svc.GetJob(context.Background(), result.ImportID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != importer.StatusPending {
		t.Errorf("job status = %s, want PENDING", job.Status)
	}

	_, err = env.svc.Execute(context.Background(), result.ImportID, importer.Options{})
	if !errors.Is(err, importer.ErrMappingRequired) {
		t.Errorf("Execute() error = %v, want ErrMappingRequired", err)
	}
}

func TestImport_ManualMatchOverridesResolution(t *testing.T) {
	env := newTestEnv()
	env.records.Seed(importer.EntityEmployees, "emp-9", map[string]any{
		"email": "real@y.com", "firstName": "Pat", "lastName": "Li",
	})

	csv := "Email,Date,Hours\nnickname@y.com,2024-06-01,8\n"
	result := env.upload(t, importer.EntityDailyReport, csv)
	env.mapFields(t, result.ImportID, map[string]string{
		"employeeEmail": "Email",
		"reportDate":    "Date",
		"hoursWorked":   "Hours",
	})

	// Without the override the reference cannot resolve.
	failed, err := env.svc.Execute(context.Background(), result.ImportID, importer.Options{ReferenceDate: june10})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if failed.FailedCount != 1 {
		t.Fatalf("FailedCount = %d, want 1 unresolved reference", failed.FailedCount)
	}

	summary, err := env.svc.Execute(context.Background(), result.ImportID, importer.Options{
		ReferenceDate: june10,
		ManualMatches: map[string]string{"nickname@y.com": "emp-9"},
	})
	if err != nil {
		t.Fatalf("Execute() with manual match error = %v", err)
	}
	if summary.CreatedCount != 1 || summary.FailedCount != 0 {
		t.Errorf("summary = %+v, want one create via manual match", summary)
	}
}

func TestImport_SecondaryUniqueCollisionFailsRow(t *testing.T) {
	env := newTestEnv()
	env.records.Seed(importer.EntityEmployees, "emp-1", map[string]any{
		"email": "old@y.com", "firstName": "Pat", "lastName": "Li", "cardNumber": "C-900",
	})

	csv := "Email,First,Last,Card\nnew@y.com,Ann,Lee,C-900\n"
	result := env.upload(t, importer.EntityEmployees, csv)
	env.mapFields(t, result.ImportID, map[string]string{
		"email":      "Email",
		"firstName":  "First",
		"lastName":   "Last",
		"cardNumber": "Card",
	})

	summary, err := env.svc.Execute(context.Background(), result.ImportID, importer.Options{ReferenceDate: june10})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if summary.FailedCount != 1 || summary.CreatedCount != 0 {
		t.Fatalf("summary = %+v, want one collision failure", summary)
	}
	if !strings.Contains(summary.Errors[0].Message, "already in use") {
		t.Errorf("error = %q, want collision message", summary.Errors[0].Message)
	}
}

func TestValidate_ReportsUnmatchedIdentifiers(t *testing.T) {
	env := newTestEnv()
	env.records.Seed(importer.EntityEmployees, "emp-1", map[string]any{
		"email": "known@y.com", "firstName": "Pat", "lastName": "Li",
	})

	csv := "Email,Date,Hours\nknown@y.com,2024-06-01,4\nghost@y.com,2024-06-01,2\nghost@y.com,2024-06-02,3\n"
	result := env.upload(t, importer.EntityDailyReport, csv)
	env.mapFields(t, result.ImportID, map[string]string{
		"employeeEmail": "Email",
		"reportDate":    "Date",
		"hoursWorked":   "Hours",
	})

	report, err := env.svc.Validate(context.Background(), result.ImportID)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	unmatched := report.Unmatched["employees"]
	if len(unmatched) != 1 || unmatched[0] != "ghost@y.com" {
		t.Errorf("unmatched = %v, want [ghost@y.com] deduplicated", unmatched)
	}

	// Validate is a dry run: nothing was created.
	if env.records.Count(importer.EntityDailyReport) != 0 {
		t.Error("Validate() must not create records")
	}
}

func TestUpload_RejectsUnsupportedExtension(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.Upload(context.Background(), importer.EntityCandidates, []byte("a,b\n1,2\n"), "report.pdf")
	if !errors.Is(err, importer.ErrUnsupportedFile) {
		t.Errorf("Upload() error = %v, want ErrUnsupportedFile", err)
	}
}
