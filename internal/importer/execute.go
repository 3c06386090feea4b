package importer

// execute.go runs one import job end to end: PROCESSING transition, strictly
// sequential per-row transform+resolve, grouping, then per-group
// reconciliation. Row failures are recorded and skipped over; only an
// unexpected error escaping the row handling fails the job.

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"importcore/internal/resolve"
	"importcore/internal/tabular"
)

// Execute processes every row of a job's uploaded file and returns the
// summary, which is also persisted onto the job. Counts reset at the start,
// so re-executing a job reports only the latest run.
func (s *Service) Execute(ctx context.Context, importID string, opts Options) (*Summary, error) {
	job, def, err := s.loadJob(ctx, importID)
	if err != nil {
		return nil, err
	}
	if job.FieldMapping == nil {
		return nil, ErrMappingRequired
	}

	started := s.now().UTC()
	job.Status = StatusProcessing
	job.SuccessCount = 0
	job.FailureCount = 0
	job.Errors = nil
	job.StartedAt = &started
	job.CompletedAt = nil
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("start job: %w", err)
	}

	summary, err := s.run(ctx, job, def, opts)
	if err != nil {
		s.failJob(ctx, job, summary, err)
		return nil, err
	}

	completed := s.now().UTC()
	job.Status = StatusCompleted
	job.TotalRecords = summary.TotalRows
	job.SuccessCount = summary.CreatedCount + summary.UpdatedCount + summary.SkippedCount
	job.FailureCount = summary.FailedCount
	job.Errors = summary.Errors
	job.CompletedAt = &completed
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("finish job: %w", err)
	}

	s.log.Info("import executed",
		"importId", job.ID,
		"entity", job.EntityType,
		"created", summary.CreatedCount,
		"updated", summary.UpdatedCount,
		"skipped", summary.SkippedCount,
		"failed", summary.FailedCount,
	)
	return summary, nil
}

// failJob records an unexpected failure; best effort, the original error is
// what propagates. Counts accumulated before the abort are persisted so the
// job row never hides partial progress behind the FAILED status.
func (s *Service) failJob(ctx context.Context, job *Job, partial *Summary, cause error) {
	now := s.now().UTC()
	job.Status = StatusFailed
	job.CompletedAt = &now
	if partial != nil {
		job.TotalRecords = partial.TotalRows
		job.SuccessCount = partial.CreatedCount + partial.UpdatedCount + partial.SkippedCount
		job.FailureCount = partial.FailedCount
		job.Errors = partial.Errors
	}
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		s.log.Error("mark job failed", "importId", job.ID, "error", err)
	}
	s.log.Error("import failed", "importId", job.ID, "error", cause)
}

func (s *Service) run(ctx context.Context, job *Job, def Definition, opts Options) (*Summary, error) {
	table, err := s.loadTable(ctx, job)
	if err != nil {
		return nil, err
	}

	refDate := opts.ReferenceDate
	if refDate.IsZero() {
		refDate = s.now().UTC()
	}

	summary := &Summary{ImportID: job.ID, TotalRows: len(table.Rows)}
	resolvers := s.buildResolvers(def, opts.ManualMatches)

	recordError := func(row int, err error) {
		summary.FailedCount++
		if len(summary.Errors) < MaxReportedErrors {
			summary.Errors = append(summary.Errors, RowError{Row: row, Message: err.Error()})
		}
	}

	// Pass 1: transform and resolve each row. The header is row 1, so the
	// first data row reports as row 2.
	var rows []*workRow
	for i, row := range table.Rows {
		number := i + 2
		summary.ProcessedRows++

		work, err := s.prepareRow(ctx, def, job, row, number, resolvers, refDate)
		if err != nil {
			if !isRowScoped(err) {
				return summary, err
			}
			recordError(number, err)
			continue
		}
		if work == nil {
			summary.SkippedCount++
			continue
		}
		rows = append(rows, work)
	}

	// Pass 2: reconcile each logical record once.
	for _, g := range groupRows(&def, rows, refDate) {
		outcome, err := s.reconcile(ctx, def, g, opts)
		if err != nil {
			if !isRowScoped(err) {
				return summary, err
			}
			recordError(g.first(), err)
			summary.FailedCount += len(g.rows) - 1
			continue
		}
		switch outcome {
		case outcomeCreated:
			summary.CreatedCount++
		case outcomeUpdated:
			summary.UpdatedCount++
		case outcomeSkipped:
			summary.SkippedCount++
		}
	}

	return summary, nil
}

// prepareRow extracts, checks, coerces, and resolves one row. A nil workRow
// with nil error means the row had no mapped data at all and is skipped.
func (s *Service) prepareRow(ctx context.Context, def Definition, job *Job, row tabular.Row, number int, resolvers map[EntityType]*resolve.Resolver, refDate time.Time) (*workRow, error) {
	raw := extractRaw(row, job.FieldMapping)

	empty := true
	for _, v := range raw {
		if v != "" {
			empty = false
			break
		}
	}
	if empty {
		return nil, nil
	}

	for _, key := range def.requiredFields() {
		if job.FieldMapping.Mapped(key) && raw[key] == "" {
			return nil, RowFailure("required field %q is empty", key)
		}
	}
	for _, rule := range def.RowRules {
		if err := rule(raw); err != nil {
			return nil, err
		}
	}

	values, err := transformRow(&def, raw, refDate)
	if err != nil {
		return nil, err
	}
	for _, transform := range def.Transforms {
		transform(values)
	}

	for _, spec := range def.Resolve {
		ref := spec.reference(raw)
		if referenceEmpty(ref) {
			if spec.Required {
				return nil, RowFailure("missing %s reference", spec.Against)
			}
			continue
		}
		id, err := resolvers[spec.Against].Resolve(ctx, ref)
		if err != nil {
			var ue *resolve.UnresolvedError
			if !spec.Required && errors.As(err, &ue) {
				continue
			}
			return nil, err
		}
		values[spec.TargetIDField] = id
	}

	return &workRow{number: number, raw: raw, values: values}, nil
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeSkipped
)

// reconcile applies the create-or-update decision for one logical record.
// Updates only touch the fields present in values, which by construction are
// exactly the operator-mapped ones, so unmapped stored fields survive.
func (s *Service) reconcile(ctx context.Context, def Definition, g *rowGroup, opts Options) (outcome, error) {
	key := uniqueKeyValues(def, g)

	if len(key) == len(def.UniqueKey) && len(key) > 0 {
		existing, found, err := s.records.FindByUnique(ctx, def.Type, key)
		if err != nil {
			return 0, fmt.Errorf("lookup %s: %w", def.Type, err)
		}
		if found {
			if !opts.UpdateExisting {
				return outcomeSkipped, nil
			}
			if err := s.records.UpdateRecord(ctx, def.Type, existing.ID, g.values); err != nil {
				return 0, fmt.Errorf("update %s %s: %w", def.Type, existing.ID, err)
			}
			return outcomeUpdated, nil
		}
	}

	for _, field := range def.SecondaryUnique {
		value := stringValue(g.values[field])
		if value == "" {
			continue
		}
		_, found, err := s.records.FindByField(ctx, def.Type, field, value)
		if err != nil {
			return 0, fmt.Errorf("lookup %s by %s: %w", def.Type, field, err)
		}
		if found {
			return 0, RowFailure("%s %q is already in use", field, value)
		}
	}

	if _, err := s.records.CreateRecord(ctx, def.Type, g.values); err != nil {
		return 0, fmt.Errorf("create %s: %w", def.Type, err)
	}
	return outcomeCreated, nil
}

// uniqueKeyValues renders the natural-key fields of a group as strings.
// Fields with no value are omitted; reconcile treats an incomplete key as
// unmatched and creates.
func uniqueKeyValues(def Definition, g *rowGroup) map[string]string {
	key := make(map[string]string, len(def.UniqueKey))
	for _, field := range def.UniqueKey {
		if v := stringValue(g.values[field]); v != "" {
			key[field] = v
		}
	}
	return key
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ",")
	default:
		return fmt.Sprint(t)
	}
}
