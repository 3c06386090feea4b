package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"importcore/internal/importer"
	"importcore/internal/mapping"
)

const ddl = `
CREATE TABLE IF NOT EXISTS import_jobs (
	id UUID PRIMARY KEY,
	entity_type TEXT NOT NULL,
	source_file_ref TEXT NOT NULL,
	original_file_name TEXT NOT NULL,
	status TEXT NOT NULL,
	field_mapping JSONB,
	total_records INT NOT NULL DEFAULT 0,
	success_count INT NOT NULL DEFAULT 0,
	failure_count INT NOT NULL DEFAULT 0,
	errors JSONB NOT NULL DEFAULT '[]',
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS records (
	id UUID PRIMARY KEY,
	entity_type TEXT NOT NULL,
	fields JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS records_entity_type_idx ON records (entity_type);
`

// DB wraps a pgx pool and implements both importer.JobStore and
// importer.RecordStore. Records live in a single JSONB table keyed by entity
// type; string comparisons go through lower() on the extracted field.
type DB struct {
	pool *pgxpool.Pool
}

// Open connects and verifies the connection.
func Open(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Migrate applies the schema. Idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, ddl)
	return err
}

func (d *DB) Close() {
	d.pool.Close()
}

func (d *DB) CreateJob(ctx context.Context, job *importer.Job) error {
	mappingJSON, errorsJSON, err := marshalJobBlobs(job)
	if err != nil {
		return err
	}
	_, err = d.pool.Exec(ctx, `
		INSERT INTO import_jobs
			(id, entity_type, source_file_ref, original_file_name, status,
			 field_mapping, total_records, success_count, failure_count,
			 errors, started_at, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID, job.EntityType, job.SourceFileRef, job.OriginalFileName, job.Status,
		mappingJSON, job.TotalRecords, job.SuccessCount, job.FailureCount,
		errorsJSON, job.StartedAt, job.CompletedAt, job.CreatedAt,
	)
	return err
}

func (d *DB) GetJob(ctx context.Context, id string) (*importer.Job, error) {
	var (
		job         importer.Job
		mappingJSON []byte
		errorsJSON  []byte
	)
	err := d.pool.QueryRow(ctx, `
		SELECT id, entity_type, source_file_ref, original_file_name, status,
		       field_mapping, total_records, success_count, failure_count,
		       errors, started_at, completed_at, created_at
		FROM import_jobs WHERE id = $1`, id,
	).Scan(
		&job.ID, &job.EntityType, &job.SourceFileRef, &job.OriginalFileName, &job.Status,
		&mappingJSON, &job.TotalRecords, &job.SuccessCount, &job.FailureCount,
		&errorsJSON, &job.StartedAt, &job.CompletedAt, &job.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if len(mappingJSON) > 0 {
		var fm mapping.FieldMapping
		if err := json.Unmarshal(mappingJSON, &fm); err != nil {
			return nil, fmt.Errorf("decode field mapping: %w", err)
		}
		job.FieldMapping = &fm
	}
	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &job.Errors); err != nil {
			return nil, fmt.Errorf("decode job errors: %w", err)
		}
	}
	return &job, nil
}

func (d *DB) UpdateJob(ctx context.Context, job *importer.Job) error {
	mappingJSON, errorsJSON, err := marshalJobBlobs(job)
	if err != nil {
		return err
	}
	tag, err := d.pool.Exec(ctx, `
		UPDATE import_jobs SET
			status = $2, field_mapping = $3, total_records = $4,
			success_count = $5, failure_count = $6, errors = $7,
			started_at = $8, completed_at = $9
		WHERE id = $1`,
		job.ID, job.Status, mappingJSON, job.TotalRecords,
		job.SuccessCount, job.FailureCount, errorsJSON,
		job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}
	return nil
}

func marshalJobBlobs(job *importer.Job) (mappingJSON, errorsJSON []byte, err error) {
	if job.FieldMapping != nil {
		if mappingJSON, err = json.Marshal(job.FieldMapping); err != nil {
			return nil, nil, fmt.Errorf("encode field mapping: %w", err)
		}
	}
	if errorsJSON, err = json.Marshal(job.Errors); err != nil {
		return nil, nil, fmt.Errorf("encode job errors: %w", err)
	}
	return mappingJSON, errorsJSON, nil
}

func (d *DB) FindByUnique(ctx context.Context, entity importer.EntityType, key map[string]string) (*importer.Record, bool, error) {
	if len(key) == 0 {
		return nil, false, nil
	}

	var (
		clauses []string
		args    = []any{string(entity)}
	)
	for field, value := range key {
		args = append(args, field, strings.ToLower(strings.TrimSpace(value)))
		clauses = append(clauses, fmt.Sprintf("lower(coalesce(fields->>$%d, '')) = $%d", len(args)-1, len(args)))
	}
	query := `SELECT id, fields FROM records WHERE entity_type = $1 AND ` +
		strings.Join(clauses, " AND ") + ` LIMIT 1`

	return d.scanRecord(d.pool.QueryRow(ctx, query, args...))
}

func (d *DB) FindByField(ctx context.Context, entity importer.EntityType, field, value string) (*importer.Record, bool, error) {
	return d.FindByUnique(ctx, entity, map[string]string{field: value})
}

func (d *DB) ListFieldValues(ctx context.Context, entity importer.EntityType, field string) (map[string]string, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, lower(fields->>$2)
		FROM records
		WHERE entity_type = $1 AND coalesce(fields->>$2, '') <> ''`,
		string(entity), field,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, value string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, err
		}
		out[value] = id
	}
	return out, rows.Err()
}

func (d *DB) CreateRecord(ctx context.Context, entity importer.EntityType, fields map[string]any) (string, error) {
	payload, err := json.Marshal(encodeFields(fields))
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	id := uuid.NewString()
	_, err = d.pool.Exec(ctx,
		`INSERT INTO records (id, entity_type, fields) VALUES ($1, $2, $3)`,
		id, string(entity), payload,
	)
	return id, err
}

func (d *DB) UpdateRecord(ctx context.Context, entity importer.EntityType, id string, fields map[string]any) error {
	payload, err := json.Marshal(encodeFields(fields))
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	// JSONB concatenation merges top-level keys, leaving unlisted fields
	// untouched.
	tag, err := d.pool.Exec(ctx, `
		UPDATE records SET fields = fields || $3, updated_at = now()
		WHERE id = $1 AND entity_type = $2`,
		id, string(entity), payload,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s/%s not found", entity, id)
	}
	return nil
}

func (d *DB) scanRecord(row pgx.Row) (*importer.Record, bool, error) {
	var (
		id      string
		payload []byte
	)
	if err := row.Scan(&id, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, false, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &importer.Record{ID: id, Fields: fields}, true, nil
}

// encodeFields renders dates as plain yyyy-mm-dd so JSONB text comparisons
// line up with the engine's key rendering.
func encodeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if t, ok := v.(time.Time); ok {
			out[k] = t.Format("2006-01-02")
			continue
		}
		out[k] = v
	}
	return out
}
