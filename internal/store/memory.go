// Package store persists import jobs and domain records. The Postgres
// implementation backs the server; the in-memory one backs tests and local
// development without a database.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"importcore/internal/importer"
)

// ErrJobNotFound is returned for an unknown import id.
var ErrJobNotFound = errors.New("import job not found")

// MemoryJobStore keeps jobs in a map.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]importer.Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]importer.Job)}
}

func (s *MemoryJobStore) CreateJob(_ context.Context, job *importer.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryJobStore) GetJob(_ context.Context, id string) (*importer.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return &job, nil
}

func (s *MemoryJobStore) UpdateJob(_ context.Context, job *importer.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}
	s.jobs[job.ID] = *job
	return nil
}

// MemoryRecordStore keeps records per entity type with case-insensitive
// field matching, mirroring the Postgres store's comparison semantics.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[importer.EntityType]map[string]map[string]any
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[importer.EntityType]map[string]map[string]any)}
}

// Seed inserts a record with a fixed id, for tests.
func (s *MemoryRecordStore) Seed(entity importer.EntityType, id string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[entity] == nil {
		s.records[entity] = make(map[string]map[string]any)
	}
	s.records[entity][id] = cloneFields(fields)
}

// Get returns a stored record's fields, for tests.
func (s *MemoryRecordStore) Get(entity importer.EntityType, id string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.records[entity][id]
	if !ok {
		return nil, false
	}
	return cloneFields(fields), true
}

// Count returns how many records exist for an entity, for tests.
func (s *MemoryRecordStore) Count(entity importer.EntityType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[entity])
}

func (s *MemoryRecordStore) FindByUnique(_ context.Context, entity importer.EntityType, key map[string]string) (*importer.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, fields := range s.records[entity] {
		match := true
		for field, want := range key {
			if normalizeValue(fields[field]) != strings.ToLower(strings.TrimSpace(want)) {
				match = false
				break
			}
		}
		if match && len(key) > 0 {
			return &importer.Record{ID: id, Fields: cloneFields(fields)}, true, nil
		}
	}
	return nil, false, nil
}

func (s *MemoryRecordStore) FindByField(ctx context.Context, entity importer.EntityType, field, value string) (*importer.Record, bool, error) {
	return s.FindByUnique(ctx, entity, map[string]string{field: value})
}

func (s *MemoryRecordStore) ListFieldValues(_ context.Context, entity importer.EntityType, field string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	for id, fields := range s.records[entity] {
		if v := normalizeValue(fields[field]); v != "" {
			out[v] = id
		}
	}
	return out, nil
}

func (s *MemoryRecordStore) CreateRecord(_ context.Context, entity importer.EntityType, fields map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records[entity] == nil {
		s.records[entity] = make(map[string]map[string]any)
	}
	id := uuid.NewString()
	s.records[entity][id] = cloneFields(fields)
	return id, nil
}

func (s *MemoryRecordStore) UpdateRecord(_ context.Context, entity importer.EntityType, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[entity][id]
	if !ok {
		return fmt.Errorf("record %s/%s not found", entity, id)
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// normalizeValue renders a stored value for comparison: lowercased, trimmed,
// dates as yyyy-mm-dd.
func normalizeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(t))
	case time.Time:
		return t.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.ToLower(fmt.Sprint(t))
	}
}
