package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"importcore/internal/blob"
	"importcore/internal/mapping"
	"importcore/internal/resolve"
	"importcore/internal/tabular"
)

var (
	// ErrUnknownEntity reports an entity type with no registered catalogue.
	ErrUnknownEntity = errors.New("unknown entity type")

	// ErrUnsupportedFile reports an upload with a file extension the parser
	// does not handle.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrMappingRequired reports validate/execute called before a mapping was
	// saved.
	ErrMappingRequired = errors.New("field mapping not saved")
)

// DefaultMinConfidence is the suggestion floor: column/field pairs scoring
// below it are not suggested at all.
const DefaultMinConfidence = 0.5

// sampleRowCount is how many leading data rows the upload response carries
// for the mapping preview.
const sampleRowCount = 5

var supportedExtensions = map[string]bool{
	".csv":  true,
	".tsv":  true,
	".txt":  true,
	".xls":  true,
	".xlsx": true,
}

// Service wires the import pipeline to its collaborators: job persistence,
// the record store it reconciles against, and the blob store holding
// uploaded files.
type Service struct {
	jobs    JobStore
	records RecordStore
	files   blob.Store
	log     *slog.Logger
	now     func() time.Time
}

func NewService(jobs JobStore, records RecordStore, files blob.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{jobs: jobs, records: records, files: files, log: log, now: time.Now}
}

// UploadResult is everything the mapping screen needs to render.
type UploadResult struct {
	ImportID        string               `json:"importId"`
	Columns         []string             `json:"columns"`
	SampleRows      []tabular.Row        `json:"sampleRows"`
	TotalRows       int                  `json:"totalRows"`
	AvailableFields []mapping.Field      `json:"availableFields"`
	Suggested       []mapping.Suggestion `json:"suggestedMappings"`
}

// Upload parses an uploaded file, persists its bytes, creates a PENDING job,
// and returns the columns with mapping suggestions. Bad files are rejected
// here and no job is created.
func (s *Service) Upload(ctx context.Context, entity EntityType, data []byte, fileName string) (*UploadResult, error) {
	def, ok := Lookup(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	cleanName := SanitizeFileName(fileName)
	if ext := strings.ToLower(filepath.Ext(cleanName)); !supportedExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}

	table, err := tabular.Parse(data)
	if err != nil {
		return nil, err
	}

	key := storageKey(cleanName, s.now())
	if err := s.files.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	job := &Job{
		ID:               uuid.NewString(),
		EntityType:       entity,
		SourceFileRef:    key,
		OriginalFileName: cleanName,
		Status:           StatusPending,
		TotalRecords:     len(table.Rows),
		CreatedAt:        s.now().UTC(),
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.log.Info("import uploaded",
		"importId", job.ID,
		"entity", entity,
		"file", cleanName,
		"rows", len(table.Rows),
	)

	sample := table.Rows
	if len(sample) > sampleRowCount {
		sample = sample[:sampleRowCount]
	}
	return &UploadResult{
		ImportID:        job.ID,
		Columns:         table.Headers,
		SampleRows:      sample,
		TotalRows:       len(table.Rows),
		AvailableFields: def.Fields,
		Suggested:       mapping.Suggest(table.Headers, def.Fields, DefaultMinConfidence),
	}, nil
}

// SaveMapping validates the operator's mapping against the file's actual
// headers and persists it on the job. An invalid mapping is rejected without
// touching the stored one.
func (s *Service) SaveMapping(ctx context.Context, importID string, entries []mapping.Entry, ignored []string) (*mapping.FieldMapping, error) {
	job, def, err := s.loadJob(ctx, importID)
	if err != nil {
		return nil, err
	}
	table, err := s.loadTable(ctx, job)
	if err != nil {
		return nil, err
	}

	fm, err := mapping.Validate(table.Headers, entries, ignored, def.Rules)
	if err != nil {
		return nil, err
	}

	job.FieldMapping = fm
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("save mapping: %w", err)
	}
	return fm, nil
}

// ValidationReport lists identifiers that did not resolve, grouped by the
// entity they reference. Rows remain untouched; this is a pre-flight check
// the operator can use to prepare manual matches.
type ValidationReport struct {
	Unmatched map[string][]string `json:"unmatched"`
}

// Validate dry-runs reference resolution over every row.
func (s *Service) Validate(ctx context.Context, importID string) (*ValidationReport, error) {
	job, def, err := s.loadJob(ctx, importID)
	if err != nil {
		return nil, err
	}
	if job.FieldMapping == nil {
		return nil, ErrMappingRequired
	}
	table, err := s.loadTable(ctx, job)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{Unmatched: make(map[string][]string)}
	resolvers := s.buildResolvers(def, nil)
	seen := make(map[string]bool)

	for _, row := range table.Rows {
		raw := extractRaw(row, job.FieldMapping)
		for _, spec := range def.Resolve {
			ref := spec.reference(raw)
			if referenceEmpty(ref) {
				continue
			}
			if _, err := resolvers[spec.Against].Resolve(ctx, ref); err != nil {
				if !isRowScoped(err) {
					return nil, err
				}
				category := string(spec.Against)
				label := referenceLabel(ref)
				if !seen[category+"|"+label] {
					seen[category+"|"+label] = true
					report.Unmatched[category] = append(report.Unmatched[category], label)
				}
			}
		}
	}
	return report, nil
}

// GetJob returns the persisted job, progress counters included.
func (s *Service) GetJob(ctx context.Context, importID string) (*Job, error) {
	job, err := s.jobs.GetJob(ctx, importID)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) loadJob(ctx context.Context, importID string) (*Job, Definition, error) {
	job, err := s.jobs.GetJob(ctx, importID)
	if err != nil {
		return nil, Definition{}, err
	}
	def, ok := Lookup(job.EntityType)
	if !ok {
		return nil, Definition{}, fmt.Errorf("%w: %s", ErrUnknownEntity, job.EntityType)
	}
	return job, def, nil
}

func (s *Service) loadTable(ctx context.Context, job *Job) (*tabular.Table, error) {
	data, err := s.files.Get(ctx, job.SourceFileRef)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", job.SourceFileRef, err)
	}
	return tabular.Parse(data)
}

// buildResolvers creates one run-scoped resolver per referenced entity, each
// with its own cache and a shared manual-match table.
func (s *Service) buildResolvers(def Definition, manual map[string]string) map[EntityType]*resolve.Resolver {
	resolvers := make(map[EntityType]*resolve.Resolver)
	for _, spec := range def.Resolve {
		if _, ok := resolvers[spec.Against]; ok {
			continue
		}
		target, ok := Lookup(spec.Against)
		if !ok {
			continue
		}
		resolvers[spec.Against] = resolve.New(newStoreLookup(s.records, target), resolve.NewCache(), manual)
	}
	return resolvers
}

// referenceLabel renders a reference for the validation report.
func referenceLabel(ref resolve.Reference) string {
	switch {
	case ref.Email != "":
		return ref.Email
	case ref.CardNumber != "":
		return ref.CardNumber
	case ref.Code != "":
		return ref.Code
	default:
		return strings.TrimSpace(ref.FirstName + " " + ref.LastName)
	}
}
