package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"importcore/internal/importer"
	"importcore/internal/mapping"
)

// entityInfo is one catalogue entry in the entity listing.
type entityInfo struct {
	Type   importer.EntityType `json:"type"`
	Label  string              `json:"label"`
	Fields []mapping.Field     `json:"fields"`
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	defs := importer.All()
	out := make([]entityInfo, 0, len(defs))
	for _, def := range defs {
		out = append(out, entityInfo{Type: def.Type, Label: def.Label, Fields: def.Fields})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleUpload accepts a multipart file under the "file" field and creates a
// pending import job.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	entity := importer.EntityType(chi.URLParam(r, "entityType"))

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		s.respondError(w, r, errors.New("upload too large or malformed"), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errors.New(`multipart field "file" is required`), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	result, err := s.service.Upload(r.Context(), entity, data, header.Filename)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// mappingRequest is the save-mapping payload.
type mappingRequest struct {
	Mappings       []mapping.Entry `json:"mappings"`
	IgnoredColumns []string        `json:"ignoredColumns"`
}

func (s *Server) handleSaveMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, errors.New("invalid JSON body"), http.StatusBadRequest)
		return
	}

	fm, err := s.service.SaveMapping(r.Context(), chi.URLParam(r, "importID"), req.Mappings, req.IgnoredColumns)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fm)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Validate(r.Context(), chi.URLParam(r, "importID"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// executeRequest is the execute payload.
type executeRequest struct {
	UpdateExisting bool              `json:"updateExisting"`
	ManualMatches  map[string]string `json:"manualMatches"`
	ReferenceDate  string            `json:"referenceDate"` // yyyy-mm-dd, optional
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, errors.New("invalid JSON body"), http.StatusBadRequest)
			return
		}
	}

	opts := importer.Options{
		UpdateExisting: req.UpdateExisting,
		ManualMatches:  req.ManualMatches,
	}
	if req.ReferenceDate != "" {
		t, err := time.Parse("2006-01-02", req.ReferenceDate)
		if err != nil {
			s.respondError(w, r, errors.New("referenceDate must be yyyy-mm-dd"), http.StatusBadRequest)
			return
		}
		opts.ReferenceDate = t
	}

	summary, err := s.service.Execute(r.Context(), chi.URLParam(r, "importID"), opts)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// jobResponse is the job status payload.
type jobResponse struct {
	ImportID         string                `json:"importId"`
	EntityType       importer.EntityType   `json:"entityType"`
	OriginalFileName string                `json:"originalFileName"`
	Status           importer.Status       `json:"status"`
	FieldMapping     *mapping.FieldMapping `json:"fieldMapping,omitempty"`
	TotalRecords     int                   `json:"totalRecords"`
	SuccessCount     int                   `json:"successCount"`
	FailureCount     int                   `json:"failureCount"`
	Errors           []importer.RowError   `json:"errors,omitempty"`
	StartedAt        *time.Time            `json:"startedAt,omitempty"`
	CompletedAt      *time.Time            `json:"completedAt,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.GetJob(r.Context(), chi.URLParam(r, "importID"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{
		ImportID:         job.ID,
		EntityType:       job.EntityType,
		OriginalFileName: job.OriginalFileName,
		Status:           job.Status,
		FieldMapping:     job.FieldMapping,
		TotalRecords:     job.TotalRecords,
		SuccessCount:     job.SuccessCount,
		FailureCount:     job.FailureCount,
		Errors:           job.Errors,
		StartedAt:        job.StartedAt,
		CompletedAt:      job.CompletedAt,
		CreatedAt:        job.CreatedAt,
	})
}
