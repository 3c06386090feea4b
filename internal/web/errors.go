package web

// errors.go maps engine errors to HTTP responses. Technical detail is logged
// with the request id; clients get the message and a status code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"importcore/internal/importer"
	"importcore/internal/mapping"
	"importcore/internal/store"
	"importcore/internal/tabular"
)

type errorBody struct {
	Error string `json:"error"`
}

// respondServiceError classifies an error from the import service.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrJobNotFound):
		s.respondError(w, r, err, http.StatusNotFound)
	case errors.Is(err, importer.ErrUnknownEntity),
		errors.Is(err, importer.ErrUnsupportedFile),
		errors.Is(err, tabular.ErrMalformedInput):
		s.respondError(w, r, err, http.StatusBadRequest)
	case errors.Is(err, mapping.ErrInvalidMapping),
		errors.Is(err, importer.ErrMappingRequired):
		s.respondError(w, r, err, http.StatusUnprocessableEntity)
	default:
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// respondError logs the error and writes the JSON body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"request_id", chimw.GetReqID(r.Context()),
	)

	message := err.Error()
	if statusCode == http.StatusInternalServerError {
		message = "internal server error"
	}
	writeJSON(w, statusCode, errorBody{Error: message})
}

// writeJSON encodes v and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode", "error", err)
	}
}
