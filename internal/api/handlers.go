package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/survey-admin/internal/authoring"
	"github.com/terra-clan/survey-admin/internal/models"
	"github.com/terra-clan/survey-admin/internal/sessions"
	"github.com/terra-clan/survey-admin/internal/starters"
	"github.com/terra-clan/survey-admin/internal/storage"
	"github.com/terra-clan/survey-admin/pkg/client"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondErrorDetails(w, status, code, message, nil)
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// backendDetails describes a failed backend call
type backendDetails struct {
	Kind        client.Kind `json:"kind,omitempty"`
	StatusCode  int         `json:"status_code,omitempty"`
	Stage       string      `json:"stage,omitempty"`
	Compensated *bool       `json:"compensated,omitempty"`
}

// respondDomainError maps service errors onto HTTP statuses
func respondDomainError(w http.ResponseWriter, err error, fallback string) {
	var persistErr *authoring.PersistError
	var clientErr *client.Error

	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", "authoring session not found or expired")
	case errors.Is(err, sessions.ErrPersisting):
		respondError(w, http.StatusConflict, "persist_in_progress", err.Error())
	case errors.Is(err, sessions.ErrConflict):
		respondError(w, http.StatusConflict, "conflict", "session was modified concurrently, retry")
	case errors.Is(err, authoring.ErrQuestionNotFound):
		respondError(w, http.StatusNotFound, "question_not_found", err.Error())
	case errors.Is(err, starters.ErrStarterNotFound):
		respondError(w, http.StatusNotFound, "starter_not_found", err.Error())
	case errors.Is(err, storage.ErrPublicationNotFound):
		respondError(w, http.StatusNotFound, "not_found", "publication not found")
	case errors.Is(err, authoring.ErrNotEditing):
		respondError(w, http.StatusConflict, "wrong_step", err.Error())
	case errors.Is(err, authoring.ErrNameRequired), errors.Is(err, authoring.ErrNotReady):
		respondError(w, http.StatusUnprocessableEntity, "not_ready", err.Error())
	case errors.Is(err, authoring.ErrInvalidScale),
		errors.Is(err, authoring.ErrNotCategory),
		errors.Is(err, authoring.ErrNotRating),
		errors.Is(err, authoring.ErrOptionIndex),
		errors.Is(err, authoring.ErrUnknownQuestionType):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.As(err, &persistErr):
		status := http.StatusBadGateway
		if persistErr.Stage == authoring.StageJournal {
			status = http.StatusInternalServerError
		}
		compensated := persistErr.Compensated
		details := backendDetails{
			Kind:        client.KindOf(err),
			Stage:       string(persistErr.Stage),
			Compensated: &compensated,
		}
		if errors.As(err, &clientErr) {
			details.StatusCode = clientErr.StatusCode
		}
		slog.Error(fallback, "error", err, "stage", persistErr.Stage, "compensated", compensated)
		respondErrorDetails(w, status, "persist_failed", err.Error(), details)
	case errors.As(err, &clientErr):
		slog.Error(fallback, "error", err, "kind", clientErr.Kind)
		respondErrorDetails(w, http.StatusBadGateway, "backend_error", err.Error(), backendDetails{
			Kind:       clientErr.Kind,
			StatusCode: clientErr.StatusCode,
		})
	default:
		slog.Error(fallback, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	report, ok := s.health.Report(r.Context())
	if !ok {
		slog.Warn("service not ready", "checks", report)
		respondErrorDetails(w, http.StatusServiceUnavailable, "not_ready", "service not ready", report)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": report,
	})
}

// Starter handlers

func (s *Server) handleListStarters(w http.ResponseWriter, r *http.Request) {
	list := s.starters.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"starters": list,
		"total":    len(list),
	})
}

func (s *Server) handleGetStarter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "starter name is required")
		return
	}

	starter, err := s.starters.Get(name)
	if err != nil {
		respondDomainError(w, err, "failed to get starter")
		return
	}

	respondJSON(w, http.StatusOK, starter)
}

// Publication handlers

func (s *Server) handleListPublications(w http.ResponseWriter, r *http.Request) {
	filters := models.PublicationFilters{
		State:  models.PublicationState(r.URL.Query().Get("state")),
		Limit:  50, // default
		Offset: 0,
	}

	switch filters.State {
	case "", models.PublicationPending, models.PublicationCommitted,
		models.PublicationRolledBack, models.PublicationCompensationPending:
	default:
		respondError(w, http.StatusBadRequest, "validation_error", "unknown publication state")
		return
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	publications, err := s.journal.ListPublications(r.Context(), filters)
	if err != nil {
		respondDomainError(w, err, "failed to list publications")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"publications": publications,
		"total":        len(publications),
	})
}

func (s *Server) handleGetPublication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.journal.GetPublication(r.Context(), id)
	if err != nil {
		respondDomainError(w, err, "failed to get publication")
		return
	}
	if p == nil {
		respondError(w, http.StatusNotFound, "not_found", "publication not found")
		return
	}

	respondJSON(w, http.StatusOK, p)
}
