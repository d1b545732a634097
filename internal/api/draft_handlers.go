package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/survey-admin/internal/authoring"
	"github.com/terra-clan/survey-admin/internal/sessions"
)

// CreateDraftRequest starts an authoring session, optionally from a starter
type CreateDraftRequest struct {
	Name    string `json:"name,omitempty"`
	Starter string `json:"starter,omitempty"`
}

// SetNameRequest renames the draft
type SetNameRequest struct {
	Name string `json:"name"`
}

// AddQuestionRequest appends a question of the given type
type AddQuestionRequest struct {
	Type authoring.QuestionType `json:"type"`
}

// UpdateOptionRequest sets one category option
type UpdateOptionRequest struct {
	Value string `json:"value"`
}

// DraftResponse is the client-facing snapshot of an authoring session
type DraftResponse struct {
	ID           string               `json:"id"`
	Step         authoring.Step       `json:"step"`
	Name         string               `json:"name"`
	Questions    []authoring.Question `json:"questions"`
	Problems     []string             `json:"problems"`
	CanSave      bool                 `json:"can_save"`
	CanPublish   bool                 `json:"can_publish"`
	ScaleChoices []int                `json:"scale_choices"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// MutationResponse is returned by question edits
type MutationResponse struct {
	Question *authoring.Question `json:"question,omitempty"`
	Draft    DraftResponse       `json:"draft"`
}

// PersistResponse is returned by save and publish
type PersistResponse struct {
	*authoring.Result
	SessionClosed bool `json:"session_closed"`
}

func newDraftResponse(s *sessions.Session) DraftResponse {
	d := s.Wizard.Draft()
	problems := d.Problems()
	if problems == nil {
		problems = []string{}
	}
	questions := d.Questions()
	if questions == nil {
		questions = []authoring.Question{}
	}

	return DraftResponse{
		ID:           s.ID,
		Step:         s.Wizard.Step(),
		Name:         d.Name(),
		Questions:    questions,
		Problems:     problems,
		CanSave:      d.HasName(),
		CanPublish:   d.HasName() && len(problems) == 0,
		ScaleChoices: authoring.ScaleChoices(),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// decodeBody decodes a JSON request body; an empty body is allowed when optional
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// mutate applies fn to the wizard of the session in context and stores the result
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(w *authoring.Wizard) error) (*sessions.Session, bool) {
	sess := SessionFromContext(r.Context())
	updated, err := s.sessions.Update(r.Context(), sess.ID, func(sess *sessions.Session) error {
		if sess.Persisting {
			return sessions.ErrPersisting
		}
		return fn(sess.Wizard)
	})
	if err != nil {
		respondDomainError(w, err, "failed to update session")
		return nil, false
	}
	return updated, true
}

// Session lifecycle

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req CreateDraftRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	wizard := authoring.NewWizard()
	if req.Starter != "" {
		starter, err := s.starters.Get(req.Starter)
		if err != nil {
			respondDomainError(w, err, "failed to get starter")
			return
		}
		d, err := starter.Draft()
		if err != nil {
			respondDomainError(w, err, "failed to build draft from starter")
			return
		}
		wizard = authoring.NewWizardFrom(d)
	}
	if req.Name != "" {
		wizard.SetName(req.Name)
	}

	sess, err := s.sessions.Create(r.Context(), wizard)
	if err != nil {
		respondDomainError(w, err, "failed to create session")
		return
	}

	slog.Info("authoring session created", "session_id", sess.ID, "starter", req.Starter)
	respondJSON(w, http.StatusCreated, newDraftResponse(sess))
}

func (s *Server) handleImportDraft(w http.ResponseWriter, r *http.Request) {
	var d authoring.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("invalid draft: %v", err))
		return
	}
	d.Reissue()

	sess, err := s.sessions.Create(r.Context(), authoring.NewWizardFrom(&d))
	if err != nil {
		respondDomainError(w, err, "failed to create session")
		return
	}

	slog.Info("authoring session imported", "session_id", sess.ID, "questions", d.Len())
	respondJSON(w, http.StatusCreated, newDraftResponse(sess))
}

// maxStarterSize bounds an uploaded starter document
const maxStarterSize = 1 << 20

// handleUploadStarter starts a session from a starter document sent as
// YAML or JSON. The document is validated against the starter schema.
func (s *Server) handleUploadStarter(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStarterSize))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "invalid_request", "starter document too large")
		return
	}

	starter, err := s.starters.Parse(data)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_starter", err.Error())
		return
	}
	d, err := starter.Draft()
	if err != nil {
		respondDomainError(w, err, "failed to build draft from starter")
		return
	}

	sess, err := s.sessions.Create(r.Context(), authoring.NewWizardFrom(d))
	if err != nil {
		respondDomainError(w, err, "failed to create session")
		return
	}

	slog.Info("authoring session created from uploaded starter", "session_id", sess.ID, "starter", starter.Name)
	respondJSON(w, http.StatusCreated, newDraftResponse(sess))
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newDraftResponse(SessionFromContext(r.Context())))
}

func (s *Server) handleExportDraft(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, SessionFromContext(r.Context()).Wizard.Draft())
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	if err := s.sessions.Delete(r.Context(), sess.ID); err != nil {
		respondDomainError(w, err, "failed to delete session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "session deleted",
	})
}

// Wizard steps

func (s *Server) handleSetName(w http.ResponseWriter, r *http.Request) {
	var req SetNameRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	sess, ok := s.mutate(w, r, func(wz *authoring.Wizard) error {
		wz.SetName(req.Name)
		return nil
	})
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newDraftResponse(sess))
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.mutate(w, r, func(wz *authoring.Wizard) error {
		return wz.Next()
	})
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newDraftResponse(sess))
}

// handleBack steps back to naming; backing out of naming ends the session
func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	var exit bool
	sess, ok := s.mutate(w, r, func(wz *authoring.Wizard) error {
		exit = wz.Back()
		return nil
	})
	if !ok {
		return
	}

	if exit {
		if err := s.sessions.Delete(r.Context(), sess.ID); err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
			respondDomainError(w, err, "failed to delete session")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"exited": true,
		})
		return
	}

	respondJSON(w, http.StatusOK, newDraftResponse(sess))
}

// Question editing

func (s *Server) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var req AddQuestionRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	var q authoring.Question
	sess, ok := s.mutate(w, r, func(wz *authoring.Wizard) error {
		return wz.Edit(func(d *authoring.Draft) error {
			var err error
			q, err = d.AddQuestion(req.Type)
			return err
		})
	})
	if !ok {
		return
	}
	respondJSON(w, http.StatusCreated, MutationResponse{Question: &q, Draft: newDraftResponse(sess)})
}

func (s *Server) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var patch authoring.QuestionPatch
	if !decodeBody(w, r, &patch, false) {
		return
	}
	qid := chi.URLParam(r, "qid")

	var q authoring.Question
	sess, ok := s.mutate(w, r, func(wz *authoring.Wizard) error {
		return wz.Edit(func(d *authoring.Draft) error {
			var err error
			q, err = d.UpdateQuestion(qid, patch)
			return err
		})
	})
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, MutationResponse{Question: &q, Draft: newDraftResponse(sess)})
}

func (s *Server) handleRemoveQuestion(w http.ResponseWriter, r *http.Request) {
	qid := chi.URLParam(r, "qid")

	sess, ok := s.mutate(w, r, func(wz *authoring.Wizard) error {
		return wz.Edit(func(d *authoring.Draft) error {
			return d.RemoveQuestion(qid)
		})
	})
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, MutationResponse{Draft: newDraftResponse(sess)})
}

func (s *Server) handleAddOption(w http.ResponseWriter, r *http.Request) {
	qid := chi.URLParam(r, "qid")

	var q authoring.Question
	sess, ok := s.mutate(w, r, func(wz *authoring.Wizard) error {
		return wz.Edit(func(d *authoring.Draft) error {
			var err error
			q, err = d.AddOption(qid)
			return err
		})
	})
	if !ok {
		return
	}
	respondJSON(w, http.StatusCreated, MutationResponse{Question: &q, Draft: newDraftResponse(sess)})
}

func (s *Server) handleUpdateOption(w http.ResponseWriter, r *http.Request) {
	qid := chi.URLParam(r, "qid")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "option index must be a number")
		return
	}

	var req UpdateOptionRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	var q authoring.Question
	sess, ok := s.mutate(w, r, func(wz *authoring.Wizard) error {
		return wz.Edit(func(d *authoring.Draft) error {
			var err error
			q, err = d.UpdateOption(qid, index, req.Value)
			return err
		})
	})
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, MutationResponse{Question: &q, Draft: newDraftResponse(sess)})
}

// Persistence

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	s.persist(w, r, s.publisher.SaveDraft, "save draft")
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	s.persist(w, r, s.publisher.Publish, "publish")
}

type persistFunc func(ctx context.Context, sessionID string, d *authoring.Draft) (*authoring.Result, error)

// persist runs a save or publish and closes the session once the template
// is committed. The session is claimed first so only one persist runs per session.
func (s *Server) persist(w http.ResponseWriter, r *http.Request, fn persistFunc, action string) {
	id := SessionFromContext(r.Context()).ID

	sess, err := s.sessions.Update(r.Context(), id, func(sess *sessions.Session) error {
		if sess.Wizard.Step() != authoring.StepEditing {
			return authoring.ErrNotEditing
		}
		if sess.Persisting {
			return sessions.ErrPersisting
		}
		sess.Persisting = true
		return nil
	})
	if err != nil {
		respondDomainError(w, err, "failed to "+action)
		return
	}

	result, err := fn(r.Context(), sess.ID, sess.Wizard.Draft())
	if err != nil {
		s.release(r.Context(), sess.ID)
		respondDomainError(w, err, "failed to "+action)
		return
	}

	closed := true
	if err := s.sessions.Delete(r.Context(), sess.ID); err != nil {
		slog.Warn("failed to close session after persist", "session_id", sess.ID, "error", err)
		closed = false
	}

	slog.Info("template persisted",
		"action", action,
		"session_id", sess.ID,
		"template_id", result.TemplateID,
		"questions", len(result.QuestionIDs),
	)
	respondJSON(w, http.StatusCreated, PersistResponse{Result: result, SessionClosed: closed})
}

// release clears the persist claim so the user can retry
func (s *Server) release(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	_, err := s.sessions.Update(ctx, id, func(sess *sessions.Session) error {
		sess.Persisting = false
		return nil
	})
	if err != nil {
		slog.Warn("failed to release session after persist failure", "session_id", id, "error", err)
	}
}
