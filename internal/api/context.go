package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/survey-admin/internal/sessions"
)

type contextKey string

const sessionContextKey contextKey = "authoring_session"

// SessionFromContext extracts the authoring session from context
func SessionFromContext(ctx context.Context) *sessions.Session {
	s, ok := ctx.Value(sessionContextKey).(*sessions.Session)
	if !ok {
		return nil
	}
	return s
}

// ContextWithSession adds an authoring session to context
func ContextWithSession(ctx context.Context, s *sessions.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// sessionContext loads the session named by the {id} route parameter
func (s *Server) sessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
			return
		}

		sess, err := s.sessions.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, sessions.ErrSessionNotFound) {
				respondError(w, http.StatusNotFound, "session_not_found", "authoring session not found or expired")
				return
			}
			respondDomainError(w, err, "failed to load session")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
	})
}
