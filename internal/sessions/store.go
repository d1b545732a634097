package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/terra-clan/survey-admin/internal/authoring"
)

// Common errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConflict        = errors.New("session was modified concurrently")
	ErrPersisting      = fmt.Errorf("%w: save or publish already in progress", ErrConflict)
)

// Session is one authoring session: a wizard and its timestamps.
// Persisting is set while a save or publish holds the session.
type Session struct {
	ID         string            `json:"id"`
	Wizard     *authoring.Wizard `json:"wizard"`
	Persisting bool              `json:"persisting,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Store defines the interface for authoring session storage.
// Sessions expire after an idle TTL; an expired session is simply gone.
type Store interface {
	Create(ctx context.Context, w *authoring.Wizard) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	// Update runs fn on a private copy and stores it only if fn succeeds
	Update(ctx context.Context, id string, fn func(s *Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// GenerateToken creates a cryptographically random 48-char hex token
func GenerateToken() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func newSession(w *authoring.Wizard, now time.Time) (*Session, error) {
	id, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	if w == nil {
		w = authoring.NewWizard()
	}
	return &Session{ID: id, Wizard: w, CreatedAt: now, UpdatedAt: now}, nil
}

func encode(s *Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Session, error) {
	s := &Session{Wizard: authoring.NewWizard()}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.Wizard == nil {
		s.Wizard = authoring.NewWizard()
	}
	return s, nil
}
