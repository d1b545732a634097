package models

import (
	"time"
)

// PublicationState represents the outcome of one persistence attempt
type PublicationState string

const (
	PublicationPending             PublicationState = "pending"
	PublicationCommitted           PublicationState = "committed"
	PublicationRolledBack          PublicationState = "rolled_back"
	PublicationCompensationPending PublicationState = "compensation_pending"
)

// Publication records a Save Draft or Publish attempt against the backend
type Publication struct {
	ID            string           `json:"id"`
	SessionID     string           `json:"session_id,omitempty"`
	TemplateID    string           `json:"template_id"`
	TemplateName  string           `json:"template_name"`
	TargetStatus  TemplateStatus   `json:"target_status"`
	QuestionCount int              `json:"question_count"`
	State         PublicationState `json:"state"`
	FailedStage   string           `json:"failed_stage,omitempty"`
	Error         string           `json:"error,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// OrphanKind identifies which remote record was left behind
type OrphanKind string

const (
	OrphanTemplate OrphanKind = "template"
	OrphanQuestion OrphanKind = "question"
)

// Orphan is a remote record whose compensating delete failed
type Orphan struct {
	ID            int64      `json:"id"`
	PublicationID string     `json:"publication_id"`
	Kind          OrphanKind `json:"kind"`
	RemoteID      string     `json:"remote_id"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// IsResolved returns true once the remote record was deleted
func (o *Orphan) IsResolved() bool {
	return o.ResolvedAt != nil
}

// PublicationFilters defines filters for listing publications
type PublicationFilters struct {
	State  PublicationState
	Limit  int
	Offset int
}
