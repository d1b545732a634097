package authoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/terra-clan/survey-admin/internal/models"
	"github.com/terra-clan/survey-admin/pkg/client"
)

// Backend is the subset of the survey backend client used to persist drafts
type Backend interface {
	CreateTemplate(ctx context.Context, data models.CreateTemplateData) (*models.CreateTemplateResponse, error)
	CreateQuestion(ctx context.Context, question models.Question) (*models.CreateQuestionResponse, error)
	AddQuestionToTemplate(ctx context.Context, templateID, questionID string, order int) error
	UpdateTemplateStatus(ctx context.Context, templateID string, status models.TemplateStatus) error
	DeleteTemplate(ctx context.Context, templateID string) error
	DeleteQuestion(ctx context.Context, questionID string) error
}

// Journal records persistence attempts and anything they leave behind
type Journal interface {
	BeginPublication(ctx context.Context, p *models.Publication) error
	FinishPublication(ctx context.Context, p *models.Publication) error
	RecordOrphans(ctx context.Context, orphans []models.Orphan) error
}

// Stage names a step of the persistence sequence
type Stage string

const (
	StageJournal         Stage = "journal"
	StageCreateQuestions Stage = "create_questions"
	StageCreateTemplate  Stage = "create_template"
	StageAttachQuestions Stage = "attach_questions"
	StageSetStatus       Stage = "set_status"
)

// PersistError reports a failed Save Draft or Publish.
// Compensated is false when something could not be cleaned up remotely.
type PersistError struct {
	Stage       Stage
	Err         error
	Compensated bool
}

func (e *PersistError) Error() string {
	state := "rolled back"
	if !e.Compensated {
		state = "compensation pending"
	}
	return fmt.Sprintf("persist failed at %s (%s): %v", e.Stage, state, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Result describes a committed template
type Result struct {
	Publication models.Publication `json:"publication"`
	TemplateID  string             `json:"template_id"`
	QuestionIDs []string           `json:"question_ids"`
}

// Publisher persists drafts to the backend as template, questions and attachments.
// The backend has no multi-record transaction, so questions are staged
// first and every created record is deleted again if a later step fails.
type Publisher struct {
	backend             Backend
	journal             Journal
	compensationTimeout time.Duration
	now                 func() time.Time
}

// NewPublisher creates a new Publisher
func NewPublisher(backend Backend, journal Journal) *Publisher {
	return &Publisher{
		backend:             backend,
		journal:             journal,
		compensationTimeout: 30 * time.Second,
		now:                 time.Now,
	}
}

// SaveDraft persists the draft with status Draft. Only a name is required.
func (p *Publisher) SaveDraft(ctx context.Context, sessionID string, d *Draft) (*Result, error) {
	if !d.HasName() {
		return nil, ErrNameRequired
	}
	return p.persist(ctx, sessionID, d, models.TemplateDraft)
}

// Publish persists the draft with status Published once it is ready
func (p *Publisher) Publish(ctx context.Context, sessionID string, d *Draft) (*Result, error) {
	if !d.HasName() {
		return nil, ErrNameRequired
	}
	if problems := d.Problems(); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, strings.Join(problems, "; "))
	}
	return p.persist(ctx, sessionID, d, models.TemplatePublished)
}

// staged tracks what exists remotely so it can be undone
type staged struct {
	templateID  string
	questionIDs []string
}

func (p *Publisher) persist(ctx context.Context, sessionID string, d *Draft, status models.TemplateStatus) (*Result, error) {
	questions := d.Questions()
	now := p.now().UTC()

	pub := &models.Publication{
		ID:            ulid.Make().String(),
		SessionID:     sessionID,
		TemplateID:    uuid.New().String(),
		TemplateName:  strings.TrimSpace(d.Name()),
		TargetStatus:  status,
		QuestionCount: len(questions),
		State:         models.PublicationPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := p.journal.BeginPublication(ctx, pub); err != nil {
		return nil, &PersistError{Stage: StageJournal, Err: fmt.Errorf("failed to journal publication: %w", err), Compensated: true}
	}

	var st staged
	stage, err := p.apply(ctx, pub, questions, &st)
	if err != nil {
		compensated := p.compensate(ctx, pub, &st)

		pub.FailedStage = string(stage)
		pub.Error = err.Error()
		pub.State = models.PublicationRolledBack
		if !compensated {
			pub.State = models.PublicationCompensationPending
		}
		p.finish(ctx, pub)

		slog.Warn("template persistence failed",
			"publication", pub.ID,
			"template", pub.TemplateID,
			"stage", stage,
			"state", pub.State,
			"error", err,
		)
		return nil, &PersistError{Stage: stage, Err: err, Compensated: compensated}
	}

	pub.State = models.PublicationCommitted
	p.finish(ctx, pub)

	slog.Info("template persisted",
		"publication", pub.ID,
		"template", pub.TemplateID,
		"status", status,
		"questions", len(st.questionIDs),
	)

	return &Result{
		Publication: *pub,
		TemplateID:  pub.TemplateID,
		QuestionIDs: st.questionIDs,
	}, nil
}

// apply runs the forward steps and returns the stage that failed
func (p *Publisher) apply(ctx context.Context, pub *models.Publication, questions []Question, st *staged) (Stage, error) {
	// Ids are staged before each create so a record whose response was
	// lost still gets compensated.
	for _, q := range questions {
		st.questionIDs = append(st.questionIDs, q.ID)
		resp, err := p.backend.CreateQuestion(ctx, q.Backend())
		if err != nil {
			return StageCreateQuestions, err
		}
		if resp.QueId != "" {
			st.questionIDs[len(st.questionIDs)-1] = resp.QueId
		}
	}

	st.templateID = pub.TemplateID
	resp, err := p.backend.CreateTemplate(ctx, models.CreateTemplateData{
		TemplateId:   pub.TemplateID,
		TemplateName: pub.TemplateName,
	})
	if err != nil {
		return StageCreateTemplate, err
	}
	if resp.TemplateId != "" {
		st.templateID = resp.TemplateId
		pub.TemplateID = resp.TemplateId
	}

	for i, qid := range st.questionIDs {
		if err := p.backend.AddQuestionToTemplate(ctx, st.templateID, qid, i+1); err != nil {
			return StageAttachQuestions, err
		}
	}

	if err := p.backend.UpdateTemplateStatus(ctx, st.templateID, pub.TargetStatus); err != nil {
		return StageSetStatus, err
	}
	return "", nil
}

// compensate deletes the template first, then staged questions in reverse.
// A 404 counts as deleted. Other failures are journaled as orphans for the sweeper.
func (p *Publisher) compensate(ctx context.Context, pub *models.Publication, st *staged) bool {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.compensationTimeout)
	defer cancel()

	var orphans []models.Orphan
	now := p.now().UTC()

	if st.templateID != "" {
		if err := p.backend.DeleteTemplate(cctx, st.templateID); err != nil && !client.IsNotFound(err) {
			orphans = append(orphans, models.Orphan{
				PublicationID: pub.ID,
				Kind:          models.OrphanTemplate,
				RemoteID:      st.templateID,
				Attempts:      1,
				LastError:     err.Error(),
				CreatedAt:     now,
			})
		}
	}

	for i := len(st.questionIDs) - 1; i >= 0; i-- {
		qid := st.questionIDs[i]
		if err := p.backend.DeleteQuestion(cctx, qid); err != nil && !client.IsNotFound(err) {
			orphans = append(orphans, models.Orphan{
				PublicationID: pub.ID,
				Kind:          models.OrphanQuestion,
				RemoteID:      qid,
				Attempts:      1,
				LastError:     err.Error(),
				CreatedAt:     now,
			})
		}
	}

	if len(orphans) == 0 {
		return true
	}

	if err := p.journal.RecordOrphans(cctx, orphans); err != nil {
		slog.Error("failed to record orphans", "error", err, "publication", pub.ID, "count", len(orphans))
	}
	return false
}

func (p *Publisher) finish(ctx context.Context, pub *models.Publication) {
	pub.UpdatedAt = p.now().UTC()
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.compensationTimeout)
	defer cancel()

	if err := p.journal.FinishPublication(fctx, pub); err != nil {
		slog.Error("failed to finish publication", "error", err, "publication", pub.ID, "state", pub.State)
	}
}
