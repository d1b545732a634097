package authoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/terra-clan/survey-admin/internal/models"
)

// QuestionType is fixed when a question is created
type QuestionType string

const (
	QuestionRating   QuestionType = "rating"
	QuestionCategory QuestionType = "category"
)

// Rating scale domain
const (
	MinScale     = 5
	MaxScale     = 10
	DefaultScale = MinScale
)

// Valid returns true for a known question type
func (t QuestionType) Valid() bool {
	return t == QuestionRating || t == QuestionCategory
}

// Criteria maps the type to the backend's question criteria
func (t QuestionType) Criteria() models.QuestionCriteria {
	if t == QuestionCategory {
		return models.CriteriaCategorical
	}
	return models.CriteriaScale
}

// Question is a draft question held by an authoring session
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Scale   int          `json:"scale,omitempty"`
	Options []string     `json:"options,omitempty"`
}

// QuestionPatch holds the fields that may change after creation.
// There is no type field: a question never changes type.
type QuestionPatch struct {
	Prompt *string `json:"prompt,omitempty"`
	Scale  *int    `json:"scale,omitempty"`
}

func newID() string {
	return ulid.Make().String()
}

// NewQuestion creates a question with the type's default payload
func NewQuestion(t QuestionType) (Question, error) {
	switch t {
	case QuestionRating:
		return Question{ID: newID(), Type: t, Scale: DefaultScale}, nil
	case QuestionCategory:
		return Question{ID: newID(), Type: t, Options: []string{""}}, nil
	default:
		return Question{}, fmt.Errorf("%w: %q", ErrUnknownQuestionType, t)
	}
}

// ValidScale reports whether s is inside the rating domain
func ValidScale(s int) bool {
	return s >= MinScale && s <= MaxScale
}

// ScaleChoices lists every selectable rating scale
func ScaleChoices() []int {
	choices := make([]int, 0, MaxScale-MinScale+1)
	for s := MinScale; s <= MaxScale; s++ {
		choices = append(choices, s)
	}
	return choices
}

// validate checks the structural invariants that hold at all times,
// blank text is allowed while editing
func (q Question) validate() error {
	if q.ID == "" {
		return fmt.Errorf("question id is required")
	}
	switch q.Type {
	case QuestionRating:
		if !ValidScale(q.Scale) {
			return fmt.Errorf("question %s: %w: %d", q.ID, ErrInvalidScale, q.Scale)
		}
		if len(q.Options) > 0 {
			return fmt.Errorf("question %s: rating question cannot have options", q.ID)
		}
	case QuestionCategory:
		if len(q.Options) == 0 {
			return fmt.Errorf("question %s: category question needs at least one option", q.ID)
		}
		if q.Scale != 0 {
			return fmt.Errorf("question %s: category question cannot have a scale", q.ID)
		}
	default:
		return fmt.Errorf("question %s: %w: %q", q.ID, ErrUnknownQuestionType, q.Type)
	}
	return nil
}

// Problems lists what blocks this question from being published
func (q Question) Problems() []string {
	var problems []string
	if strings.TrimSpace(q.Prompt) == "" {
		problems = append(problems, fmt.Sprintf("question %s has a blank prompt", q.ID))
	}
	if q.Type == QuestionCategory {
		if len(q.Options) == 0 {
			problems = append(problems, fmt.Sprintf("question %s has no options", q.ID))
		}
		for i, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				problems = append(problems, fmt.Sprintf("question %s option %d is blank", q.ID, i+1))
			}
		}
	}
	return problems
}

// Backend converts the draft question into the backend's wire shape
func (q Question) Backend() models.Question {
	bq := models.Question{
		QueId:       q.ID,
		QueText:     strings.TrimSpace(q.Prompt),
		QueCriteria: q.Type.Criteria(),
	}
	if q.Type == QuestionRating {
		bq.QueScale = strconv.Itoa(q.Scale)
		return bq
	}
	bq.QueCategories = make(models.Categories, len(q.Options))
	for i, opt := range q.Options {
		bq.QueCategories[i] = strings.TrimSpace(opt)
	}
	return bq
}

func (q Question) clone() Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	return q
}
