package authoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	ErrQuestionNotFound    = errors.New("question not found")
	ErrInvalidScale        = errors.New("scale must be between 5 and 10")
	ErrNotCategory         = errors.New("question is not a category question")
	ErrNotRating           = errors.New("question is not a rating question")
	ErrOptionIndex         = errors.New("option index out of range")
	ErrNameRequired        = errors.New("template name is required")
	ErrNotReady            = errors.New("draft is not ready to publish")
	ErrNotEditing          = errors.New("wizard is not on the question step")
	ErrUnknownQuestionType = errors.New("unknown question type")
)

// Draft is a template under construction: a name and an ordered question list
type Draft struct {
	name      string
	questions []Question
}

// NewDraft creates an empty draft
func NewDraft(name string) *Draft {
	return &Draft{name: name}
}

// Name returns the template name as entered
func (d *Draft) Name() string {
	return d.name
}

// SetName replaces the template name
func (d *Draft) SetName(name string) {
	d.name = name
}

// HasName returns true if the name is not blank
func (d *Draft) HasName() bool {
	return strings.TrimSpace(d.name) != ""
}

// Questions returns a copy of the question list
func (d *Draft) Questions() []Question {
	out := make([]Question, len(d.questions))
	for i, q := range d.questions {
		out[i] = q.clone()
	}
	return out
}

// Len returns the number of questions
func (d *Draft) Len() int {
	return len(d.questions)
}

// AddQuestion appends a question with the type's default payload
func (d *Draft) AddQuestion(t QuestionType) (Question, error) {
	q, err := NewQuestion(t)
	if err != nil {
		return Question{}, err
	}
	d.questions = append(d.questions, q)
	return q.clone(), nil
}

// UpdateQuestion applies a patch to the question with the given id
func (d *Draft) UpdateQuestion(id string, patch QuestionPatch) (Question, error) {
	i, err := d.index(id)
	if err != nil {
		return Question{}, err
	}

	q := d.questions[i]
	if patch.Scale != nil {
		if q.Type != QuestionRating {
			return Question{}, fmt.Errorf("question %s: %w", id, ErrNotRating)
		}
		if !ValidScale(*patch.Scale) {
			return Question{}, fmt.Errorf("%w: %d", ErrInvalidScale, *patch.Scale)
		}
		q.Scale = *patch.Scale
	}
	if patch.Prompt != nil {
		q.Prompt = *patch.Prompt
	}

	d.questions[i] = q
	return q.clone(), nil
}

// AddOption appends an empty option slot to a category question
func (d *Draft) AddOption(id string) (Question, error) {
	i, err := d.categoryIndex(id)
	if err != nil {
		return Question{}, err
	}
	d.questions[i].Options = append(d.questions[i].Options, "")
	return d.questions[i].clone(), nil
}

// UpdateOption sets the option at a zero-based index of a category question
func (d *Draft) UpdateOption(id string, index int, value string) (Question, error) {
	i, err := d.categoryIndex(id)
	if err != nil {
		return Question{}, err
	}
	if index < 0 || index >= len(d.questions[i].Options) {
		return Question{}, fmt.Errorf("%w: %d", ErrOptionIndex, index)
	}
	d.questions[i].Options[index] = value
	return d.questions[i].clone(), nil
}

// RemoveQuestion deletes the question with the given id
func (d *Draft) RemoveQuestion(id string) error {
	i, err := d.index(id)
	if err != nil {
		return err
	}
	d.questions = append(d.questions[:i], d.questions[i+1:]...)
	return nil
}

// Problems lists every reason the draft cannot be published
func (d *Draft) Problems() []string {
	var problems []string
	if len(d.questions) == 0 {
		problems = append(problems, "template has no questions")
	}
	for _, q := range d.questions {
		problems = append(problems, q.Problems()...)
	}
	return problems
}

// Ready returns true if the question list can be published
func (d *Draft) Ready() bool {
	return len(d.Problems()) == 0
}

// Clone returns a deep copy of the draft
func (d *Draft) Clone() *Draft {
	return &Draft{name: d.name, questions: d.Questions()}
}

func (d *Draft) index(id string) (int, error) {
	for i, q := range d.questions {
		if q.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
}

func (d *Draft) categoryIndex(id string) (int, error) {
	i, err := d.index(id)
	if err != nil {
		return -1, err
	}
	if d.questions[i].Type != QuestionCategory {
		return -1, fmt.Errorf("%w: %s", ErrNotCategory, id)
	}
	return i, nil
}

// Reissue gives every question a fresh id, keeping order and content.
// Imported documents go through it so caller-chosen ids never reach the backend.
func (d *Draft) Reissue() {
	for i := range d.questions {
		d.questions[i].ID = newID()
	}
}

type draftJSON struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

func (d *Draft) MarshalJSON() ([]byte, error) {
	questions := d.questions
	if questions == nil {
		questions = []Question{}
	}
	return json.Marshal(draftJSON{Name: d.name, Questions: questions})
}

// UnmarshalJSON restores a draft and rejects any question that breaks
// the type invariants
func (d *Draft) UnmarshalJSON(data []byte) error {
	var raw draftJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(raw.Questions))
	for i, q := range raw.Questions {
		if q.ID == "" {
			q.ID = newID()
		}
		if q.Type == QuestionRating && q.Scale == 0 {
			q.Scale = DefaultScale
		}
		if q.Type == QuestionCategory && len(q.Options) == 0 {
			q.Options = []string{""}
		}
		raw.Questions[i] = q

		if err := q.validate(); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("duplicate question id %s", q.ID)
		}
		seen[q.ID] = struct{}{}
	}

	d.name = raw.Name
	d.questions = raw.Questions
	return nil
}
