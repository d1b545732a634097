package authoring

import (
	"encoding/json"
	"fmt"
)

// Step names a wizard state
type Step string

const (
	StepNaming  Step = "naming"
	StepEditing Step = "editing"
)

// State is one of Naming or Editing
type State interface {
	Step() Step
	isState()
}

// Naming collects the template name. Questions from a previous visit to
// the editing step are kept so going back and forth loses nothing.
type Naming struct {
	Name     string
	retained []Question
}

func (Naming) Step() Step { return StepNaming }
func (Naming) isState()   {}

// Editing holds the named draft whose questions are being built
type Editing struct {
	Draft *Draft
}

func (Editing) Step() Step { return StepEditing }
func (Editing) isState()   {}

// Wizard is the two-step authoring flow
type Wizard struct {
	state State
}

// NewWizard starts in the naming step with an empty name
func NewWizard() *Wizard {
	return &Wizard{state: Naming{}}
}

// NewWizardFrom starts in the naming step pre-filled from an existing draft
func NewWizardFrom(d *Draft) *Wizard {
	return &Wizard{state: Naming{Name: d.Name(), retained: d.Questions()}}
}

// State returns the current wizard state
func (w *Wizard) State() State {
	return w.state
}

// Step returns the current step
func (w *Wizard) Step() Step {
	return w.state.Step()
}

// SetName sets the template name in either step
func (w *Wizard) SetName(name string) {
	switch s := w.state.(type) {
	case Naming:
		s.Name = name
		w.state = s
	case Editing:
		s.Draft.SetName(name)
	}
}

// Next moves from naming to editing once the name is non-blank
func (w *Wizard) Next() error {
	s, ok := w.state.(Naming)
	if !ok {
		return nil
	}

	d := &Draft{name: s.Name, questions: s.retained}
	if !d.HasName() {
		return ErrNameRequired
	}
	w.state = Editing{Draft: d}
	return nil
}

// Back moves from editing to naming keeping name and questions.
// It returns true when called from naming, meaning the caller should exit.
func (w *Wizard) Back() (exit bool) {
	s, ok := w.state.(Editing)
	if !ok {
		return true
	}
	w.state = Naming{Name: s.Draft.Name(), retained: s.Draft.Questions()}
	return false
}

// Edit runs fn against the draft; only allowed in the editing step
func (w *Wizard) Edit(fn func(d *Draft) error) error {
	s, ok := w.state.(Editing)
	if !ok {
		return ErrNotEditing
	}
	return fn(s.Draft)
}

// Draft returns a copy of the draft in whichever step the wizard is
func (w *Wizard) Draft() *Draft {
	switch s := w.state.(type) {
	case Editing:
		return s.Draft.Clone()
	case Naming:
		d := &Draft{name: s.Name, questions: s.retained}
		return d.Clone()
	}
	return NewDraft("")
}

type wizardJSON struct {
	Step  Step   `json:"step"`
	Draft *Draft `json:"draft"`
}

func (w *Wizard) MarshalJSON() ([]byte, error) {
	return json.Marshal(wizardJSON{Step: w.Step(), Draft: w.Draft()})
}

func (w *Wizard) UnmarshalJSON(data []byte) error {
	raw := wizardJSON{Draft: NewDraft("")}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Draft == nil {
		raw.Draft = NewDraft("")
	}

	switch raw.Step {
	case StepNaming, "":
		w.state = Naming{Name: raw.Draft.Name(), retained: raw.Draft.questions}
	case StepEditing:
		if !raw.Draft.HasName() {
			return fmt.Errorf("editing step snapshot without a name: %w", ErrNameRequired)
		}
		w.state = Editing{Draft: raw.Draft}
	default:
		return fmt.Errorf("unknown wizard step %q", raw.Step)
	}
	return nil
}
