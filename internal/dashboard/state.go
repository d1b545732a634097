package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

// Section selects which records the dashboard lists
type Section string

const (
	SectionSurveys   Section = "surveys"
	SectionTemplates Section = "templates"
)

// Valid returns true for a known section
func (s Section) Valid() bool {
	return s == SectionSurveys || s == SectionTemplates
}

// ParseSection converts a path or query value into a Section
func ParseSection(v string) (Section, error) {
	s := Section(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, v)
	}
	return s, nil
}

// PageSizes are the selectable page sizes
var PageSizes = []int{5, 10, 20}

// DefaultPageSize is used when none is configured
const DefaultPageSize = 5

var (
	ErrUnknownSection  = errors.New("unknown section")
	ErrInvalidPageSize = errors.New("page size must be 5, 10 or 20")
)

// ValidPageSize reports whether n is one of PageSizes
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// Config is the display configuration: which section and whether the
// subset (completed surveys or published templates) is shown
type Config struct {
	Section Section `json:"section"`
	Subset  bool    `json:"subset"`
}

// State is the dashboard view state. It is a value: every reducer returns
// a new State and leaves the receiver untouched.
type State struct {
	Section       Section `json:"section"`
	CompletedOnly bool    `json:"completed_only"`
	PublishedOnly bool    `json:"published_only"`
	Search        string  `json:"search"`
	Page          int     `json:"page"`
	PageSize      int     `json:"page_size"`
}

// NewState returns the initial state: all surveys, first page
func NewState(pageSize int) State {
	if !ValidPageSize(pageSize) {
		pageSize = DefaultPageSize
	}
	return State{
		Section:  SectionSurveys,
		Page:     1,
		PageSize: pageSize,
	}
}

// Config returns the display configuration of the state
func (s State) Config() Config {
	return Config{Section: s.Section, Subset: s.Subset()}
}

// Subset reports whether the active section shows only its subset
func (s State) Subset() bool {
	if s.Section == SectionTemplates {
		return s.PublishedOnly
	}
	return s.CompletedOnly
}

// WithSection switches the active section
func (s State) WithSection(section Section) State {
	if section.Valid() {
		s.Section = section
	}
	return s
}

// WithSubset sets the subset toggle of a section
func (s State) WithSubset(section Section, on bool) State {
	switch section {
	case SectionSurveys:
		s.CompletedOnly = on
	case SectionTemplates:
		s.PublishedOnly = on
	}
	return s
}

// WithSearch sets the search term
func (s State) WithSearch(term string) State {
	s.Search = term
	return s
}

// WithPage moves to page p, never below 1
func (s State) WithPage(p int) State {
	if p < 1 {
		p = 1
	}
	s.Page = p
	return s
}

// NextPage advances one page; Clamp bounds it against the list
func (s State) NextPage() State {
	return s.WithPage(s.Page + 1)
}

// PrevPage goes back one page, stopping at 1
func (s State) PrevPage() State {
	return s.WithPage(s.Page - 1)
}

// WithPageSize changes the page size and returns to the first page
func (s State) WithPageSize(n int) (State, error) {
	if !ValidPageSize(n) {
		return s, fmt.Errorf("%w: %d", ErrInvalidPageSize, n)
	}
	s.PageSize = n
	s.Page = 1
	return s, nil
}

// Clamp keeps the page index within [1, max(1, pageCount)] for a
// filtered list of the given length
func (s State) Clamp(filtered int) State {
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	last := PageCount(filtered, s.PageSize)
	if last < 1 {
		last = 1
	}
	if s.Page > last {
		s.Page = last
	}
	if s.Page < 1 {
		s.Page = 1
	}
	return s
}
