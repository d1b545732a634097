package dashboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	s := NewState(10)
	assert.Equal(t, SectionSurveys, s.Section)
	assert.Equal(t, 1, s.Page)
	assert.Equal(t, 10, s.PageSize)

	assert.Equal(t, DefaultPageSize, NewState(7).PageSize)
}

func TestReducersArePure(t *testing.T) {
	s := NewState(5)
	_ = s.WithSection(SectionTemplates).WithSearch("x").WithPage(3).WithSubset(SectionSurveys, true)
	assert.Equal(t, NewState(5), s)
}

func TestSubsetTogglesPerSection(t *testing.T) {
	s := NewState(5).WithSubset(SectionSurveys, true)
	assert.True(t, s.Subset())

	s = s.WithSection(SectionTemplates)
	assert.False(t, s.Subset())
	assert.Equal(t, Config{Section: SectionTemplates}, s.Config())

	s = s.WithSection(SectionSurveys)
	assert.True(t, s.Subset())
}

func TestPageMoves(t *testing.T) {
	s := NewState(5)
	assert.Equal(t, 1, s.PrevPage().Page)
	assert.Equal(t, 2, s.NextPage().Page)
	assert.Equal(t, 1, s.WithPage(-4).Page)

	s = s.WithPage(4)
	s, err := s.WithPageSize(20)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Page)
	assert.Equal(t, 20, s.PageSize)

	_, err = s.WithPageSize(15)
	assert.True(t, errors.Is(err, ErrInvalidPageSize))
}

func TestClamp(t *testing.T) {
	s := NewState(5).WithPage(4)
	assert.Equal(t, 4, s.Clamp(20).Page)
	assert.Equal(t, 3, s.Clamp(11).Page)
	assert.Equal(t, 1, s.Clamp(0).Page)
	assert.Equal(t, 1, NewState(5).Clamp(0).Page)
}

func TestParseSection(t *testing.T) {
	s, err := ParseSection(" Templates ")
	require.NoError(t, err)
	assert.Equal(t, SectionTemplates, s)

	_, err = ParseSection("reports")
	assert.True(t, errors.Is(err, ErrUnknownSection))
}

func TestReduce(t *testing.T) {
	s := NewState(5)

	s, err := Reduce(s, Action{Type: ActionSection, Section: SectionTemplates})
	require.NoError(t, err)
	assert.Equal(t, SectionTemplates, s.Section)

	s, err = Reduce(s, Action{Type: ActionSubset, Subset: true})
	require.NoError(t, err)
	assert.True(t, s.PublishedOnly)

	s, err = Reduce(s, Action{Type: ActionSearch, Search: "exit"})
	require.NoError(t, err)
	assert.Equal(t, "exit", s.Search)

	s, err = Reduce(s, Action{Type: ActionPage, Page: 3})
	require.NoError(t, err)
	s, _ = Reduce(s, Action{Type: ActionNext})
	s, _ = Reduce(s, Action{Type: ActionPrev})
	s, _ = Reduce(s, Action{Type: ActionPrev})
	assert.Equal(t, 2, s.Page)

	_, err = Reduce(s, Action{Type: ActionSection, Section: "reports"})
	assert.True(t, errors.Is(err, ErrUnknownSection))
	_, err = Reduce(s, Action{Type: "explode"})
	assert.Error(t, err)
	_, err = Reduce(s, Action{Type: ActionPageSize, PageSize: 3})
	assert.True(t, errors.Is(err, ErrInvalidPageSize))
}
