package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/survey-admin/internal/models"
	"github.com/terra-clan/survey-admin/pkg/client"
)

type fakeFetcher struct {
	mu        sync.Mutex
	surveys   []models.Survey
	completed []models.Survey
	templates []models.Template
	published []models.Template
	err       error
	calls     []string

	hold    bool
	started chan struct{}
}

func (f *fakeFetcher) enter(ctx context.Context, call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	err := f.err
	hold := f.hold
	started := f.started
	f.hold = false
	f.mu.Unlock()

	if hold {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeFetcher) set(fn func(f *fakeFetcher)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeFetcher) FetchAllSurveys(ctx context.Context) ([]models.Survey, error) {
	if err := f.enter(ctx, "surveys"); err != nil {
		return nil, err
	}
	return f.surveys, nil
}

func (f *fakeFetcher) FetchCompletedSurveys(ctx context.Context) ([]models.Survey, error) {
	if err := f.enter(ctx, "completed"); err != nil {
		return nil, err
	}
	return f.completed, nil
}

func (f *fakeFetcher) FetchSurveyStats(ctx context.Context) (*models.SurveyStats, error) {
	return &models.SurveyStats{TotalSurveys: len(f.surveys), PercentSurveys: "5"}, nil
}

func (f *fakeFetcher) FetchAllTemplates(ctx context.Context) ([]models.Template, error) {
	if err := f.enter(ctx, "templates"); err != nil {
		return nil, err
	}
	return f.templates, nil
}

func (f *fakeFetcher) FetchPublishedTemplates(ctx context.Context) ([]models.Template, error) {
	if err := f.enter(ctx, "published"); err != nil {
		return nil, err
	}
	return f.published, nil
}

func (f *fakeFetcher) FetchTemplateStats(ctx context.Context) (*models.TemplateStats, error) {
	return &models.TemplateStats{TotalTemplates: len(f.templates), PercentTemplates: "-1"}, nil
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		surveys:   makeSurveys(12),
		completed: makeSurveys(2),
		templates: []models.Template{{TemplateId: "t1", TemplateName: "Exit"}, {TemplateId: "t2", TemplateName: "Pulse"}},
		published: []models.Template{{TemplateId: "t2", TemplateName: "Pulse", Status: models.TemplatePublished}},
	}
}

func TestLoad(t *testing.T) {
	f := newFakeFetcher()

	v, err := Load(context.Background(), f, NewState(5).WithPage(3))
	require.NoError(t, err)
	assert.Equal(t, "All Surveys", v.Title)
	assert.Len(t, v.Surveys, 2)
	assert.Equal(t, "12", v.Metrics[0].Value)

	v, err = Load(context.Background(), f, NewState(5).WithSection(SectionTemplates).WithSubset(SectionTemplates, true))
	require.NoError(t, err)
	assert.Equal(t, "Published Templates", v.Title)
	assert.Len(t, v.Templates, 1)
	assert.Equal(t, models.TrendDown, v.Metrics[0].Trend)
}

func TestDispatchRefetchesOnConfigChange(t *testing.T) {
	ctx := context.Background()
	f := newFakeFetcher()
	c := NewController(f, NewState(5))

	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, []string{"surveys"}, f.calls)

	// search and paging stay local
	_, err := c.Dispatch(ctx, Action{Type: ActionSearch, Search: "1"})
	require.NoError(t, err)
	_, err = c.Dispatch(ctx, Action{Type: ActionNext})
	require.NoError(t, err)
	assert.Equal(t, []string{"surveys"}, f.calls)

	v, err := c.Dispatch(ctx, Action{Type: ActionSubset, Subset: true})
	require.NoError(t, err)
	assert.Equal(t, "Completed Surveys", v.Title)
	assert.Equal(t, []string{"surveys", "completed"}, f.calls)

	v, err = c.Dispatch(ctx, Action{Type: ActionSection, Section: SectionTemplates})
	require.NoError(t, err)
	assert.Equal(t, "All Templates", v.Title)
	assert.Equal(t, "templates", f.calls[len(f.calls)-1])

	_, err = c.Dispatch(ctx, Action{Type: ActionRefresh})
	require.NoError(t, err)
	assert.Len(t, f.calls, 4)
}

func TestSearchClampsPage(t *testing.T) {
	ctx := context.Background()
	c := NewController(newFakeFetcher(), NewState(5))
	require.NoError(t, c.Refresh(ctx))

	v, err := c.Dispatch(ctx, Action{Type: ActionPage, Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, v.Page.Page)

	// "Survey 1" matches 1, 10, 11, 12: one page
	v, err = c.Dispatch(ctx, Action{Type: ActionSearch, Search: "survey 1"})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Page.Page)
	assert.Len(t, v.Surveys, 4)
	assert.Equal(t, 1, c.State().Page)

	v, _ = c.Dispatch(ctx, Action{Type: ActionNext})
	assert.Equal(t, 1, v.Page.Page)
}

func TestStaleOnError(t *testing.T) {
	ctx := context.Background()
	f := newFakeFetcher()
	c := NewController(f, NewState(5))
	require.NoError(t, c.Refresh(ctx))

	f.set(func(f *fakeFetcher) {
		f.err = &client.Error{Op: client.OpFetchSurveys, Kind: client.KindUnreachable, Err: errors.New("dial tcp")}
	})

	v, err := c.Dispatch(ctx, Action{Type: ActionRefresh})
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrFetchSurveysFailed))
	assert.False(t, v.Loading)
	assert.Contains(t, v.Error, "unreachable")
	assert.Len(t, v.Surveys, 5)
	assert.Equal(t, 12, v.Page.Total)

	f.set(func(f *fakeFetcher) { f.err = nil })
	v, err = c.Dispatch(ctx, Action{Type: ActionRefresh})
	require.NoError(t, err)
	assert.Empty(t, v.Error)
}

func TestSupersededRefreshIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := newFakeFetcher()
	f.hold = true
	f.started = make(chan struct{})
	c := NewController(f, NewState(5))

	done := make(chan error, 1)
	go func() { done <- c.Refresh(ctx) }()
	<-f.started

	require.NoError(t, c.Refresh(ctx))
	assert.True(t, errors.Is(<-done, ErrSuperseded))

	v := c.View()
	assert.False(t, v.Loading)
	assert.Empty(t, v.Error)
	assert.Equal(t, 12, v.Page.Total)
}

func TestDescribe(t *testing.T) {
	rejected := &client.Error{Op: client.OpFetchTemplates, Kind: client.KindRejected, StatusCode: 500, Err: errors.New("x")}
	malformed := &client.Error{Op: client.OpFetchTemplates, Kind: client.KindMalformed, Err: errors.New("x")}

	assert.Contains(t, Describe(rejected), "rejected")
	assert.Contains(t, Describe(malformed), "unexpected response")
	assert.Contains(t, Describe(context.DeadlineExceeded), "in time")
	assert.Contains(t, Describe(errors.New("other")), "Failed to load")
}

func TestApplyReportsFetch(t *testing.T) {
	c := NewController(newFakeFetcher(), NewState(5))

	v, fetch, err := c.Apply(Action{Type: ActionSearch, Search: "x"})
	require.NoError(t, err)
	assert.False(t, fetch)
	assert.False(t, v.Loading)

	v, fetch, err = c.Apply(Action{Type: ActionSection, Section: SectionTemplates})
	require.NoError(t, err)
	assert.True(t, fetch)
	assert.True(t, v.Loading)
	assert.Equal(t, "All Templates", v.Title)

	_, fetch, err = c.Apply(Action{Type: ActionPageSize, PageSize: 3})
	assert.Error(t, err)
	assert.False(t, fetch)
}
