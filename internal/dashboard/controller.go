package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/survey-admin/internal/models"
	"github.com/terra-clan/survey-admin/pkg/client"
)

// Fetcher is the read side of the survey backend
type Fetcher interface {
	FetchAllSurveys(ctx context.Context) ([]models.Survey, error)
	FetchCompletedSurveys(ctx context.Context) ([]models.Survey, error)
	FetchSurveyStats(ctx context.Context) (*models.SurveyStats, error)
	FetchAllTemplates(ctx context.Context) ([]models.Template, error)
	FetchPublishedTemplates(ctx context.Context) ([]models.Template, error)
	FetchTemplateStats(ctx context.Context) (*models.TemplateStats, error)
}

var _ Fetcher = (*client.Client)(nil)

// ErrSuperseded is returned by a refresh whose result was discarded
// because a newer refresh started
var ErrSuperseded = errors.New("refresh superseded by a newer one")

// fetch issues the records and stats calls for cfg concurrently and
// merges the result into d. Either failure aborts the whole update.
func fetch(ctx context.Context, f Fetcher, cfg Config, d Data) (Data, error) {
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Section == SectionTemplates {
		var templates []models.Template
		var stats *models.TemplateStats

		g.Go(func() error {
			var err error
			if cfg.Subset {
				templates, err = f.FetchPublishedTemplates(gctx)
			} else {
				templates, err = f.FetchAllTemplates(gctx)
			}
			return err
		})
		g.Go(func() error {
			var err error
			stats, err = f.FetchTemplateStats(gctx)
			return err
		})

		if err := g.Wait(); err != nil {
			return d, err
		}
		d.Templates = templates
		d.TemplateMetrics = stats.Metrics()
		return d, nil
	}

	var surveys []models.Survey
	var stats *models.SurveyStats

	g.Go(func() error {
		var err error
		if cfg.Subset {
			surveys, err = f.FetchCompletedSurveys(gctx)
		} else {
			surveys, err = f.FetchAllSurveys(gctx)
		}
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = f.FetchSurveyStats(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return d, err
	}
	d.Surveys = surveys
	d.SurveyMetrics = stats.Metrics()
	return d, nil
}

// Describe turns a fetch failure into a message for the user
func Describe(err error) string {
	switch client.KindOf(err) {
	case client.KindUnreachable:
		return "The survey backend is unreachable. Showing the last loaded data."
	case client.KindRejected:
		return "The survey backend rejected the request. Showing the last loaded data."
	case client.KindMalformed:
		return "The survey backend returned an unexpected response. Showing the last loaded data."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The survey backend did not answer in time. Showing the last loaded data."
	}
	return "Failed to load data. Showing the last loaded data."
}

// Load fetches and renders one configuration without keeping any state
func Load(ctx context.Context, f Fetcher, s State) (View, error) {
	d, err := fetch(ctx, f, s.Config(), Data{})
	if err != nil {
		return View{}, fmt.Errorf("failed to load %s: %w", s.Section, err)
	}
	return Render(s, d), nil
}

// ActionType names a dashboard interaction
type ActionType string

const (
	ActionSection  ActionType = "section"
	ActionSubset   ActionType = "subset"
	ActionSearch   ActionType = "search"
	ActionPage     ActionType = "page"
	ActionNext     ActionType = "next"
	ActionPrev     ActionType = "prev"
	ActionPageSize ActionType = "page_size"
	ActionRefresh  ActionType = "refresh"
)

// Action is one user interaction
type Action struct {
	Type     ActionType `json:"type"`
	Section  Section    `json:"section,omitempty"`
	Subset   bool       `json:"subset,omitempty"`
	Search   string     `json:"search,omitempty"`
	Page     int        `json:"page,omitempty"`
	PageSize int        `json:"page_size,omitempty"`
}

// Reduce applies an action to a state
func Reduce(s State, a Action) (State, error) {
	switch a.Type {
	case ActionSection:
		if !a.Section.Valid() {
			return s, fmt.Errorf("%w: %q", ErrUnknownSection, a.Section)
		}
		return s.WithSection(a.Section), nil
	case ActionSubset:
		section := a.Section
		if section == "" {
			section = s.Section
		}
		if !section.Valid() {
			return s, fmt.Errorf("%w: %q", ErrUnknownSection, section)
		}
		return s.WithSubset(section, a.Subset), nil
	case ActionSearch:
		return s.WithSearch(a.Search), nil
	case ActionPage:
		return s.WithPage(a.Page), nil
	case ActionNext:
		return s.NextPage(), nil
	case ActionPrev:
		return s.PrevPage(), nil
	case ActionPageSize:
		return s.WithPageSize(a.PageSize)
	case ActionRefresh:
		return s, nil
	default:
		return s, fmt.Errorf("unknown action %q", a.Type)
	}
}

// Controller owns one dashboard state and the data fetched for it
type Controller struct {
	fetcher Fetcher

	mu         sync.Mutex
	state      State
	data       Data
	loading    bool
	errMsg     string
	generation uint64
	cancel     context.CancelFunc
}

// NewController creates a controller starting from s
func NewController(f Fetcher, s State) *Controller {
	return &Controller{
		fetcher: f,
		state:   s,
	}
}

// State returns the current view state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View renders the current state
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := Render(c.state, c.data)
	v.Loading = c.loading
	v.Error = c.errMsg
	return v
}

// Refresh fetches the active configuration. A refresh started later
// cancels this one, and its result is then discarded with ErrSuperseded.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	rctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.loading = true
	cfg := c.state.Config()
	prior := c.data
	c.mu.Unlock()

	defer cancel()

	data, err := fetch(rctx, c.fetcher, cfg, prior)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return ErrSuperseded
	}
	c.cancel = nil
	c.loading = false

	if err != nil {
		c.errMsg = Describe(err)
		slog.Warn("dashboard refresh failed",
			"section", cfg.Section,
			"subset", cfg.Subset,
			"kind", client.KindOf(err),
			"error", err,
		)
		return err
	}

	c.errMsg = ""
	c.data = mergeSection(c.data, data, cfg.Section)
	c.state = c.state.Clamp(c.data.filteredLen(c.state))
	return nil
}

// mergeSection copies only the refreshed section so a concurrent
// refresh of the other section is not overwritten
func mergeSection(cur, fresh Data, section Section) Data {
	if section == SectionTemplates {
		cur.Templates = fresh.Templates
		cur.TemplateMetrics = fresh.TemplateMetrics
	} else {
		cur.Surveys = fresh.Surveys
		cur.SurveyMetrics = fresh.SurveyMetrics
	}
	return cur
}

// Apply runs the reducer for a and reports whether the new
// configuration has to be fetched. The returned view already shows
// the loading flag in that case.
func (c *Controller) Apply(a Action) (View, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.state.Config()
	next, err := Reduce(c.state, a)
	if err != nil {
		return c.viewLocked(), false, err
	}
	c.state = next.Clamp(c.data.filteredLen(next))
	needsFetch := a.Type == ActionRefresh || c.state.Config() != before
	if needsFetch {
		c.loading = true
	}
	return c.viewLocked(), needsFetch, nil
}

// Dispatch applies an action and refreshes when the display
// configuration changed or a refresh was requested
func (c *Controller) Dispatch(ctx context.Context, a Action) (View, error) {
	v, needsFetch, err := c.Apply(a)
	if err != nil || !needsFetch {
		return v, err
	}
	if err := c.Refresh(ctx); err != nil {
		return c.View(), err
	}
	return c.View(), nil
}

// Close cancels any in-flight refresh
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
}
