package dashboard

import (
	"github.com/terra-clan/survey-admin/internal/models"
)

// View is everything needed to render the dashboard
type View struct {
	Config
	Title        string            `json:"title"`
	Search       string            `json:"search"`
	Surveys      []models.Survey   `json:"surveys,omitempty"`
	Templates    []models.Template `json:"templates,omitempty"`
	Metrics      []models.Metric   `json:"metrics"`
	Page         PageInfo          `json:"page"`
	PageSizes    []int             `json:"page_sizes"`
	Loading      bool              `json:"loading"`
	Error        string            `json:"error,omitempty"`
	EmptyMessage string            `json:"empty_message,omitempty"`
}

// Title returns the table heading for a display configuration
func Title(cfg Config) string {
	switch {
	case cfg.Section == SectionTemplates && cfg.Subset:
		return "Published Templates"
	case cfg.Section == SectionTemplates:
		return "All Templates"
	case cfg.Subset:
		return "Completed Surveys"
	default:
		return "All Surveys"
	}
}

// EmptyMessage returns the text shown when a configuration has no rows
func EmptyMessage(cfg Config) string {
	switch {
	case cfg.Section == SectionTemplates && cfg.Subset:
		return "No published templates found."
	case cfg.Section == SectionTemplates:
		return "No templates found. Create your first template to get started."
	case cfg.Subset:
		return "No completed surveys found."
	default:
		return "No surveys found. Create your first survey to get started."
	}
}

// Data holds the last fetched records and metrics per section
type Data struct {
	Surveys         []models.Survey
	Templates       []models.Template
	SurveyMetrics   []models.Metric
	TemplateMetrics []models.Metric
}

// filteredLen returns the length of the active section's filtered list
func (d Data) filteredLen(s State) int {
	if s.Section == SectionTemplates {
		return len(Filter(d.Templates, s.Search))
	}
	return len(Filter(d.Surveys, s.Search))
}

// Render builds the view of s over d
func Render(s State, d Data) View {
	s = s.Clamp(d.filteredLen(s))
	cfg := s.Config()

	v := View{
		Config:    cfg,
		Title:     Title(cfg),
		Search:    s.Search,
		PageSizes: PageSizes,
	}

	if s.Section == SectionTemplates {
		rows, info := Paginate(Filter(d.Templates, s.Search), s.Page, s.PageSize)
		v.Templates, v.Page = rows, info
		v.Metrics = d.TemplateMetrics
	} else {
		rows, info := Paginate(Filter(d.Surveys, s.Search), s.Page, s.PageSize)
		v.Surveys, v.Page = rows, info
		v.Metrics = d.SurveyMetrics
	}

	if v.Metrics == nil {
		v.Metrics = []models.Metric{}
	}
	if v.Page.Total == 0 {
		v.EmptyMessage = EmptyMessage(cfg)
	}
	return v
}
