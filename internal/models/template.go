package models

import (
	"fmt"
)

// TemplateStatus represents the publication state of a template
type TemplateStatus string

const (
	TemplateDraft     TemplateStatus = "Draft"
	TemplatePublished TemplateStatus = "Published"
)

// IsSettable returns true if the status can be sent to the status endpoint
func (s TemplateStatus) IsSettable() bool {
	return s == TemplateDraft || s == TemplatePublished
}

// Template is a survey template as listed by the backend
type Template struct {
	TemplateId   string         `json:"TemplateId"`
	TemplateName string         `json:"TemplateName"`
	Status       TemplateStatus `json:"Status"`
	Date         string         `json:"Date,omitempty"`
	CreationDate string         `json:"CreationDate,omitempty"`
}

// ItemID returns the template identifier
func (t Template) ItemID() string {
	return t.TemplateId
}

// ItemName returns the template display name
func (t Template) ItemName() string {
	return t.TemplateName
}

// Created returns the creation date, preferring CreationDate over Date
func (t Template) Created() string {
	if t.CreationDate != "" {
		return t.CreationDate
	}
	return t.Date
}

// IsPublished returns true if the template is published
func (t Template) IsPublished() bool {
	return t.Status == TemplatePublished
}

// TemplateStats holds the aggregate template counters served by the backend
type TemplateStats struct {
	TotalTemplates   int    `json:"Total_Templates"`
	Drafts           int    `json:"Drafts"`
	Published        int    `json:"Published"`
	PercentTemplates string `json:"Percent_Templates"`
	PercentDrafts    string `json:"Percent_Drafts"`
	PercentPublished string `json:"Percent_Published"`
}

// Validate checks that every counter is non-negative
func (s *TemplateStats) Validate() error {
	if s.TotalTemplates < 0 || s.Drafts < 0 || s.Published < 0 {
		return fmt.Errorf("negative template count (total=%d drafts=%d published=%d)",
			s.TotalTemplates, s.Drafts, s.Published)
	}
	return nil
}

// Metrics converts the stats into dashboard cards
func (s *TemplateStats) Metrics() []Metric {
	return []Metric{
		NewMetric("Total Templates", s.TotalTemplates, s.PercentTemplates),
		NewMetric("Drafts", s.Drafts, s.PercentDrafts),
		NewMetric("Published", s.Published, s.PercentPublished),
	}
}

// CreateTemplateData is the body of the template creation call
type CreateTemplateData struct {
	TemplateId   string `json:"TemplateId"`
	TemplateName string `json:"TemplateName"`
}

// CreateTemplateResponse is returned after creating a template
type CreateTemplateResponse struct {
	TemplateId string `json:"TemplateId"`
}

// StatusUpdate is the body of the template status call
type StatusUpdate struct {
	Status TemplateStatus `json:"Status"`
}
