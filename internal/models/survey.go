package models

import (
	"fmt"
)

// SurveyStatus represents the lifecycle state reported by the backend
type SurveyStatus string

const (
	SurveyCompleted  SurveyStatus = "Completed"
	SurveyInProgress SurveyStatus = "In-Progress"
)

// Survey is a launched survey as listed by the backend.
// Field names follow the backend's JSON contract.
type Survey struct {
	SurveyId   string       `json:"SurveyId"`
	Name       string       `json:"Name"`
	TemplateId string       `json:"TemplateId,omitempty"`
	URL        string       `json:"URL"`
	Biodata    string       `json:"Biodata,omitempty"`
	Status     SurveyStatus `json:"Status"`
	Date       string       `json:"Date,omitempty"`
	LaunchDate string       `json:"LaunchDate,omitempty"`
}

// ItemID returns the survey identifier
func (s Survey) ItemID() string {
	return s.SurveyId
}

// ItemName returns the survey display name
func (s Survey) ItemName() string {
	return s.Name
}

// Launched returns the launch date, preferring LaunchDate over Date
func (s Survey) Launched() string {
	if s.LaunchDate != "" {
		return s.LaunchDate
	}
	return s.Date
}

// IsCompleted returns true if the backend marked the survey completed
func (s Survey) IsCompleted() bool {
	return s.Status == SurveyCompleted
}

// SurveyStats holds the aggregate survey counters served by the backend
type SurveyStats struct {
	TotalSurveys     int    `json:"Total_Surveys"`
	Active           int    `json:"Active"`
	Completed        int    `json:"Completed"`
	PercentSurveys   string `json:"Percent_Surveys"`
	PercentActive    string `json:"Percent_Active"`
	PercentCompleted string `json:"Percent_Completed"`
}

// Validate checks that every counter is non-negative
func (s *SurveyStats) Validate() error {
	if s.TotalSurveys < 0 || s.Active < 0 || s.Completed < 0 {
		return fmt.Errorf("negative survey count (total=%d active=%d completed=%d)",
			s.TotalSurveys, s.Active, s.Completed)
	}
	return nil
}

// Metrics converts the stats into dashboard cards
func (s *SurveyStats) Metrics() []Metric {
	return []Metric{
		NewMetric("Total Surveys", s.TotalSurveys, s.PercentSurveys),
		NewMetric("Active Surveys", s.Active, s.PercentActive),
		NewMetric("Completed Surveys", s.Completed, s.PercentCompleted),
	}
}
