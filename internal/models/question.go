package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QuestionCriteria is the backend's name for the question kind
type QuestionCriteria string

const (
	CriteriaScale       QuestionCriteria = "scale"
	CriteriaCategorical QuestionCriteria = "categorical"
)

// Categories holds the options of a categorical question.
// The backend sends either a JSON array of strings or a single string.
type Categories []string

// UnmarshalJSON accepts both an array and a bare string
func (c *Categories) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*c = Categories{}
		} else {
			*c = Categories{s}
		}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("categories must be a string or a list of strings: %w", err)
	}
	*c = list
	return nil
}

// Question is the backend representation of a template question
type Question struct {
	QueId         string           `json:"QueId"`
	QueText       string           `json:"QueText"`
	QueScale      string           `json:"QueScale"`
	QueCriteria   QuestionCriteria `json:"QueCriteria"`
	QueCategories Categories       `json:"QueCategories"`
}

// CreateQuestionResponse is returned after creating a question
type CreateQuestionResponse struct {
	QueId string `json:"QueId"`
}

// TemplateQuestion attaches a question to a template at a position
type TemplateQuestion struct {
	TemplateId string `json:"TemplateId"`
	QueId      string `json:"QueId"`
	Order      string `json:"Order"`
}
