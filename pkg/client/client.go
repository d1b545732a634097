package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/terra-clan/survey-admin/internal/models"
)

// DefaultBaseURL is used when no backend URL is configured
const DefaultBaseURL = "http://localhost:8081"

// Client is a Go SDK for the survey backend API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithAPIKey sends the key as a bearer token on every request
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// NewClient creates a new survey backend client
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the backend root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Surveys

// FetchAllSurveys lists every survey
func (c *Client) FetchAllSurveys(ctx context.Context) ([]models.Survey, error) {
	var surveys []models.Survey
	if err := c.getJSON(ctx, OpFetchSurveys, "/api/surveys/list", &surveys); err != nil {
		return nil, err
	}
	return surveys, nil
}

// FetchCompletedSurveys lists completed surveys only
func (c *Client) FetchCompletedSurveys(ctx context.Context) ([]models.Survey, error) {
	var surveys []models.Survey
	if err := c.getJSON(ctx, OpFetchSurveys, "/api/surveys/list_completed", &surveys); err != nil {
		return nil, err
	}
	return surveys, nil
}

// FetchSurveyStats retrieves the survey aggregate counters
func (c *Client) FetchSurveyStats(ctx context.Context) (*models.SurveyStats, error) {
	var stats models.SurveyStats
	if err := c.getJSON(ctx, OpFetchSurveyStats, "/api/surveys/stat", &stats); err != nil {
		return nil, err
	}
	if err := stats.Validate(); err != nil {
		return nil, &Error{Op: OpFetchSurveyStats, Kind: KindMalformed, Err: err}
	}
	return &stats, nil
}

// Templates

// FetchAllTemplates lists every template
func (c *Client) FetchAllTemplates(ctx context.Context) ([]models.Template, error) {
	var templates []models.Template
	if err := c.getJSON(ctx, OpFetchTemplates, "/api/templates/list", &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// FetchPublishedTemplates lists published templates only
func (c *Client) FetchPublishedTemplates(ctx context.Context) ([]models.Template, error) {
	var templates []models.Template
	if err := c.getJSON(ctx, OpFetchTemplates, "/api/templates/list_published", &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// FetchTemplateStats retrieves the template aggregate counters
func (c *Client) FetchTemplateStats(ctx context.Context) (*models.TemplateStats, error) {
	var stats models.TemplateStats
	if err := c.getJSON(ctx, OpFetchTemplateStats, "/api/templates/stat", &stats); err != nil {
		return nil, err
	}
	if err := stats.Validate(); err != nil {
		return nil, &Error{Op: OpFetchTemplateStats, Kind: KindMalformed, Err: err}
	}
	return &stats, nil
}

// CreateTemplate creates an empty template with a caller-chosen id
func (c *Client) CreateTemplate(ctx context.Context, data models.CreateTemplateData) (*models.CreateTemplateResponse, error) {
	if data.TemplateId == "" || data.TemplateName == "" {
		return nil, &Error{Op: OpCreateTemplate, Kind: KindInvalid, Err: fmt.Errorf("template id and name are required")}
	}

	var result models.CreateTemplateResponse
	if err := c.sendJSON(ctx, OpCreateTemplate, http.MethodPost, "/api/templates/create", data, &result); err != nil {
		return nil, err
	}
	if result.TemplateId == "" {
		result.TemplateId = data.TemplateId
	}
	return &result, nil
}

// UpdateTemplateStatus sets a template to Draft or Published
func (c *Client) UpdateTemplateStatus(ctx context.Context, templateID string, status models.TemplateStatus) error {
	if templateID == "" {
		return &Error{Op: OpUpdateTemplateStatus, Kind: KindInvalid, Err: fmt.Errorf("template id is required")}
	}
	if !status.IsSettable() {
		return &Error{Op: OpUpdateTemplateStatus, Kind: KindInvalid, Err: fmt.Errorf("unsupported status %q", status)}
	}

	path := fmt.Sprintf("/api/templates/%s/status", url.PathEscape(templateID))
	return c.sendJSON(ctx, OpUpdateTemplateStatus, http.MethodPatch, path, models.StatusUpdate{Status: status}, nil)
}

// DeleteTemplate removes a template and its question attachments
func (c *Client) DeleteTemplate(ctx context.Context, templateID string) error {
	if templateID == "" {
		return &Error{Op: OpDeleteTemplate, Kind: KindInvalid, Err: fmt.Errorf("template id is required")}
	}

	path := fmt.Sprintf("/api/templates/%s", url.PathEscape(templateID))
	_, err := c.doRequest(ctx, OpDeleteTemplate, http.MethodDelete, path, nil)
	return err
}

// Questions

// CreateQuestion stores a question and returns its backend id
func (c *Client) CreateQuestion(ctx context.Context, question models.Question) (*models.CreateQuestionResponse, error) {
	var result models.CreateQuestionResponse
	if err := c.sendJSON(ctx, OpCreateQuestion, http.MethodPost, "/api/questions/", question, &result); err != nil {
		return nil, err
	}
	if result.QueId == "" {
		result.QueId = question.QueId
	}
	if result.QueId == "" {
		return nil, &Error{Op: OpCreateQuestion, Kind: KindMalformed, Err: fmt.Errorf("response carries no question id")}
	}
	return &result, nil
}

// AddQuestionToTemplate attaches a question to a template at a 1-based position
func (c *Client) AddQuestionToTemplate(ctx context.Context, templateID, questionID string, order int) error {
	if templateID == "" || questionID == "" || order < 1 {
		return &Error{Op: OpAttachQuestion, Kind: KindInvalid,
			Err: fmt.Errorf("template id, question id and a positive order are required")}
	}

	body := models.TemplateQuestion{
		TemplateId: templateID,
		QueId:      questionID,
		Order:      strconv.Itoa(order),
	}
	return c.sendJSON(ctx, OpAttachQuestion, http.MethodPost, "/api/template-questions/", body, nil)
}

// DeleteQuestion removes a question that is not attached anywhere
func (c *Client) DeleteQuestion(ctx context.Context, questionID string) error {
	if questionID == "" {
		return &Error{Op: OpDeleteQuestion, Kind: KindInvalid, Err: fmt.Errorf("question id is required")}
	}

	path := fmt.Sprintf("/api/questions/%s", url.PathEscape(questionID))
	_, err := c.doRequest(ctx, OpDeleteQuestion, http.MethodDelete, path, nil)
	return err
}

// getJSON performs a GET and decodes the body into out
func (c *Client) getJSON(ctx context.Context, op Op, path string, out interface{}) error {
	resp, err := c.doRequest(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decode(op, resp, out)
}

// sendJSON encodes in as the request body and decodes the response into out when non-nil
func (c *Client) sendJSON(ctx context.Context, op Op, method, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &Error{Op: op, Kind: KindInvalid, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	resp, err := c.doRequest(ctx, op, method, path, bytes.NewReader(body))
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	return decode(op, resp, out)
}

func decode(op Op, body []byte, out interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return &Error{Op: op, Kind: KindMalformed, Err: fmt.Errorf("empty response body")}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Op: op, Kind: KindMalformed, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, op Op, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindInvalid, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindUnreachable, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindUnreachable, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Op: op, Kind: KindRejected, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("%s", truncate(string(respBody), 256))}
	}

	return respBody, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
