package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/survey-admin/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func TestFetchAllSurveys(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/surveys/list", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`[
			{"SurveyId":"s1","Name":"Onboarding","URL":"http://x/s1","Status":"Completed","LaunchDate":"2024-01-02"},
			{"SurveyId":"s2","Name":"Pulse","URL":"http://x/s2","Status":"In-Progress","Date":"2024-02-03"}
		]`))
	})

	surveys, err := c.FetchAllSurveys(context.Background())
	require.NoError(t, err)
	require.Len(t, surveys, 2)
	assert.Equal(t, "s1", surveys[0].SurveyId)
	assert.True(t, surveys[0].IsCompleted())
	assert.Equal(t, "2024-01-02", surveys[0].Launched())
	assert.Equal(t, "2024-02-03", surveys[1].Launched())
}

func TestFetchCompletedSurveysPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/surveys/list_completed", r.URL.Path)
		_, _ = w.Write([]byte(`[]`))
	})

	surveys, err := c.FetchCompletedSurveys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, surveys)
}

func TestFetchPublishedTemplates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/templates/list_published", r.URL.Path)
		_, _ = w.Write([]byte(`[{"TemplateId":"t1","TemplateName":"Exit","Status":"Published","CreationDate":"2024-03-01"}]`))
	})

	templates, err := c.FetchPublishedTemplates(context.Background())
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.True(t, templates[0].IsPublished())
	assert.Equal(t, "2024-03-01", templates[0].Created())
}

func TestFetchStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/surveys/stat":
			_, _ = w.Write([]byte(`{"Total_Surveys":12,"Active":4,"Completed":8,"Percent_Surveys":"10","Percent_Active":"-2.5","Percent_Completed":"n/a"}`))
		case "/api/templates/stat":
			_, _ = w.Write([]byte(`{"Total_Templates":3,"Drafts":1,"Published":2,"Percent_Templates":"0","Percent_Drafts":"5","Percent_Published":"1"}`))
		default:
			http.NotFound(w, r)
		}
	})

	surveyStats, err := c.FetchSurveyStats(context.Background())
	require.NoError(t, err)
	metrics := surveyStats.Metrics()
	require.Len(t, metrics, 3)
	assert.Equal(t, "Total Surveys", metrics[0].Title)
	assert.Equal(t, "12", metrics[0].Value)
	assert.Equal(t, "10%", metrics[0].Change)
	assert.Equal(t, models.TrendUp, metrics[0].Trend)
	assert.Equal(t, models.TrendDown, metrics[1].Trend)
	assert.Equal(t, models.TrendDown, metrics[2].Trend)

	templateStats, err := c.FetchTemplateStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, templateStats.Published)
	assert.Equal(t, models.TrendUp, templateStats.Metrics()[0].Trend)
}

func TestNegativeStatsAreMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Total_Surveys":-1,"Active":0,"Completed":0}`))
	})

	_, err := c.FetchSurveyStats(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchSurveyStatsFailed))
	assert.True(t, IsKind(err, KindMalformed))
}

func TestFailureKinds(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})

		_, err := c.FetchAllTemplates(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFetchTemplatesFailed))
		assert.False(t, errors.Is(err, ErrFetchSurveysFailed))
		assert.Equal(t, KindRejected, KindOf(err))

		var cerr *Error
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, http.StatusInternalServerError, cerr.StatusCode)
		assert.Contains(t, cerr.Error(), "HTTP 500")
	})

	t.Run("malformed", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		})

		_, err := c.FetchAllSurveys(context.Background())
		assert.True(t, errors.Is(err, ErrFetchSurveysFailed))
		assert.Equal(t, KindMalformed, KindOf(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		c := NewClient(srv.URL)
		_, err := c.FetchAllSurveys(context.Background())
		assert.True(t, errors.Is(err, ErrFetchSurveysFailed))
		assert.Equal(t, KindUnreachable, KindOf(err))
	})

	t.Run("non-client error", func(t *testing.T) {
		assert.Equal(t, Kind(""), KindOf(errors.New("other")))
		assert.False(t, IsNotFound(errors.New("other")))
	})

	t.Run("not found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		})

		err := c.DeleteQuestion(context.Background(), "q1")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.True(t, errors.Is(err, ErrDeleteQuestionFailed))
	})
}

func TestCreateTemplate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/templates/create", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body models.CreateTemplateData
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tpl-1", body.TemplateId)
		assert.Equal(t, "Exit interview", body.TemplateName)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"created"}`))
	})

	resp, err := c.CreateTemplate(context.Background(), models.CreateTemplateData{
		TemplateId:   "tpl-1",
		TemplateName: "Exit interview",
	})
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", resp.TemplateId)
}

func TestCreateQuestionReturnsBackendID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/questions/", r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"QueId":"q-local","QueText":"Color?","QueScale":"","QueCriteria":"categorical","QueCategories":["Red","Blue"]}`, string(raw))

		_, _ = w.Write([]byte(`{"QueId":"q-remote"}`))
	})

	resp, err := c.CreateQuestion(context.Background(), models.Question{
		QueId:         "q-local",
		QueText:       "Color?",
		QueCriteria:   models.CriteriaCategorical,
		QueCategories: models.Categories{"Red", "Blue"},
	})
	require.NoError(t, err)
	assert.Equal(t, "q-remote", resp.QueId)
}

func TestAddQuestionToTemplate(t *testing.T) {
	var got models.TemplateQuestion
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/template-questions/", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.AddQuestionToTemplate(context.Background(), "tpl-1", "q-1", 3))
	assert.Equal(t, models.TemplateQuestion{TemplateId: "tpl-1", QueId: "q-1", Order: "3"}, got)

	err := c.AddQuestionToTemplate(context.Background(), "tpl-1", "q-1", 0)
	assert.True(t, errors.Is(err, ErrAttachQuestionFailed))
	assert.True(t, IsKind(err, KindInvalid))
}

func TestUpdateTemplateStatus(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/templates/tpl%201/status", r.URL.EscapedPath())

		var body models.StatusUpdate
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, models.TemplatePublished, body.Status)
	})

	require.NoError(t, c.UpdateTemplateStatus(context.Background(), "tpl 1", models.TemplatePublished))

	err := c.UpdateTemplateStatus(context.Background(), "tpl 1", models.TemplateStatus("Archived"))
	assert.True(t, errors.Is(err, ErrUpdateTemplateStatusFailed))
	assert.True(t, IsKind(err, KindInvalid))
	assert.Equal(t, 1, calls)
}

func TestDeletes(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/api/questions/q-missing" {
			w.WriteHeader(http.StatusNotFound)
		}
	})

	require.NoError(t, c.DeleteTemplate(context.Background(), "tpl-1"))
	require.NoError(t, c.DeleteQuestion(context.Background(), "q-1"))

	err := c.DeleteQuestion(context.Background(), "q-missing")
	assert.True(t, errors.Is(err, ErrDeleteQuestionFailed))
	assert.Equal(t, KindRejected, KindOf(err))

	assert.Equal(t, []string{"/api/templates/tpl-1", "/api/questions/q-1", "/api/questions/q-missing"}, paths)
}

func TestAPIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithAPIKey("secret"))
	_, err := c.FetchAllTemplates(context.Background())
	require.NoError(t, err)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("")
	assert.Equal(t, DefaultBaseURL, c.BaseURL())

	c = NewClient("http://backend:9000///")
	assert.Equal(t, "http://backend:9000", c.BaseURL())
}
