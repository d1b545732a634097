package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/survey-admin/internal/dashboard"
	"github.com/terra-clan/survey-admin/pkg/client"
)

var errInvalidFilter = errors.New("filter must be all, completed (surveys) or published (templates)")

// dashboardState builds a view state from the request path and query
func (s *Server) dashboardState(r *http.Request) (dashboard.State, error) {
	section, err := dashboard.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		return dashboard.State{}, err
	}

	q := r.URL.Query()
	st := dashboard.NewState(s.pageSize).WithSection(section)

	switch filter := q.Get("filter"); filter {
	case "", "all":
	case "completed":
		if section != dashboard.SectionSurveys {
			return st, errInvalidFilter
		}
		st = st.WithSubset(section, true)
	case "published":
		if section != dashboard.SectionTemplates {
			return st, errInvalidFilter
		}
		st = st.WithSubset(section, true)
	default:
		return st, errInvalidFilter
	}

	if size := q.Get("size"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return st, dashboard.ErrInvalidPageSize
		}
		if st, err = st.WithPageSize(n); err != nil {
			return st, err
		}
	}

	st = st.WithSearch(q.Get("q"))

	if page := q.Get("page"); page != "" {
		if n, err := strconv.Atoi(page); err == nil {
			st = st.WithPage(n)
		}
	}

	return st, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	st, err := s.dashboardState(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	view, err := dashboard.Load(r.Context(), s.fetcher, st)
	if err != nil {
		respondErrorDetails(w, http.StatusBadGateway, "backend_error", dashboard.Describe(err), backendDetails{
			Kind: client.KindOf(err),
		})
		return
	}

	respondJSON(w, http.StatusOK, view)
}
