package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/autonova/project-service/internal/engine"
	"github.com/autonova/project-service/internal/model"
	"github.com/autonova/project-service/internal/store"
)

const maxBodySize = 1 << 20 // 1 MB

// createProjectRequest is the JSON body for POST /v1/projects.
type createProjectRequest struct {
	CustomerID int64  `json:"customer_id"`
	Title      string `json:"title"`
}

// updateStatusRequest is the JSON body for POST /v1/projects/{id}/status.
type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !s.decode(w, r, &req) {
		return
	}

	p, err := s.engine.CreateProject(r.Context(), engine.CreateProject{
		CustomerID: req.CustomerID,
		Title:      req.Title,
		Actor:      actorFrom(r),
		Token:      tokenFrom(r),
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	var f store.ProjectFilter
	if v := r.URL.Query().Get("status"); v != "" {
		f.Status = model.ProjectStatus(v)
	}
	if v := r.URL.Query().Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid_input", "customer_id must be an integer")
			return
		}
		f.CustomerID = id
	}

	projects, err := s.engine.ListProjects(r.Context(), f)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if projects == nil {
		projects = []*model.Project{}
	}
	s.writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !s.decode(w, r, &req) {
		return
	}

	p, err := s.engine.UpdateStatus(r.Context(), chi.URLParam(r, "id"),
		model.ProjectStatus(req.Status), actorFrom(r))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleStatusHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.StatusHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*model.StatusHistory{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}
