package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/autonova/project-service/internal/engine"
	"github.com/autonova/project-service/internal/model"
)

// createChangeRequestRequest is the JSON body for
// POST /v1/projects/{id}/change-requests.
type createChangeRequestRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	PriceDeltaCents *int64     `json:"price_delta_cents"`
	ExtraHours      *int       `json:"extra_hours"`
	NewDueDate      *time.Time `json:"new_due_date"`
}

// decideChangeRequestRequest carries the optimistic-concurrency version for
// change-request decisions. A zero or missing version skips the check.
type decideChangeRequestRequest struct {
	Version int64 `json:"version"`
}

func (s *Server) handleCreateChangeRequest(w http.ResponseWriter, r *http.Request) {
	var req createChangeRequestRequest
	if !s.decode(w, r, &req) {
		return
	}

	cr, err := s.engine.CreateChangeRequest(r.Context(), engine.CreateChangeRequest{
		ProjectID:       chi.URLParam(r, "id"),
		Title:           req.Title,
		Description:     req.Description,
		PriceDeltaCents: req.PriceDeltaCents,
		ExtraHours:      req.ExtraHours,
		NewDueDate:      req.NewDueDate,
		Actor:           actorFrom(r),
		Token:           tokenFrom(r),
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, cr)
}

func (s *Server) handleListChangeRequests(w http.ResponseWriter, r *http.Request) {
	crs, err := s.engine.ListChangeRequests(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if crs == nil {
		crs = []*model.ChangeRequest{}
	}
	s.writeJSON(w, http.StatusOK, crs)
}

func (s *Server) handleGetChangeRequest(w http.ResponseWriter, r *http.Request) {
	cr, err := s.engine.GetChangeRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cr)
}

// decideChange parses the version body shared by approve/reject/apply and
// dispatches to the engine operation.
func (s *Server) decideChange(w http.ResponseWriter, r *http.Request,
	op func(id string, version model.Version) (*model.ChangeRequest, error)) {
	var req decideChangeRequestRequest
	if r.ContentLength != 0 {
		if !s.decode(w, r, &req) {
			return
		}
	}

	cr, err := op(chi.URLParam(r, "id"), model.Version(req.Version))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cr)
}

func (s *Server) handleApproveChangeRequest(w http.ResponseWriter, r *http.Request) {
	s.decideChange(w, r, func(id string, version model.Version) (*model.ChangeRequest, error) {
		return s.engine.ApproveChangeRequest(r.Context(), id, version, actorFrom(r), tokenFrom(r))
	})
}

func (s *Server) handleRejectChangeRequest(w http.ResponseWriter, r *http.Request) {
	s.decideChange(w, r, func(id string, version model.Version) (*model.ChangeRequest, error) {
		return s.engine.RejectChangeRequest(r.Context(), id, version, actorFrom(r), tokenFrom(r))
	})
}

func (s *Server) handleApplyChangeRequest(w http.ResponseWriter, r *http.Request) {
	s.decideChange(w, r, func(id string, version model.Version) (*model.ChangeRequest, error) {
		return s.engine.ApplyChangeRequest(r.Context(), id, version, actorFrom(r), tokenFrom(r))
	})
}
