package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autonova/project-service/internal/engine"
	"github.com/autonova/project-service/internal/model"
)

// createQuoteRequest is the JSON body for POST /v1/projects/{id}/quotes.
type createQuoteRequest struct {
	TotalCents int64 `json:"total_cents"`
}

func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if !s.decode(w, r, &req) {
		return
	}

	q, err := s.engine.CreateQuote(r.Context(), engine.CreateQuote{
		ProjectID:  chi.URLParam(r, "id"),
		TotalCents: req.TotalCents,
		Actor:      actorFrom(r),
		Token:      tokenFrom(r),
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, q)
}

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.engine.ListQuotes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if quotes == nil {
		quotes = []*model.Quote{}
	}
	s.writeJSON(w, http.StatusOK, quotes)
}

func (s *Server) handleApproveQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.ApproveQuote(r.Context(), chi.URLParam(r, "id"), actorFrom(r), tokenFrom(r))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleRejectQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.RejectQuote(r.Context(), chi.URLParam(r, "id"), actorFrom(r), tokenFrom(r))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}
