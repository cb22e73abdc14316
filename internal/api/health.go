package api

import (
	"encoding/json"
	"net/http"
	"time"
)

var startedAt = time.Now().UTC()

type healthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	resp := healthResponse{
		Status:        "ok",
		Service:       "projectd",
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("encode health response", "error", err)
	}
}
