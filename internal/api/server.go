package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/autonova/project-service/internal/domain"
	"github.com/autonova/project-service/internal/engine"
	"github.com/autonova/project-service/internal/model"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second
)

// Request headers carrying caller context. Authentication happens upstream;
// the gateway forwards the verified identity in these headers.
const (
	headerIdempotencyKey = "Idempotency-Key"
	headerUserID         = "X-User-Id"
	headerUserRole       = "X-User-Role"
)

// Server wraps the chi router and application dependencies.
type Server struct {
	router *chi.Mux
	engine *engine.Engine
	logger *slog.Logger
	addr   string
}

// NewServer creates and configures a new HTTP server.
func NewServer(addr string, eng *engine.Engine, logger *slog.Logger) *Server {
	srv := &Server{
		router: chi.NewRouter(),
		engine: eng,
		logger: logger,
		addr:   addr,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id", "X-User-Id", "X-User-Role"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Route("/v1/projects", func(r chi.Router) {
		r.Post("/", s.handleCreateProject)
		r.Get("/", s.handleListProjects)
		r.Get("/{id}", s.handleGetProject)
		r.Post("/{id}/status", s.handleUpdateStatus)
		r.Get("/{id}/history", s.handleStatusHistory)
		r.Post("/{id}/quotes", s.handleCreateQuote)
		r.Get("/{id}/quotes", s.handleListQuotes)
		r.Post("/{id}/change-requests", s.handleCreateChangeRequest)
		r.Get("/{id}/change-requests", s.handleListChangeRequests)
	})

	s.router.Route("/v1/quotes", func(r chi.Router) {
		r.Post("/{id}/approve", s.handleApproveQuote)
		r.Post("/{id}/reject", s.handleRejectQuote)
	})

	s.router.Route("/v1/change-requests", func(r chi.Router) {
		r.Get("/{id}", s.handleGetChangeRequest)
		r.Post("/{id}/approve", s.handleApproveChangeRequest)
		r.Post("/{id}/reject", s.handleRejectChangeRequest)
		r.Post("/{id}/apply", s.handleApplyChangeRequest)
	})
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// actorFrom extracts the acting user identity forwarded by the gateway.
func actorFrom(r *http.Request) model.Actor {
	return model.Actor{
		UserID: r.Header.Get(headerUserID),
		Role:   r.Header.Get(headerUserRole),
	}
}

func tokenFrom(r *http.Request) string {
	return r.Header.Get(headerIdempotencyKey)
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, map[string]string{"code": code, "error": message})
}

// writeEngineError maps a workflow error to an HTTP response. Domain codes
// map to 400/404/409; anything else is a 500.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		status := http.StatusBadRequest
		switch de.Code {
		case domain.CodeNotFound:
			status = http.StatusNotFound
		case domain.CodeIllegalTransition, domain.CodeConflict:
			status = http.StatusConflict
		}
		s.writeError(w, status, string(de.Code), de.Message)
		return
	}

	s.logger.Error("command failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
}
