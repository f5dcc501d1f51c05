package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"log/slog"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"briefcast/internal/config"
	"briefcast/internal/credentials"
	"briefcast/internal/jobs"
	"briefcast/internal/logging"
	"briefcast/internal/notifications"
	"briefcast/internal/services"
)

// CronRunner triggers one scheduling pass. Satisfied by scheduler.Scheduler.
type CronRunner interface {
	CheckAll(ctx context.Context) (int, error)
}

// Server is the backend HTTP API.
type Server struct {
	bind        string
	cronSecret  string
	jobs        *jobs.Store
	credentials *credentials.Store
	cron        CronRunner
	notifier    notifications.Service
	verifier    Verifier
	logger      *slog.Logger
	handler     http.Handler

	listener net.Listener
	server   *http.Server
}

// New assembles the router and middleware chain. The cron runner may be nil
// when the scheduler is disabled; the endpoint then reports unavailable.
func New(cfg *config.Config, jobStore *jobs.Store, credStore *credentials.Store, cron CronRunner, notifier notifications.Service, verifier Verifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if verifier == nil {
		verifier = NewConfigVerifier(cfg)
	}
	s := &Server{
		bind:        cfg.API.Bind,
		cronSecret:  cfg.API.CronSecret,
		jobs:        jobStore,
		credentials: credStore,
		cron:        cron,
		notifier:    notifier,
		verifier:    verifier,
		logger:      logging.WithComponent(logger, "api-server"),
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/auth/notebooklm/upload-credentials", s.requireAuth(s.handleUploadCredentials)).Methods(http.MethodPost)
	router.HandleFunc("/auth/notebooklm/status", s.requireAuth(s.handleCredentialStatus)).Methods(http.MethodGet)
	router.HandleFunc("/auth/notebooklm/revoke", s.requireAuth(s.handleRevoke)).Methods(http.MethodDelete)
	router.HandleFunc("/generate", s.requireAuth(s.handleGenerate)).Methods(http.MethodPost)
	router.HandleFunc("/generations", s.requireAuth(s.handleListGenerations)).Methods(http.MethodGet)
	router.HandleFunc("/generations/{id}", s.requireAuth(s.handleGetGeneration)).Methods(http.MethodGet)
	router.HandleFunc("/cron/daily-generation", s.handleCron).Methods(http.MethodPost)

	var handler http.Handler = router
	if len(cfg.API.AllowedOrigins) > 0 {
		handler = handlers.CORS(
			handlers.AllowedOrigins(cfg.API.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		)(handler)
	}
	handler = handlers.RecoveryHandler(handlers.RecoveryLogger(&panicLogger{logger: s.logger}))(handler)
	s.handler = handler

	s.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the middleware chain for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving and returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop drains in-flight requests and closes the listener.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps classified errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, services.Message(err))
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, services.Message(err))
	case errors.Is(err, services.ErrJobAlreadyRunning):
		s.writeError(w, http.StatusConflict, services.Message(err))
	default:
		s.logger.Error("request failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type panicLogger struct {
	logger *slog.Logger
}

func (p *panicLogger) Println(v ...any) {
	p.logger.Error("handler panic", logging.String("detail", fmt.Sprint(v...)))
}
