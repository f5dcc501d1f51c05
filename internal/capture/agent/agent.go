// Package agent exposes the capture controller to the local dashboard UI
// over a loopback HTTP server. It is the desktop-side counterpart of the
// backend API: the UI asks it to open the login window, confirm or cancel
// the capture, and push the captured session to the backend.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"briefcast/internal/capture"
	"briefcast/internal/config"
	"briefcast/internal/logging"
	"briefcast/internal/services"
)

// Server is the local capture agent HTTP server.
type Server struct {
	bind       string
	controller *capture.Controller
	uploader   *capture.Uploader
	credsDir   string
	logger     *slog.Logger

	listener net.Listener
	server   *http.Server
}

// New builds the agent server around an existing controller and uploader.
func New(cfg *config.Config, controller *capture.Controller, uploader *capture.Uploader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &Server{
		bind:       cfg.Agent.Bind,
		controller: controller,
		uploader:   uploader,
		credsDir:   cfg.Paths.CredentialsDir,
		logger:     logging.WithComponent(logger, "capture-agent"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/authenticate", srv.handleAuthenticate)
	mux.HandleFunc("/complete-auth", srv.handleCompleteAuth)
	mux.HandleFunc("/cancel", srv.handleCancel)
	mux.HandleFunc("/upload", srv.handleUpload)
	mux.HandleFunc("/status", srv.handleStatus)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured loopback address and serves until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("agent listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("agent server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("capture agent listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and closes any open capture.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.controller.Shutdown()
}

type authenticateRequest struct {
	UserID string `json:"user_id"`
}

type completeAuthRequest struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle"`
}

type uploadRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req authenticateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.controller.Start(r.Context(), strings.TrimSpace(req.UserID))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompleteAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req completeAuthRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	path, err := s.controller.Confirm(r.Context(), req.UserID, req.Handle)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":           "captured",
		"credentials_path": path,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req completeAuthRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.controller.Cancel(req.UserID, req.Handle); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req uploadRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.uploader.Upload(r.Context(), req.UserID, req.Token); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "uploaded"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.controller.Status()
	payload := map[string]any{"capture": status}
	if userID := strings.TrimSpace(r.URL.Query().Get("user_id")); userID != "" {
		_, err := os.Stat(capture.LocalPath(s.credsDir, userID))
		payload["local_session"] = err == nil
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrCaptureConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNoActiveSession),
		errors.Is(err, services.ErrLocalSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrUploadRejected):
		status = http.StatusBadGateway
	}
	s.writeError(w, status, services.Message(err))
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
