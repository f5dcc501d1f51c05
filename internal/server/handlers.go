package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"briefcast/internal/api"
	"briefcast/internal/logging"
)

const (
	maxRequestBody   = 2 << 20
	defaultListLimit = 20
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleUploadCredentials(w http.ResponseWriter, r *http.Request) {
	var req api.UploadCredentialsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.UserID != requestUser(r) {
		s.writeError(w, http.StatusForbidden, "credentials may only be uploaded for the authenticated user")
		return
	}
	if err := s.credentials.Put(r.Context(), req.UserID, req.Credentials); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.logger.Info("credentials stored", logging.String(logging.FieldUserID, req.UserID))
	s.writeJSON(w, http.StatusOK, api.UploadCredentialsResponse{
		Status:        "success",
		Message:       "Credentials uploaded successfully",
		Authenticated: true,
	})
}

func (s *Server) handleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.credentials.StatusFor(r.Context(), requestUser(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	resp := api.CredentialStatus{Authenticated: status.Authenticated}
	if status.Authenticated {
		resp.Credentials = &api.CredentialInfo{
			UserID:          status.UserID,
			AuthenticatedAt: status.CapturedAt,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)
	removed, err := s.credentials.Delete(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if removed {
		s.logger.Info("credentials revoked", logging.String(logging.FieldUserID, userID))
		if err := s.notifier.NotifyCredentialRevoked(r.Context(), userID); err != nil {
			s.logger.Warn("revocation notification failed", logging.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, api.RevokeResponse{Revoked: removed})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)
	job, err := s.jobs.Create(r.Context(), userID, time.Now().UTC())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.logger.Info("generation requested",
		logging.String(logging.FieldUserID, userID),
		logging.String(logging.FieldJobID, job.ID))
	s.writeJSON(w, http.StatusAccepted, api.GenerateResponse{Job: api.FromJob(job)})
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	list, err := s.jobs.ListForUser(r.Context(), requestUser(r), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(list)})
}

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := s.jobs.GetForUser(r.Context(), requestUser(r), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "generation not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromJob(job))
}

func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	if s.cronSecret == "" {
		s.writeError(w, http.StatusNotFound, "cron trigger disabled")
		return
	}
	provided := r.Header.Get("X-Cron-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.cronSecret)) != 1 {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if s.cron == nil {
		s.writeError(w, http.StatusServiceUnavailable, "scheduler unavailable")
		return
	}
	created, err := s.cron.CheckAll(r.Context())
	if err != nil {
		s.logger.Error("cron scheduling pass failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "scheduling pass failed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.CronResponse{JobsCreated: created})
}

func decodeBody(r *http.Request, dst any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected trailing data")
	}
	return nil
}
