package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/appgrid/catalog-engine/internal/auth"
	"github.com/appgrid/catalog-engine/internal/catalog"
	"github.com/appgrid/catalog-engine/internal/forms"
	"github.com/appgrid/catalog-engine/internal/models"
	"github.com/appgrid/catalog-engine/internal/store"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondWriteError maps a catalog write failure to a status code. Store
// not-found surfaces as 404; every other remote failure is a 502 since
// the backing store, not this service, rejected the write.
func respondWriteError(w http.ResponseWriter, err error, action string) {
	var verr *forms.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, "validation_error", verr.Error())
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "app not found")
	case errors.Is(err, catalog.ErrRemoteWrite):
		slog.Error("remote write failed", "action", action, "error", err)
		respondError(w, http.StatusBadGateway, "remote_write_failed", "failed to "+action+", please retry")
	default:
		slog.Error("unexpected error", "action", action, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Public catalog handlers

func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("search")
	category := models.Category(r.URL.Query().Get("category"))

	items := catalog.Filter(s.catalog.Snapshot(), term, category)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"apps":  items,
		"total": len(items),
	})
}

func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	app, ok := s.catalog.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "app not found")
		return
	}

	respondJSON(w, http.StatusOK, app)
}

// handleDownload bumps the download counter and hands back the APK link.
// The count in the response is the optimistic local value, taken in the
// same critical section as the bump; a failed remote increment never
// turns the download away.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	app, ok := s.catalog.Download(r.Context(), id)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "app not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"apk_link":  app.APKLink,
		"downloads": app.Downloads,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": models.Categories(),
	})
}

// Auth handlers

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "email and password are required")
		return
	}

	token, sess, err := s.authenticator.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNotAuthorized):
			respondError(w, http.StatusForbidden, "not_authorized", "access denied: email is not authorized for admin access")
		case errors.Is(err, auth.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		default:
			slog.Error("login failed", "error", err)
			respondError(w, http.StatusInternalServerError, "internal_error", "login failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, models.LoginResponse{
		Token:   token,
		Session: *sess,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := extractSessionToken(r)

	if err := s.authenticator.Logout(r.Context(), token); err != nil {
		slog.Error("logout failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "logout failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "logged out",
	})
}
