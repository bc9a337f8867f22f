package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/appgrid/catalog-engine/internal/catalog"
	"github.com/appgrid/catalog-engine/internal/forms"
)

// maxAssetSize caps asset uploads at 10 MiB
const maxAssetSize = 10 << 20

// Admin catalog handlers

func (s *Server) handleCreateApp(w http.ResponseWriter, r *http.Request) {
	var draft forms.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	app, err := s.catalog.Create(r.Context(), &draft)
	if err != nil {
		respondWriteError(w, err, "create app")
		return
	}

	respondJSON(w, http.StatusCreated, app)
}

func (s *Server) handleUpdateApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var draft forms.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := s.catalog.Update(r.Context(), id, &draft); err != nil {
		respondWriteError(w, err, "update app")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": "updated",
	})
}

func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.catalog.Delete(r.Context(), id); err != nil {
		respondWriteError(w, err, "delete app")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": "deleted",
	})
}

// handleUploadAsset accepts a multipart form with a single "file" field
// and stores it in the asset store
func (s *Server) handleUploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAssetSize)

	if err := r.ParseMultipartForm(maxAssetSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "multipart form with a file field is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "file field is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := s.assetStore.Upload(r.Context(), header.Filename, contentType, file)
	if err != nil {
		slog.Error("asset upload failed", "filename", header.Filename, "error", err)
		respondError(w, http.StatusBadGateway, "upload_failed", "failed to store asset, please retry")
		return
	}

	sess := SessionFromContext(r.Context())
	slog.Info("asset uploaded", "filename", header.Filename, "url", url, "by", sess.Email)

	respondJSON(w, http.StatusCreated, map[string]string{
		"url": url,
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, catalog.Summarize(s.catalog.Snapshot()))
}
