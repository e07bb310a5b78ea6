package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/api/apierrors"
	"github.com/dmitrijs2005/filevault/internal/server/api/middleware"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/services"
)

// FilesHandler serves the authenticated file lifecycle endpoints.
type FilesHandler struct {
	files  *services.FileService
	tokens *auth.Service
	logger logging.Logger
}

// NewFilesHandler wires the file endpoints to the file service.
func NewFilesHandler(files *services.FileService, tokens *auth.Service, logger logging.Logger) *FilesHandler {
	return &FilesHandler{files: files, tokens: tokens, logger: logger}
}

// Routes mounts the file endpoints on r. Every route requires a bearer
// access token.
func (h *FilesHandler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.tokens))
		r.Post("/upload", h.Upload)
		r.Get("/files", h.List)
		r.Get("/file/{id}", h.GetDownloadURL)
		r.Delete("/file/{id}", h.Delete)
		r.Delete("/file/{id}/purge", h.Purge)
	})
}

func fileResponse(f *models.File) map[string]any {
	return map[string]any{
		"fileId":        f.ID,
		"filename":      f.Filename,
		"size":          f.Size,
		"mimeType":      f.MimeType,
		"storageKey":    f.StorageKey,
		"uploadedAt":    f.UploadedAt.UTC().Format(time.RFC3339),
		"downloadCount": f.DownloadCount,
	}
}

// Upload handles POST /upload?filename=X with a raw body.
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.UserID(r.Context())
	filename := r.URL.Query().Get("filename")

	// One byte over the limit is enough to distinguish at-limit from
	// too-large without buffering an unbounded body.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, common.MaxFileSize+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.FileTooLarge(w, r)
			return
		}
		h.logger.Error(r.Context(), "failed to read upload body", "error", err)
		apierrors.InternalError(w, r)
		return
	}
	if int64(len(body)) > common.MaxFileSize {
		apierrors.FileTooLarge(w, r)
		return
	}

	file, err := h.files.Upload(r.Context(), ownerID, filename, r.Header.Get("Content-Type"), int64(len(body)), bytes.NewReader(body))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrMissingFilename):
			apierrors.MissingFilename(w, r)
		case errors.Is(err, common.ErrFilenameTooLong):
			apierrors.FilenameTooLong(w, r)
		case errors.Is(err, common.ErrEmptyFile):
			apierrors.EmptyFile(w, r)
		case errors.Is(err, common.ErrFileTooLarge):
			apierrors.FileTooLarge(w, r)
		case errors.Is(err, common.ErrDuplicateFile):
			apierrors.DuplicateFile(w, r)
		case errors.Is(err, common.ErrStorage):
			h.logger.Error(r.Context(), "upload failed", "error", err)
			apierrors.StorageError(w, r)
		default:
			h.logger.Error(r.Context(), "upload failed", "error", err)
			apierrors.InternalError(w, r)
		}
		return
	}

	resp := fileResponse(file)
	resp["message"] = "file uploaded successfully"
	writeJSON(w, http.StatusCreated, resp)
}

// GetDownloadURL handles GET /file/{id}. Optional query parameters:
// download=true forces an attachment disposition, expiresIn overrides the
// URL TTL in seconds up to the configured maximum.
func (h *FilesHandler) GetDownloadURL(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.UserID(r.Context())
	fileID := chi.URLParam(r, "id")

	forceDownload := r.URL.Query().Get("download") == "true"

	var ttl time.Duration
	if v := r.URL.Query().Get("expiresIn"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			ttl = time.Duration(seconds) * time.Second
		}
	}

	result, err := h.files.GetDownloadURL(r.Context(), ownerID, fileID, ttl, forceDownload)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			apierrors.FileNotFound(w, r)
		case errors.Is(err, common.ErrObjectMissing):
			apierrors.FileNotInStorage(w, r)
		case errors.Is(err, common.ErrStorage):
			h.logger.Error(r.Context(), "download url generation failed", "error", err)
			apierrors.URLGenerationError(w, r)
		default:
			h.logger.Error(r.Context(), "download url generation failed", "error", err)
			apierrors.InternalError(w, r)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"downloadUrl": result.URL,
		"filename":    result.File.Filename,
		"size":        result.File.Size,
		"mimeType":    result.File.MimeType,
		"expiresIn":   int64(result.ExpiresIn.Seconds()),
		"expiresAt":   time.Now().Add(result.ExpiresIn).UTC().Format(time.RFC3339),
	})
}

// List handles GET /files with limit, skip, sortBy, and sortOrder query
// parameters.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.UserID(r.Context())
	q := r.URL.Query()

	opts := files.ListOptions{
		SortField: q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := q.Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Skip = n
		}
	}

	listing, err := h.files.List(r.Context(), ownerID, opts)
	if err != nil {
		if errors.Is(err, common.ErrLimitTooHigh) {
			apierrors.LimitTooHigh(w, r)
			return
		}
		h.logger.Error(r.Context(), "file listing failed", "error", err)
		apierrors.InternalError(w, r)
		return
	}

	items := make([]map[string]any, 0, len(listing.Files))
	for _, f := range listing.Files {
		items = append(items, fileResponse(f))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files": items,
		"pagination": map[string]any{
			"total":   listing.Summary.TotalFiles,
			"limit":   listing.Limit,
			"skip":    listing.Skip,
			"hasMore": listing.HasMore,
		},
		"summary": map[string]any{
			"totalFiles": listing.Summary.TotalFiles,
			"totalSize":  listing.Summary.TotalSize,
		},
	})
}

// Delete handles DELETE /file/{id}, the soft delete.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.UserID(r.Context())
	fileID := chi.URLParam(r, "id")

	if err := h.files.SoftDelete(r.Context(), ownerID, fileID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			apierrors.FileNotFound(w, r)
			return
		}
		h.logger.Error(r.Context(), "file deletion failed", "error", err)
		apierrors.InternalError(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "file deleted successfully",
		"fileId":  fileID,
	})
}

// Purge handles DELETE /file/{id}/purge, the permanent removal. It also
// accepts files that were already soft-deleted.
func (h *FilesHandler) Purge(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.UserID(r.Context())
	fileID := chi.URLParam(r, "id")

	if err := h.files.HardDelete(r.Context(), ownerID, fileID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			apierrors.FileNotFound(w, r)
			return
		}
		h.logger.Error(r.Context(), "file purge failed", "error", err)
		apierrors.InternalError(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "file permanently deleted",
		"fileId":  fileID,
	})
}
