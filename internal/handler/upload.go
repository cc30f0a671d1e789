package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dukerupert/mise/internal/apperr"
	"github.com/dukerupert/mise/internal/storage"
)

const maxUploadSize = 5 << 20

var (
	allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
	allowedImageExts  = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}
)

// ObjectStore holds uploaded files behind public URLs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(u string) (string, bool)
}

type UploadHandler struct {
	objects ObjectStore
	now     func() time.Time
	logger  *slog.Logger
}

// NewUploadHandler accepts a nil store; every request then answers 503.
func NewUploadHandler(objects ObjectStore, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{objects: objects, now: time.Now, logger: logger}
}

type uploadResponse struct {
	URL          string    `json:"url"`
	Key          string    `json:"key"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Upload serves POST /api/upload.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.objects == nil {
		writeMessage(w, r, http.StatusServiceUnavailable, "file storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, h.logger, apperr.Invalid("file too large, maximum size is 5MB"))
			return
		}
		writeError(w, r, h.logger, apperr.Invalid("expected a multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.logger, apperr.Invalid("no file provided"))
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		writeError(w, r, h.logger, apperr.Invalid("file too large, maximum size is 5MB"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if len(data) > maxUploadSize {
		writeError(w, r, h.logger, apperr.Invalid("file too large, maximum size is 5MB"))
		return
	}

	mt := mimetype.Detect(data)
	if !slices.ContainsFunc(allowedImageTypes, mt.Is) {
		writeError(w, r, h.logger, apperr.Invalid("file must be a JPEG, PNG, WebP or GIF image"))
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !slices.Contains(allowedImageExts, ext) {
		writeError(w, r, h.logger, apperr.Invalid("file extension must be .jpg, .jpeg, .png, .webp or .gif"))
		return
	}

	now := h.now()
	key, filename := storage.Key(r.FormValue("type"), header.Filename, now)
	contentType, _, _ := strings.Cut(mt.String(), ";")

	url, err := h.objects.Put(r.Context(), key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("file uploaded", "key", key, "size", len(data))
	writeJSON(w, http.StatusCreated, uploadResponse{
		URL:          url,
		Key:          key,
		Filename:     filename,
		OriginalName: header.Filename,
		Size:         int64(len(data)),
		MimeType:     contentType,
		UploadedAt:   now.UTC(),
	})
}

// Delete serves DELETE /api/upload?url=.
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.objects == nil {
		writeMessage(w, r, http.StatusServiceUnavailable, "file storage is not configured")
		return
	}

	key, ok := h.objects.KeyFromURL(r.URL.Query().Get("url"))
	if !ok {
		writeError(w, r, h.logger, apperr.Invalid("url must point into the upload bucket"))
		return
	}
	if err := h.objects.Delete(r.Context(), key); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("file deleted", "key", key)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
