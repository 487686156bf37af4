// Package upload implements "POST /upload-media": a
// direct user upload of a video/audio/PDF file to the permanent media
// bucket, which never expires.
package upload

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"insightfeed/internal/handler/http/auth"
	"insightfeed/internal/handler/http/respond"
	"insightfeed/internal/infra/objectstore"
)

// MaxUploadBytes bounds the multipart body this handler will accept.
const MaxUploadBytes = 500 << 20 // 500 MiB

// Handler stores an uploaded file in the permanent bucket under
// "uploaded-media/user_<user_id>/<epoch>_<filename>".
type Handler struct {
	Permanent *objectstore.Store
	Now       func() time.Time
}

var allowedContentTypes = map[string]string{
	"video/mp4":       "video",
	"video/quicktime": "video",
	"video/webm":      "video",
	"audio/mpeg":      "audio",
	"audio/mp4":       "audio",
	"audio/wav":       "audio",
	"audio/x-wav":     "audio",
	"application/pdf": "document",
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, errFileRequired)
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	mediaType, ok := allowedContentTypes[contentType]
	if !ok {
		respond.SafeError(w, http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type: %s", contentType))
		return
	}

	userID := auth.UserFromContext(r.Context())
	now := h.Now
	if now == nil {
		now = time.Now
	}
	safeName := filepath.Base(header.Filename)
	key := fmt.Sprintf("uploaded-media/user_%s/%d_%s", userID, now().Unix(), safeName)

	storageKey, err := h.Permanent.Put(r.Context(), key, io.LimitReader(file, MaxUploadBytes), contentType, header.Size)
	if err != nil {
		respond.SafeError(w, http.StatusBadGateway, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"url":          storageKey,
		"storage_path": storageKey,
		"media_type":   mediaType,
	})
}

type fileRequiredError struct{}

func (fileRequiredError) Error() string { return "file is required" }

var errFileRequired = fileRequiredError{}

var _ = strings.TrimSpace // reserved for filename sanitation extensions
