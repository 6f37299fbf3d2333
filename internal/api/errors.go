package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/heimdex/heimdex-studio/internal/catalog"
	"github.com/heimdex/heimdex-studio/internal/media"
)

// Error codes
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeFileMissing      = "FILE_MISSING"
	CodeProcessingFailed = "PROCESSING_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
)

// writeServiceError maps a catalog or engine error to a response. Engine and
// store details are logged, never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeBadRequest)
	case errors.Is(err, catalog.ErrNotFound):
		WriteError(w, http.StatusNotFound, "video not found", CodeNotFound)
	case errors.Is(err, catalog.ErrFileMissing):
		WriteError(w, http.StatusNotFound, "video file not found", CodeFileMissing)
	case errors.Is(err, media.ErrProbe), errors.Is(err, media.ErrTranscode):
		logger.Error("video processing failed", "error", err, "path", r.URL.Path, "request_id", RequestID(r.Context()))
		WriteError(w, http.StatusInternalServerError, "video processing failed", CodeProcessingFailed)
	default:
		logger.Error("request failed", "error", err, "path", r.URL.Path, "request_id", RequestID(r.Context()))
		WriteError(w, http.StatusInternalServerError, "internal server error", CodeInternal)
	}
}
