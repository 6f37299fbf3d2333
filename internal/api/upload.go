package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/heimdex/heimdex-studio/internal/catalog"
	"github.com/heimdex/heimdex-studio/internal/storage"
)

const (
	uploadField = "video"
	// Room for multipart framing and small form fields around the file.
	multipartOverhead = 1 << 20
)

func uploadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.MaxUploadSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize+multipartOverhead)
		}

		f, err := receiveUpload(r, cfg.Dir, cfg.MaxUploadSize, cfg.Logger)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		v, err := cfg.Videos.Upload(r.Context(), f)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		WriteJSON(w, http.StatusCreated, UploadResponse{
			Message: "Video uploaded successfully",
			Video:   VideoToResponse(v),
		})
	}
}

// receiveUpload streams the first "video" file part to the media directory.
// Other parts are skipped. Nothing stays on disk when an error is returned.
func receiveUpload(r *http.Request, dir *storage.Dir, limit int64, logger *slog.Logger) (*storage.StoredFile, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: expected a multipart/form-data body", catalog.ErrInvalidInput)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no video file uploaded", catalog.ErrInvalidInput)
		}
		if err != nil {
			return nil, uploadReadError(r, logger, err, limit)
		}

		if part.FormName() != uploadField || part.FileName() == "" {
			part.Close()
			continue
		}

		mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if !catalog.IsVideoMimeType(mediaType) {
			part.Close()
			return nil, fmt.Errorf("%w: only MP4 and QuickTime videos are allowed", catalog.ErrInvalidInput)
		}

		f, err := dir.Save(part.FileName(), part, limit)
		part.Close()
		if err != nil {
			if isTooLarge(err) {
				return nil, uploadReadError(r, logger, err, limit)
			}
			return nil, err
		}
		return f, nil
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.Is(err, storage.ErrTooLarge) || errors.As(err, &maxErr)
}

// uploadReadError keeps parser detail in the log and out of the response.
func uploadReadError(r *http.Request, logger *slog.Logger, err error, limit int64) error {
	if isTooLarge(err) {
		return fmt.Errorf("%w: file exceeds the %s upload limit", catalog.ErrInvalidInput, humanize.IBytes(uint64(limit)))
	}
	logger.Warn("malformed upload", "error", err, "request_id", RequestID(r.Context()))
	return fmt.Errorf("%w: malformed upload", catalog.ErrInvalidInput)
}
