package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-studio/internal/catalog"
	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/playback"
)

const maxJSONBody = 64 * 1024

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Sender == nil {
		cfg.Sender = playback.NewSender(cfg.Logger)
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Route("/api/videos", func(r chi.Router) {
		r.Get("/get/all", listVideosHandler(cfg))
		r.Post("/upload", uploadHandler(cfg))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getVideoHandler(cfg))
			r.Delete("/", deleteVideoHandler(cfg))
			r.Post("/trim", trimHandler(cfg))
			r.Post("/subtitles", subtitlesHandler(cfg))
			r.Post("/render", renderHandler(cfg))
			r.Get("/download", downloadHandler(cfg))
			r.Get("/events", eventsHandler(cfg))
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func listVideosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := cfg.Videos.List(r.Context())
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		resp := make([]VideoResponse, len(videos))
		for i, v := range videos {
			resp[i] = VideoToResponse(v)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoID(w, r)
		if !ok {
			return
		}

		v, err := cfg.Videos.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, VideoToResponse(v))
	}
}

func deleteVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoID(w, r)
		if !ok {
			return
		}

		if err := cfg.Videos.Delete(r.Context(), id); err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, MessageResponse{Message: "Video deleted successfully"})
	}
}

func trimHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoID(w, r)
		if !ok {
			return
		}

		var req TrimRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		v, err := cfg.Videos.Trim(r.Context(), id, req.StartTime, req.EndTime)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		writeTranscode(w, "Video trimmed successfully", v)
	}
}

func subtitlesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoID(w, r)
		if !ok {
			return
		}

		var req SubtitleRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		v, err := cfg.Videos.AddSubtitle(r.Context(), id, media.Overlay{
			Text:  req.Text,
			Start: req.StartTime,
			End:   req.EndTime,
		})
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		writeTranscode(w, "Subtitles added successfully", v)
	}
}

func renderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoID(w, r)
		if !ok {
			return
		}

		v, err := cfg.Videos.Render(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}
		writeTranscode(w, "Video rendered successfully", v)
	}
}

func downloadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoID(w, r)
		if !ok {
			return
		}

		v, err := cfg.Videos.DownloadPath(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		if err := cfg.Sender.Send(w, r, v.Path); err != nil {
			if errors.Is(err, playback.ErrNotRegularFile) {
				err = catalog.ErrFileMissing
			}
			writeServiceError(w, r, cfg.Logger, err)
		}
	}
}

func eventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoID(w, r)
		if !ok {
			return
		}

		evs, err := cfg.Videos.History(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, cfg.Logger, err)
			return
		}

		resp := EventsResponse{VideoID: id, Events: make([]EventResponse, len(evs))}
		for i, e := range evs {
			resp.Events[i] = EventToResponse(e)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func writeTranscode(w http.ResponseWriter, message string, v *catalog.Video) {
	WriteJSON(w, http.StatusOK, TranscodeResponse{
		Message: message,
		Path:    v.Path,
		Video:   VideoToResponse(v),
	})
}

// videoID parses the {id} path parameter, writing a 400 when it is not a
// positive integer.
func videoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid video id", CodeBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON reads a small JSON body. An empty body decodes as {}.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "invalid request body", CodeBadRequest)
		return false
	}
	return true
}
