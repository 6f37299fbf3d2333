package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/heimdex/heimdex-studio/internal/archive"
	"github.com/heimdex/heimdex-studio/internal/events"
	"github.com/heimdex/heimdex-studio/internal/locks"
	"github.com/heimdex/heimdex-studio/internal/logging"
	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/storage"
)

var opEvents = map[Operation]string{
	OpTrim:     events.TypeTrimmed,
	OpSubtitle: events.TypeSubtitled,
	OpRender:   events.TypeRendered,
}

// VideoService is what the HTTP layer needs from the catalog.
type VideoService interface {
	Upload(ctx context.Context, f *storage.StoredFile) (*Video, error)
	List(ctx context.Context) ([]*Video, error)
	Get(ctx context.Context, id int64) (*Video, error)
	Delete(ctx context.Context, id int64) error
	Trim(ctx context.Context, id int64, start, end media.Seconds) (*Video, error)
	AddSubtitle(ctx context.Context, id int64, o media.Overlay) (*Video, error)
	Render(ctx context.Context, id int64) (*Video, error)
	DownloadPath(ctx context.Context, id int64) (*Video, error)
	History(ctx context.Context, id int64) ([]events.Event, error)
}

// HistoryReader reads back journaled lifecycle events.
type HistoryReader interface {
	List(ctx context.Context, videoID int64) ([]events.Event, error)
}

type ServiceConfig struct {
	Repo      Repository
	Engine    media.Engine
	Dir       *storage.Dir
	Locker    locks.Locker     // default: in-process keyed mutex
	Publisher events.Publisher // default: no-op
	History   HistoryReader    // optional
	Archiver  archive.Archiver // optional; rendered files are mirrored when set
	Logger    *slog.Logger
}

type Service struct {
	repo      Repository
	engine    media.Engine
	dir       *storage.Dir
	locker    locks.Locker
	publisher events.Publisher
	history   HistoryReader
	archive   *ArchiveRunner
	logger    *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		engine:    cfg.Engine,
		dir:       cfg.Dir,
		locker:    cfg.Locker,
		publisher: cfg.Publisher,
		history:   cfg.History,
		logger:    cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.locker == nil {
		s.locker = locks.NewKeyedMutex()
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if cfg.Archiver != nil {
		s.archive = NewArchiveRunner(cfg.Archiver, logging.WithComponent(s.logger, "archive"))
	}
	return s
}

// Close waits for background archive uploads.
func (s *Service) Close() {
	if s.archive != nil {
		s.archive.Close()
	}
}

// Upload probes a stored upload and records it. When probing fails the
// stored file is removed, since nothing will reference it.
func (s *Service) Upload(ctx context.Context, f *storage.StoredFile) (*Video, error) {
	md, err := s.engine.Probe(ctx, f.Path)
	if err != nil {
		if rmErr := storage.Remove(f.Path); rmErr != nil {
			s.logger.Warn("failed to remove unprobeable upload", "path", logging.SanitizePath(f.Path), "error", rmErr)
		}
		return nil, fmt.Errorf("probe upload: %w", err)
	}

	v := &Video{
		Title:    f.OriginalName,
		Filename: f.Filename,
		Path:     f.Path,
		Size:     f.Size,
		Duration: md.Duration,
		Width:    md.Width,
		Height:   md.Height,
		Status:   StatusUploaded,
	}
	if err := s.repo.CreateVideo(ctx, v); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}

	logging.WithVideoID(s.logger, v.ID).Info("video uploaded",
		"filename", v.Filename,
		"size", humanize.IBytes(uint64(v.Size)),
		"duration", v.Duration,
		"resolution", fmt.Sprintf("%dx%d", v.Width, v.Height),
	)
	s.publish(ctx, events.TypeUploaded, v)
	return v, nil
}

func (s *Service) List(ctx context.Context) ([]*Video, error) {
	return s.repo.ListVideos(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*Video, error) {
	v, err := s.repo.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

// Delete removes the current file (tolerating its absence) and then the record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return fmt.Errorf("lock video %d: %w", id, err)
	}
	defer unlock()

	// The file and the record go together; a client disconnect must not split them.
	ctx = context.WithoutCancel(ctx)

	v, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := storage.Remove(v.Path); err != nil {
		return fmt.Errorf("remove video file: %w", err)
	}
	if err := s.repo.DeleteVideo(ctx, id); err != nil {
		return err
	}

	logging.WithVideoID(s.logger, id).Info("video deleted")
	s.publish(ctx, events.TypeDeleted, &Video{ID: id})
	return nil
}

func (s *Service) Trim(ctx context.Context, id int64, start, end media.Seconds) (*Video, error) {
	return s.transcode(ctx, id, OpTrim, func(in, out string) (media.Job, error) {
		return media.TrimJob(in, out, start, end), nil
	})
}

func (s *Service) AddSubtitle(ctx context.Context, id int64, o media.Overlay) (*Video, error) {
	if err := media.ValidateOverlayText(o.Text); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.transcode(ctx, id, OpSubtitle, func(in, out string) (media.Job, error) {
		return media.SubtitleJob(in, out, o)
	})
}

func (s *Service) Render(ctx context.Context, id int64) (*Video, error) {
	v, err := s.transcode(ctx, id, OpRender, func(in, out string) (media.Job, error) {
		return media.RenderJob(in, out), nil
	})
	if err != nil {
		return nil, err
	}
	if s.archive != nil {
		s.archive.Enqueue(v.ID, v.Path)
	}
	return v, nil
}

// DownloadPath returns the video whose current file is ready to stream.
func (s *Service) DownloadPath(ctx context.Context, id int64) (*Video, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := storage.Exists(v.Path)
	if err != nil {
		return nil, fmt.Errorf("stat video file: %w", err)
	}
	if !ok {
		return nil, ErrFileMissing
	}
	return v, nil
}

// History returns journaled events for a video, including deleted ones.
func (s *Service) History(ctx context.Context, id int64) ([]events.Event, error) {
	var evs []events.Event
	if s.history != nil {
		var err error
		evs, err = s.history.List(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if len(evs) == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	if evs == nil {
		evs = []events.Event{}
	}
	return evs, nil
}

// transcode runs one operation against the video's current file. The record
// changes only after the engine succeeds.
func (s *Service) transcode(ctx context.Context, id int64, op Operation, build func(in, out string) (media.Job, error)) (*Video, error) {
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock video %d: %w", id, err)
	}
	defer unlock()

	// Once started, the operation runs to completion even if the client goes away.
	ctx = context.WithoutCancel(ctx)

	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := storage.Exists(v.Path)
	if err != nil {
		return nil, fmt.Errorf("stat video file: %w", err)
	}
	if !ok {
		return nil, ErrFileMissing
	}

	status := op.Status()
	output := s.dir.ArtifactPath(string(status), v.Path)
	job, err := build(v.Path, output)
	if err != nil {
		if errors.Is(err, media.ErrUnescapableText) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}

	logger := logging.WithVideoID(s.logger, id)
	logger.Info("transcode started", "operation", op, "output", filepath.Base(output))

	start := time.Now()
	if err := s.engine.Transcode(ctx, job); err != nil {
		logger.Error("transcode failed", "operation", op, "error", err)
		return nil, err
	}

	if err := s.repo.UpdateVideo(ctx, id, VideoUpdate{Path: &output, Status: &status}); err != nil {
		logger.Error("record update failed after transcode, output is orphaned",
			"operation", op,
			"output", logging.SanitizePath(output),
			"error", err,
		)
		return nil, fmt.Errorf("update video: %w", err)
	}

	v.Path = output
	v.Status = status
	logger.Info("transcode completed", "operation", op, "duration_ms", time.Since(start).Milliseconds())
	s.publish(ctx, opEvents[op], v)
	return v, nil
}

func (s *Service) publish(ctx context.Context, eventType string, v *Video) {
	e := events.Event{
		Type:       eventType,
		VideoID:    v.ID,
		Status:     string(v.Status),
		Path:       v.Path,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Warn("failed to publish event", "type", eventType, "video_id", v.ID, "error", err)
	}
}
