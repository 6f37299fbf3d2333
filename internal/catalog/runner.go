package catalog

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/heimdex/heimdex-studio/internal/archive"
)

const (
	archiveQueueSize = 64
	archiveTimeout   = 30 * time.Minute
)

type archiveTask struct {
	videoID int64
	path    string
}

// ArchiveRunner uploads rendered artifacts in the background, one at a time.
type ArchiveRunner struct {
	archiver archive.Archiver
	logger   *slog.Logger
	queue    chan archiveTask
	done     chan struct{}
	active   atomic.Int32

	mu     sync.RWMutex
	closed bool
}

func NewArchiveRunner(archiver archive.Archiver, logger *slog.Logger) *ArchiveRunner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &ArchiveRunner{
		archiver: archiver,
		logger:   logger,
		queue:    make(chan archiveTask, archiveQueueSize),
		done:     make(chan struct{}),
	}
	go r.run()
	return r
}

// Enqueue schedules an upload. It never blocks; false means the task was
// dropped because the runner is closed or full.
func (r *ArchiveRunner) Enqueue(videoID int64, path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}

	select {
	case r.queue <- archiveTask{videoID: videoID, path: path}:
		return true
	default:
		r.logger.Warn("archive queue full, skipping upload", "video_id", videoID)
		return false
	}
}

// Pending reports queued plus in-flight uploads.
func (r *ArchiveRunner) Pending() int {
	return len(r.queue) + int(r.active.Load())
}

// Close stops accepting work and waits for queued uploads to finish.
func (r *ArchiveRunner) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *ArchiveRunner) run() {
	defer close(r.done)

	r.logger.Info("archive runner started")
	for task := range r.queue {
		r.active.Add(1)
		r.process(task)
		r.active.Add(-1)
	}
	r.logger.Info("archive runner stopped")
}

func (r *ArchiveRunner) process(task archiveTask) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	start := time.Now()
	location, err := r.archiver.Archive(ctx, task.videoID, task.path)
	if err != nil {
		r.logger.Error("archive upload failed", "video_id", task.videoID, "error", err)
		return
	}

	attrs := []any{
		"video_id", task.videoID,
		"location", location,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if info, err := os.Stat(task.path); err == nil {
		attrs = append(attrs, "size", humanize.IBytes(uint64(info.Size())))
	}
	r.logger.Info("archived rendered video", attrs...)
}
