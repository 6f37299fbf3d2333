// Package media wraps the external ffmpeg/ffprobe tools: probing files for
// metadata and running single-input, single-output transcode jobs.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics
)

var (
	// ErrProbe marks failures to read or parse a media file.
	ErrProbe = errors.New("probe failed")
	// ErrTranscode marks a failed ffmpeg run.
	ErrTranscode = errors.New("transcode failed")
)

// Engine is the contract between the service and the external media tools.
// Both calls block until the tool exits.
type Engine interface {
	Probe(ctx context.Context, path string) (*Metadata, error)
	Transcode(ctx context.Context, job Job) error
}

// Config holds the engine's configuration.
type Config struct {
	FFmpegPath       string        // binary name or path; default "ffmpeg"
	FFprobePath      string        // binary name or path; default "ffprobe"
	ProbeTimeout     time.Duration // zero = no deadline
	TranscodeTimeout time.Duration // zero = no deadline
	Logger           *slog.Logger
}

// RunResult captures the outcome of one subprocess run.
type RunResult struct {
	ExitCode   int
	StderrTail string
	Duration   time.Duration
}

func (r RunResult) IsSuccess() bool {
	return r.ExitCode == 0
}

// FFmpeg is the production Engine backed by the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	cfg     Config
	ffmpeg  string
	ffprobe string
}

// NewFFmpeg resolves both binaries on PATH.
func NewFFmpeg(cfg Config) (*FFmpeg, error) {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ffmpegBin, err := exec.LookPath(cfg.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffmpeg %q: %w", cfg.FFmpegPath, err)
	}
	ffprobeBin, err := exec.LookPath(cfg.FFprobePath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffprobe %q: %w", cfg.FFprobePath, err)
	}

	cfg.Logger.Info("media engine initialised",
		"ffmpeg", ffmpegBin,
		"ffprobe", ffprobeBin,
		"transcode_timeout", cfg.TranscodeTimeout,
	)

	return &FFmpeg{cfg: cfg, ffmpeg: ffmpegBin, ffprobe: ffprobeBin}, nil
}

// Probe runs ffprobe on exactly the given path.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*Metadata, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrProbe)
	}
	if f.cfg.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.ProbeTimeout)
		defer cancel()
	}

	var stdout bytes.Buffer
	result := f.run(ctx, f.ffprobe, probeArgs(path), &stdout)
	if !result.IsSuccess() {
		return nil, fmt.Errorf("%w: ffprobe exited %d: %s", ErrProbe, result.ExitCode, truncate(result.StderrTail, 512))
	}

	return ParseProbe(stdout.Bytes())
}

// Transcode runs the job and removes a partial output on failure.
func (f *FFmpeg) Transcode(ctx context.Context, job Job) error {
	if f.cfg.TranscodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.TranscodeTimeout)
		defer cancel()
	}

	if err := os.MkdirAll(filepath.Dir(job.Output), 0755); err != nil {
		return fmt.Errorf("%w: cannot create output dir: %v", ErrTranscode, err)
	}

	result := f.run(ctx, f.ffmpeg, job.Args(), io.Discard)
	if !result.IsSuccess() {
		if err := os.Remove(job.Output); err != nil && !os.IsNotExist(err) {
			f.cfg.Logger.Warn("cannot remove partial output", "output", job.Output, "error", err)
		}
		return fmt.Errorf("%w: %s exited %d: %s", ErrTranscode, job.Kind, result.ExitCode, truncate(result.StderrTail, 512))
	}
	return nil
}

// run is the core subprocess execution helper.
func (f *FFmpeg) run(ctx context.Context, bin string, args []string, stdout io.Writer) RunResult {
	start := time.Now()

	cmd := exec.CommandContext(ctx, bin, args...)

	// Capture stderr with bounded buffer
	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	cmd.Stdout = stdout

	f.cfg.Logger.Debug("executing media command", "bin", filepath.Base(bin), "args", args)

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
			stderrBuf.WriteString(err.Error())
		}
	}

	stderrTail := stderrBuf.String()

	if exitCode != 0 {
		f.cfg.Logger.Warn("media command failed",
			"bin", filepath.Base(bin),
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrTail, 512),
		)
	} else {
		f.cfg.Logger.Info("media command succeeded",
			"bin", filepath.Base(bin),
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	return RunResult{
		ExitCode:   exitCode,
		StderrTail: stderrTail,
		Duration:   elapsed,
	}
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		tail := make([]byte, lw.limit)
		copy(tail, b[len(b)-lw.limit:])
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
