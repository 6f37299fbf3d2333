// Package config provides configuration management for Heimdex Studio.
// Values come from built-in defaults, an optional YAML file, and environment
// variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	// Default values
	DefaultBind          = "127.0.0.1"
	DefaultPort          = 8787
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".heimdex-studio"
	DefaultMaxUploadSize = "1GiB"
	DefaultFFmpegPath    = "ffmpeg"
	DefaultFFprobePath   = "ffprobe"
	DefaultProbeTimeout  = 30 * time.Second
	DefaultKafkaTopic    = "video-lifecycle"

	// Environment variable names
	EnvConfigFile       = "STUDIO_CONFIG"
	EnvBind             = "STUDIO_BIND"
	EnvPort             = "STUDIO_PORT"
	EnvLogLevel         = "STUDIO_LOG_LEVEL"
	EnvDataDir          = "STUDIO_DATA_DIR"
	EnvMediaDir         = "STUDIO_MEDIA_DIR"
	EnvMaxUploadSize    = "STUDIO_MAX_UPLOAD_SIZE"
	EnvFFmpegPath       = "STUDIO_FFMPEG_PATH"
	EnvFFprobePath      = "STUDIO_FFPROBE_PATH"
	EnvProbeTimeout     = "STUDIO_PROBE_TIMEOUT"
	EnvTranscodeTimeout = "STUDIO_TRANSCODE_TIMEOUT"

	EnvRedisAddr     = "STUDIO_REDIS_ADDR"
	EnvRedisPassword = "STUDIO_REDIS_PASSWORD"
	EnvRedisDB       = "STUDIO_REDIS_DB"

	EnvKafkaBrokers = "STUDIO_KAFKA_BROKERS"
	EnvKafkaTopic   = "STUDIO_KAFKA_TOPIC"

	EnvS3Bucket = "STUDIO_S3_BUCKET"
	EnvS3Prefix = "STUDIO_S3_PREFIX"
	EnvS3Region = "STUDIO_S3_REGION"

	// Database filename
	DBFilename = "studio.db"
)

// Config defines the application configuration interface
type Config interface {
	Addr() string
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	MaxUploadSize() int64
	FFmpegPath() string
	FFprobePath() string
	ProbeTimeout() time.Duration
	TranscodeTimeout() time.Duration
	RedisAddr() string
	RedisPassword() string
	RedisDB() int
	KafkaBrokers() []string
	KafkaTopic() string
	S3Bucket() string
	S3Prefix() string
	S3Region() string
}

// EnvConfig holds the resolved configuration
type EnvConfig struct {
	bind             string
	port             int
	logLevel         string
	dataDir          string
	mediaDir         string
	maxUploadSize    int64
	ffmpegPath       string
	ffprobePath      string
	probeTimeout     time.Duration
	transcodeTimeout time.Duration

	redisAddr     string
	redisPassword string
	redisDB       int

	kafkaBrokers []string
	kafkaTopic   string

	s3Bucket string
	s3Prefix string
	s3Region string
}

// New creates a new EnvConfig from defaults, the YAML file named by
// STUDIO_CONFIG (or found in a standard location) and environment overrides.
func New() (*EnvConfig, error) {
	maxUpload, _ := humanize.ParseBytes(DefaultMaxUploadSize)
	cfg := &EnvConfig{
		bind:          DefaultBind,
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		maxUploadSize: int64(maxUpload),
		ffmpegPath:    DefaultFFmpegPath,
		ffprobePath:   DefaultFFprobePath,
		probeTimeout:  DefaultProbeTimeout,
		kafkaTopic:    DefaultKafkaTopic,
	}

	path := os.Getenv(EnvConfigFile)
	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.applyFile(fc); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *EnvConfig) applyEnv() error {
	if v := os.Getenv(EnvBind); v != "" {
		c.bind = v
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if err := c.setPort(port); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		c.dataDir = dd
	}
	if md := os.Getenv(EnvMediaDir); md != "" {
		c.mediaDir = md
	}

	if s := os.Getenv(EnvMaxUploadSize); s != "" {
		if err := c.setMaxUploadSize(s); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxUploadSize, err)
		}
	}

	if v := os.Getenv(EnvFFmpegPath); v != "" {
		c.ffmpegPath = v
	}
	if v := os.Getenv(EnvFFprobePath); v != "" {
		c.ffprobePath = v
	}

	if v := os.Getenv(EnvProbeTimeout); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvProbeTimeout, err)
		}
		c.probeTimeout = d
	}
	if v := os.Getenv(EnvTranscodeTimeout); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTranscodeTimeout, err)
		}
		c.transcodeTimeout = d
	}

	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.redisAddr = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		c.redisPassword = v
	}
	if v := os.Getenv(EnvRedisDB); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %s: must be a non-negative integer", EnvRedisDB)
		}
		c.redisDB = n
	}

	if v := os.Getenv(EnvKafkaBrokers); v != "" {
		c.kafkaBrokers = splitList(v)
	}
	if v := os.Getenv(EnvKafkaTopic); v != "" {
		c.kafkaTopic = v
	}

	if v := os.Getenv(EnvS3Bucket); v != "" {
		c.s3Bucket = v
	}
	if v := os.Getenv(EnvS3Prefix); v != "" {
		c.s3Prefix = v
	}
	if v := os.Getenv(EnvS3Region); v != "" {
		c.s3Region = v
	}

	return nil
}

func (c *EnvConfig) setPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	c.port = port
	return nil
}

func (c *EnvConfig) setMaxUploadSize(s string) error {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("size must be positive")
	}
	c.maxUploadSize = int64(n)
	return nil
}

// Addr returns the host:port the HTTP server listens on
func (c *EnvConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.bind, c.port)
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir returns the flat directory holding uploads and derived artifacts
func (c *EnvConfig) MediaDir() string {
	if c.mediaDir != "" {
		return c.mediaDir
	}
	return filepath.Join(c.dataDir, "uploads")
}

// MaxUploadSize returns the upload limit in bytes
func (c *EnvConfig) MaxUploadSize() int64 {
	return c.maxUploadSize
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return c.probeTimeout
}

// TranscodeTimeout returns the engine deadline; zero means none.
func (c *EnvConfig) TranscodeTimeout() time.Duration {
	return c.transcodeTimeout
}

func (c *EnvConfig) RedisAddr() string {
	return c.redisAddr
}

func (c *EnvConfig) RedisPassword() string {
	return c.redisPassword
}

func (c *EnvConfig) RedisDB() int {
	return c.redisDB
}

func (c *EnvConfig) KafkaBrokers() []string {
	return c.kafkaBrokers
}

func (c *EnvConfig) KafkaTopic() string {
	return c.kafkaTopic
}

func (c *EnvConfig) S3Bucket() string {
	return c.s3Bucket
}

func (c *EnvConfig) S3Prefix() string {
	return c.s3Prefix
}

func (c *EnvConfig) S3Region() string {
	return c.s3Region
}

// parseDuration accepts Go durations ("90s", "5m") and bare seconds ("30").
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("duration must not be negative")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative")
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
