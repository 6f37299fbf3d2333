package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML config file. Zero values leave the default in place.
type FileConfig struct {
	Bind             string `yaml:"bind"`
	Port             int    `yaml:"port"`
	LogLevel         string `yaml:"log_level"`
	DataDir          string `yaml:"data_dir"`
	MediaDir         string `yaml:"media_dir"`
	MaxUploadSize    string `yaml:"max_upload_size"`
	FFmpegPath       string `yaml:"ffmpeg_path"`
	FFprobePath      string `yaml:"ffprobe_path"`
	ProbeTimeout     string `yaml:"probe_timeout"`
	TranscodeTimeout string `yaml:"transcode_timeout"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	S3 struct {
		Bucket string `yaml:"bucket"`
		Prefix string `yaml:"prefix"`
		Region string `yaml:"region"`
	} `yaml:"s3"`
}

// LoadFile reads and parses a YAML config file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &fc, nil
}

// FindConfigFile searches standard locations and returns "" when none exists.
func FindConfigFile() string {
	locations := []string{
		"./studio.yaml",
		"./studio.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, DefaultDataDir, "config.yaml"),
			filepath.Join(home, DefaultDataDir, "config.yml"),
		)
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (c *EnvConfig) applyFile(fc *FileConfig) error {
	if fc.Bind != "" {
		c.bind = fc.Bind
	}
	if fc.Port != 0 {
		if err := c.setPort(fc.Port); err != nil {
			return err
		}
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.MediaDir != "" {
		c.mediaDir = fc.MediaDir
	}
	if fc.MaxUploadSize != "" {
		if err := c.setMaxUploadSize(fc.MaxUploadSize); err != nil {
			return fmt.Errorf("max_upload_size: %w", err)
		}
	}
	if fc.FFmpegPath != "" {
		c.ffmpegPath = fc.FFmpegPath
	}
	if fc.FFprobePath != "" {
		c.ffprobePath = fc.FFprobePath
	}
	if fc.ProbeTimeout != "" {
		d, err := parseDuration(fc.ProbeTimeout)
		if err != nil {
			return fmt.Errorf("probe_timeout: %w", err)
		}
		c.probeTimeout = d
	}
	if fc.TranscodeTimeout != "" {
		d, err := parseDuration(fc.TranscodeTimeout)
		if err != nil {
			return fmt.Errorf("transcode_timeout: %w", err)
		}
		c.transcodeTimeout = d
	}

	if fc.Redis.Addr != "" {
		c.redisAddr = fc.Redis.Addr
		c.redisPassword = fc.Redis.Password
		c.redisDB = fc.Redis.DB
	}
	if len(fc.Kafka.Brokers) > 0 {
		c.kafkaBrokers = fc.Kafka.Brokers
	}
	if fc.Kafka.Topic != "" {
		c.kafkaTopic = fc.Kafka.Topic
	}
	if fc.S3.Bucket != "" {
		c.s3Bucket = fc.S3.Bucket
		c.s3Prefix = fc.S3.Prefix
		c.s3Region = fc.S3.Region
	}
	return nil
}
