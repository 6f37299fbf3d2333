package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvConfigFile, EnvBind, EnvPort, EnvLogLevel, EnvDataDir, EnvMediaDir,
		EnvMaxUploadSize, EnvFFmpegPath, EnvFFprobePath, EnvProbeTimeout,
		EnvTranscodeTimeout, EnvRedisAddr, EnvRedisPassword, EnvRedisDB,
		EnvKafkaBrokers, EnvKafkaTopic, EnvS3Bucket, EnvS3Prefix, EnvS3Region,
	} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvConfigFile)
	chdir(t, t.TempDir())

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.Addr() != "127.0.0.1:8787" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8787", cfg.Addr())
	}
	if cfg.MaxUploadSize() != 1<<30 {
		t.Errorf("MaxUploadSize() = %d, want %d", cfg.MaxUploadSize(), 1<<30)
	}
	if cfg.TranscodeTimeout() != 0 {
		t.Errorf("TranscodeTimeout() = %v, want 0", cfg.TranscodeTimeout())
	}
	if cfg.MediaDir() != filepath.Join(cfg.DataDir(), "uploads") {
		t.Errorf("MediaDir() = %q, want under data dir", cfg.MediaDir())
	}
	if cfg.KafkaTopic() != DefaultKafkaTopic {
		t.Errorf("KafkaTopic() = %q, want %q", cfg.KafkaTopic(), DefaultKafkaTopic)
	}
}

func TestNew_MissingConfigFile(t *testing.T) {
	clearEnv(t)

	if _, err := New(); err == nil {
		t.Fatal("New() should fail when STUDIO_CONFIG names a missing file")
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvConfigFile)
	chdir(t, t.TempDir())

	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvMaxUploadSize, "500MB")
	t.Setenv(EnvTranscodeTimeout, "10m")
	t.Setenv(EnvProbeTimeout, "15")
	t.Setenv(EnvKafkaBrokers, "k1:9092, k2:9092,")
	t.Setenv(EnvMediaDir, "/srv/media")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9090 {
		t.Errorf("Port() = %d, want 9090", cfg.Port())
	}
	if cfg.MaxUploadSize() != 500*1000*1000 {
		t.Errorf("MaxUploadSize() = %d, want 500000000", cfg.MaxUploadSize())
	}
	if cfg.TranscodeTimeout() != 10*time.Minute {
		t.Errorf("TranscodeTimeout() = %v, want 10m", cfg.TranscodeTimeout())
	}
	if cfg.ProbeTimeout() != 15*time.Second {
		t.Errorf("ProbeTimeout() = %v, want 15s", cfg.ProbeTimeout())
	}
	if got := cfg.KafkaBrokers(); len(got) != 2 || got[0] != "k1:9092" || got[1] != "k2:9092" {
		t.Errorf("KafkaBrokers() = %v, want [k1:9092 k2:9092]", got)
	}
	if cfg.MediaDir() != "/srv/media" {
		t.Errorf("MediaDir() = %q, want /srv/media", cfg.MediaDir())
	}
}

func TestNew_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port not a number", EnvPort, "abc"},
		{"port out of range", EnvPort, "70000"},
		{"bad upload size", EnvMaxUploadSize, "lots"},
		{"bad timeout", EnvTranscodeTimeout, "soon"},
		{"negative timeout", EnvProbeTimeout, "-5"},
		{"bad redis db", EnvRedisDB, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			os.Unsetenv(EnvConfigFile)
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)

			if _, err := New(); err == nil {
				t.Errorf("New() with %s=%q should fail", tt.key, tt.value)
			}
		})
	}
}

func TestNew_YAMLFileWithEnvPrecedence(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "studio.yaml")
	yaml := `
port: 9100
log_level: debug
max_upload_size: 2GiB
transcode_timeout: 45m
redis:
  addr: localhost:6379
  db: 2
kafka:
  brokers: [broker:9092]
s3:
  bucket: renders
  prefix: studio
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9100 {
		t.Errorf("Port() = %d, want 9100", cfg.Port())
	}
	if cfg.LogLevel() != "warn" {
		t.Errorf("LogLevel() = %q, want env value warn", cfg.LogLevel())
	}
	if cfg.MaxUploadSize() != 2<<30 {
		t.Errorf("MaxUploadSize() = %d, want %d", cfg.MaxUploadSize(), 2<<30)
	}
	if cfg.TranscodeTimeout() != 45*time.Minute {
		t.Errorf("TranscodeTimeout() = %v, want 45m", cfg.TranscodeTimeout())
	}
	if cfg.RedisAddr() != "localhost:6379" || cfg.RedisDB() != 2 {
		t.Errorf("redis = %q/%d, want localhost:6379/2", cfg.RedisAddr(), cfg.RedisDB())
	}
	if len(cfg.KafkaBrokers()) != 1 {
		t.Errorf("KafkaBrokers() = %v, want one broker", cfg.KafkaBrokers())
	}
	if cfg.S3Bucket() != "renders" || cfg.S3Prefix() != "studio" {
		t.Errorf("s3 = %q/%q, want renders/studio", cfg.S3Bucket(), cfg.S3Prefix())
	}
}
