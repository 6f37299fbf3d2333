package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/heimdex/heimdex-studio/internal/api"
	"github.com/heimdex/heimdex-studio/internal/archive"
	"github.com/heimdex/heimdex-studio/internal/catalog"
	"github.com/heimdex/heimdex-studio/internal/config"
	"github.com/heimdex/heimdex-studio/internal/db"
	"github.com/heimdex/heimdex-studio/internal/events"
	"github.com/heimdex/heimdex-studio/internal/locks"
	"github.com/heimdex/heimdex-studio/internal/logging"
	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/playback"
	"github.com/heimdex/heimdex-studio/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting heimdex studio",
		"version", config.Version,
		"commit", config.GitCommit,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	dir, err := storage.NewDir(cfg.MediaDir())
	if err != nil {
		return err
	}

	engine, err := media.NewFFmpeg(media.Config{
		FFmpegPath:       cfg.FFmpegPath(),
		FFprobePath:      cfg.FFprobePath(),
		ProbeTimeout:     cfg.ProbeTimeout(),
		TranscodeTimeout: cfg.TranscodeTimeout(),
		Logger:           logging.WithComponent(logger, "media"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize media engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	journal := events.NewJournal(database.Conn())
	publisher, err := newPublisher(cfg, journal, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	var archiver archive.Archiver
	if cfg.S3Bucket() != "" {
		s3Archiver, err := archive.NewS3(ctx, archive.S3Config{
			Bucket: cfg.S3Bucket(),
			Prefix: cfg.S3Prefix(),
			Region: cfg.S3Region(),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize s3 archive: %w", err)
		}
		archiver = s3Archiver
		logger.Info("s3 archive enabled", "bucket", cfg.S3Bucket(), "prefix", cfg.S3Prefix())
	}

	videoSvc := catalog.NewService(catalog.ServiceConfig{
		Repo:      catalog.NewRepository(database.Conn()),
		Engine:    engine,
		Dir:       dir,
		Locker:    locker,
		Publisher: publisher,
		History:   journal,
		Archiver:  archiver,
		Logger:    logging.WithComponent(logger, "catalog"),
	})

	apiServer := api.NewServer(api.ServerConfig{
		Addr:          cfg.Addr(),
		Videos:        videoSvc,
		Sender:        playback.NewSender(logger),
		Dir:           dir,
		MaxUploadSize: cfg.MaxUploadSize(),
		Logger:        logger,
		StartTime:     startTime,
		Version:       config.Version,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
			return err
		}
	}

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	videoSvc.Close()

	logger.Info("shutdown complete")
	return nil
}

// newLocker returns a Redis lock when configured, else an in-process one.
func newLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (locks.Locker, func(), error) {
	if cfg.RedisAddr() == "" {
		return locks.NewKeyedMutex(), func() {}, nil
	}

	client, err := locks.NewRedisClient(ctx, locks.RedisOptions{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword(),
		DB:       cfg.RedisDB(),
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("redis video locks enabled", "addr", cfg.RedisAddr())

	locker := locks.NewRedisLocker(client, 0, logging.WithComponent(logger, "locks"))
	return locker, func() { client.Close() }, nil
}

// newPublisher always journals to SQLite and adds Kafka when brokers are set.
func newPublisher(cfg config.Config, journal *events.Journal, logger *slog.Logger) (events.Publisher, error) {
	brokers := cfg.KafkaBrokers()
	if len(brokers) == 0 {
		return journal, nil
	}

	kafka, err := events.NewKafka(brokers, cfg.KafkaTopic())
	if err != nil {
		return nil, err
	}
	logger.Info("kafka lifecycle events enabled", "brokers", brokers, "topic", cfg.KafkaTopic())
	return events.Multi{journal, kafka}, nil
}
