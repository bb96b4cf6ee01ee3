package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nurture_backend/internal/adapters/storage"
	"nurture_backend/internal/chat"
	"nurture_backend/internal/email"
	"nurture_backend/internal/events"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/internal/http/router"
	"nurture_backend/internal/leads"
	"nurture_backend/internal/lyrics"
	"nurture_backend/internal/media"
	"nurture_backend/internal/music"
	"nurture_backend/internal/musicgen"
	"nurture_backend/internal/notification"
	"nurture_backend/internal/scheduler"
	"nurture_backend/internal/textgen"
	"nurture_backend/internal/webhook"
	"nurture_backend/internal/whatsapp"
	"nurture_backend/platform/config"
	"nurture_backend/platform/db"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	blobs, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure media bucket", 5, 2*time.Second, func() error {
		return blobs.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketMedia())
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "bucket", cfg.GetMinioBucketMedia())

	whatsappClient := whatsapp.NewClient(cfg, log)
	transcoder := media.NewFFmpeg(cfg)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to job events (not HTTP-facing)
	notification.New(email.NewSender(cfg), cfg.GetAlertEmail(), log).RegisterHandlers(eventBus)

	leadsModule := leads.NewModule(pool, eventBus, cfg.GetDefaultTrigger(), log)
	messenger := leadsModule.Messenger(whatsappClient)

	lyricsModule := lyrics.NewModule(pool, leadsModule.Repository(), val, log)

	musicPipeline := music.NewPipeline(music.Deps{
		Store:      music.NewRepository(pool),
		Leads:      leadsModule.Repository(),
		TextGen:    textgen.New(cfg),
		MusicGen:   musicgen.New(cfg),
		Sender:     messenger,
		Blobs:      blobs,
		Transcoder: transcoder,
		Fetcher:    music.NewHTTPFetcher(),
		Bus:        eventBus,
	}, music.SettingsFromConfig(cfg), log)

	trackQueue, closeQueue := initTrackQueue(cfg, musicPipeline, log)
	if closeQueue != nil {
		defer closeQueue()
	}
	musicModule := music.NewModule(pool, leadsModule.Repository(), trackQueue, cfg, val, log)

	webhookModule := webhook.NewModule(cfg, leadsModule.Service(), whatsappClient, blobs, log)

	chatModule := chat.NewModule(chat.Deps{
		Leads:      leadsModule.Repository(),
		Sender:     messenger,
		Uploader:   whatsappClient,
		Number:     whatsappClient,
		Blobs:      blobs,
		Transcoder: transcoder,
		WorkDir:    cfg.GetMediaWorkDir(),
	}, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			webhookModule,
			leadsModule,
			chatModule,
			lyricsModule,
			musicModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initTrackQueue hands completed tracks to the asynq worker when Redis is
// configured and completes them in-process otherwise.
func initTrackQueue(cfg config.SchedulerConfig, pipeline *music.Pipeline, log *logger.Logger) (music.TrackQueue, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; music tracks complete in-process")
		return music.NewInlineQueue(pipeline, log), nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client; music tracks complete in-process", "error", err)
		return music.NewInlineQueue(pipeline, log), nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
