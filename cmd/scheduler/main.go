package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nurture_backend/internal/adapters/storage"
	"nurture_backend/internal/email"
	"nurture_backend/internal/events"
	"nurture_backend/internal/leads"
	"nurture_backend/internal/lyrics"
	"nurture_backend/internal/media"
	"nurture_backend/internal/music"
	"nurture_backend/internal/musicgen"
	"nurture_backend/internal/notification"
	"nurture_backend/internal/scheduler"
	"nurture_backend/internal/sequences"
	"nurture_backend/internal/textgen"
	"nurture_backend/internal/whatsapp"
	"nurture_backend/platform/config"
	"nurture_backend/platform/db"
	"nurture_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "instance", cfg.GetEngineInstanceID(), "tick", cfg.GetEngineTickInterval())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	notification.New(email.NewSender(cfg), cfg.GetAlertEmail(), log).RegisterHandlers(eventBus)

	blobs, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}

	leadRepo := leads.NewRepository(pool)
	messenger := leads.NewMessenger(whatsapp.NewClient(cfg, log), leadRepo, log)
	textClient := textgen.New(cfg)

	advancer := sequences.NewAdvancer(leadRepo, sequences.NewRepository(pool), messenger, cfg.GetEngineBatchSize(), log)

	lyricsPipeline := lyrics.NewPipeline(lyrics.NewRepository(pool), leadRepo, textClient, messenger, eventBus, lyrics.SettingsFromConfig(cfg), log)

	musicPipeline := music.NewPipeline(music.Deps{
		Store:      music.NewRepository(pool),
		Leads:      leadRepo,
		TextGen:    textClient,
		MusicGen:   musicgen.New(cfg),
		Sender:     messenger,
		Blobs:      blobs,
		Transcoder: media.NewFFmpeg(cfg),
		Fetcher:    music.NewHTTPFetcher(),
		Bus:        eventBus,
	}, music.SettingsFromConfig(cfg), log)

	lock, closeLock := initTickLock(cfg, log)
	if closeLock != nil {
		defer closeLock()
	}

	runner := scheduler.NewRunner(cfg.GetEngineTickInterval(), lock, cfg.GetEngineLeaseTTL(), log,
		scheduler.NewStage("sequences", advancer.Tick),
		scheduler.NewStage("lyrics.generate", lyricsPipeline.Generate),
		scheduler.NewStage("lyrics.deliver", lyricsPipeline.Deliver),
		scheduler.NewStage("music.lyrics", musicPipeline.GenerateLyrics),
		scheduler.NewStage("music.style", musicPipeline.BuildStylePrompt),
		scheduler.NewStage("music.submit", musicPipeline.Submit),
		scheduler.NewStage("music.deliver", musicPipeline.Deliver),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})

	if cfg.GetRedisURL() != "" {
		worker, err := scheduler.NewWorker(cfg, musicPipeline, log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	} else {
		log.Warn("REDIS_URL not configured; track completion tasks are handled by the API process")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("scheduler stopped", "error", err)
	}
	eventBus.Wait()
	log.Info("scheduler stopped")
}

// initTickLock returns a Redis-backed tick lock, or nil for single-instance
// deployments without Redis.
func initTickLock(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.TickLock, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; ticks are not coordinated across instances")
		return nil, nil
	}

	client, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis tick lock; ticks are not coordinated", "error", err)
		return nil, nil
	}

	return scheduler.NewRedisTickLock(client), func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
