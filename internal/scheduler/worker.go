package scheduler

import (
	"context"
	"fmt"

	"nurture_backend/internal/musicgen"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// TrackCompleter finishes a rendered track.
type TrackCompleter interface {
	CompleteTrack(ctx context.Context, ready musicgen.TrackReady) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	completer TrackCompleter
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, completer TrackCompleter, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 2
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		completer: completer,
		log:       log,
	}

	mux.HandleFunc(TaskMusicTrackReady, w.handleTrackReady)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleTrackReady(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseTrackReadyPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.TaskID == "" || payload.AudioURL == "" {
		return fmt.Errorf("%w: track payload missing task id or audio url", asynq.SkipRetry)
	}

	return w.completer.CompleteTrack(ctx, payload)
}
