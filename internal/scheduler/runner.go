package scheduler

import (
	"context"
	"time"

	"nurture_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultTickInterval = 30 * time.Second

// Stage is one periodically executed pipeline step.
type Stage struct {
	Name string
	run  func(ctx context.Context) (any, error)
}

// NewStage adapts a pipeline step returning per-tick stats.
func NewStage[S any](name string, fn func(ctx context.Context) (S, error)) Stage {
	return Stage{
		Name: name,
		run: func(ctx context.Context) (any, error) {
			return fn(ctx)
		},
	}
}

// TickLock serializes a stage across processes.
type TickLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context), ok bool, err error)
}

// Runner drives every stage on its own ticker. A stage never overlaps itself
// within the process; the optional lock extends that across processes.
type Runner struct {
	stages   []Stage
	interval time.Duration
	lock     TickLock
	lockTTL  time.Duration
	log      *logger.Logger
}

// NewRunner creates a runner. lock may be nil.
func NewRunner(interval time.Duration, lock TickLock, lockTTL time.Duration, log *logger.Logger, stages ...Stage) *Runner {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if lockTTL <= 0 {
		lockTTL = interval
	}
	return &Runner{
		stages:   stages,
		interval: interval,
		lock:     lock,
		lockTTL:  lockTTL,
		log:      log,
	}
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, stage := range r.stages {
		g.Go(func() error {
			r.loop(ctx, stage)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) loop(ctx context.Context, stage Stage) {
	r.tick(ctx, stage)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx, stage)
		}
	}
}

func (r *Runner) tick(ctx context.Context, stage Stage) {
	ctx = context.WithValue(ctx, logger.TickIDKey, uuid.NewString())
	log := r.log.WithContext(ctx).Pipeline(stage.Name)

	if r.lock != nil {
		release, ok, err := r.lock.Acquire(ctx, "nurture:tick:"+stage.Name, r.lockTTL)
		switch {
		case err != nil:
			log.Warn("tick lock unavailable, running unlocked", "error", err)
		case !ok:
			log.Debug("tick held by another instance")
			return
		default:
			defer release(context.WithoutCancel(ctx))
		}
	}

	start := time.Now()
	stats, err := stage.run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("stage failed", "error", err)
		return
	}
	log.Debug("stage finished", "stats", stats, "durationMs", time.Since(start).Milliseconds())
}
