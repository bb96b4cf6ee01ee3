package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"nurture_backend/platform/logger"
)

type denyLock struct{}

func (denyLock) Acquire(context.Context, string, time.Duration) (func(context.Context), bool, error) {
	return nil, false, nil
}

type brokenLock struct{}

func (brokenLock) Acquire(context.Context, string, time.Duration) (func(context.Context), bool, error) {
	return nil, false, errors.New("redis down")
}

func countingStage(name string, calls *atomic.Int32) Stage {
	return NewStage(name, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	})
}

func TestRunnerTicksEveryStage(t *testing.T) {
	var a, b atomic.Int32
	r := NewRunner(10*time.Millisecond, nil, 0, logger.Nop(), countingStage("a", &a), countingStage("b", &b))

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if a.Load() < 2 || b.Load() < 2 {
		t.Fatalf("expected repeated ticks, got a=%d b=%d", a.Load(), b.Load())
	}
}

func TestRunnerSkipsTickHeldElsewhere(t *testing.T) {
	var calls atomic.Int32
	r := NewRunner(time.Hour, denyLock{}, time.Minute, logger.Nop(), countingStage("held", &calls))

	r.tick(context.Background(), r.stages[0])

	if calls.Load() != 0 {
		t.Fatalf("expected stage to be skipped, ran %d times", calls.Load())
	}
}

func TestRunnerRunsWhenLockUnavailable(t *testing.T) {
	var calls atomic.Int32
	r := NewRunner(time.Hour, brokenLock{}, time.Minute, logger.Nop(), countingStage("unlocked", &calls))

	r.tick(context.Background(), r.stages[0])

	if calls.Load() != 1 {
		t.Fatalf("expected stage to run once, ran %d times", calls.Load())
	}
}

func TestRunnerSurvivesStageErrors(t *testing.T) {
	var calls atomic.Int32
	failing := NewStage("failing", func(context.Context) (struct{}, error) {
		calls.Add(1)
		return struct{}{}, errors.New("boom")
	})
	r := NewRunner(5*time.Millisecond, nil, 0, logger.Nop(), failing)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	if calls.Load() < 2 {
		t.Fatalf("expected the stage to keep ticking after errors, got %d", calls.Load())
	}
}
