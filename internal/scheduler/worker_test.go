package scheduler

import (
	"context"
	"errors"
	"testing"

	"nurture_backend/internal/musicgen"
	"nurture_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type recordingCompleter struct {
	got []musicgen.TrackReady
	err error
}

func (r *recordingCompleter) CompleteTrack(_ context.Context, ready musicgen.TrackReady) error {
	r.got = append(r.got, ready)
	return r.err
}

func TestHandleTrackReadyCompletesTrack(t *testing.T) {
	completer := &recordingCompleter{}
	w := &Worker{completer: completer, log: logger.Nop()}

	task, err := NewTrackReadyTask(musicgen.TrackReady{TaskID: "t-1", AudioURL: "https://cdn.example/t-1.mp3"})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := w.handleTrackReady(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(completer.got) != 1 || completer.got[0].TaskID != "t-1" {
		t.Fatalf("unexpected completions %+v", completer.got)
	}
}

func TestHandleTrackReadySkipsRetryForBadPayloads(t *testing.T) {
	completer := &recordingCompleter{}
	w := &Worker{completer: completer, log: logger.Nop()}

	garbage := asynq.NewTask(TaskMusicTrackReady, []byte("{"))
	if err := w.handleTrackReady(context.Background(), garbage); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for invalid json, got %v", err)
	}

	missing, _ := NewTrackReadyTask(musicgen.TrackReady{TaskID: "t-2"})
	if err := w.handleTrackReady(context.Background(), missing); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry without audio url, got %v", err)
	}
	if len(completer.got) != 0 {
		t.Fatal("completer must not run for rejected payloads")
	}
}

func TestHandleTrackReadyReturnsCompletionErrorsForRetry(t *testing.T) {
	boom := errors.New("minio down")
	w := &Worker{completer: &recordingCompleter{err: boom}, log: logger.Nop()}

	task, _ := NewTrackReadyTask(musicgen.TrackReady{TaskID: "t-3", AudioURL: "https://cdn.example/t-3.mp3"})
	err := w.handleTrackReady(context.Background(), task)
	if !errors.Is(err, boom) || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}
