package music

import (
	"errors"
	"testing"
	"time"
)

func TestApplyWalksForwardPath(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := Job{Status: StatusPendingLyrics}

	steps := []struct {
		event Event
		want  Status
	}{
		{LyricsGenerated{Lyrics: "letra"}, StatusPendingPrompt},
		{StylePromptBuilt{Prompt: "pop, upbeat"}, StatusPendingGeneration},
		{SubmissionStarted{}, StatusGenerating},
		{SubmissionAccepted{TaskID: "task-1"}, StatusGenerating},
		{TrackCompleted{FullTrackURL: "https://x/full.mp3", PreviewURL: "https://x/preview.m4a"}, StatusPendingSend},
		{Delivered{}, StatusSent},
	}

	for _, step := range steps {
		next, err := Apply(job, step.event, now)
		if err != nil {
			t.Fatalf("%s from %s: %v", step.event.name(), job.Status, err)
		}
		if next.Status != step.want {
			t.Fatalf("%s: expected %s, got %s", step.event.name(), step.want, next.Status)
		}
		if !Advances(job.Status, next.Status) && job.Status != next.Status {
			t.Fatalf("%s moved backwards from %s to %s", step.event.name(), job.Status, next.Status)
		}
		job = next
	}

	if job.TaskID != "task-1" || job.SentAt == nil || !job.SentAt.Equal(now) {
		t.Fatalf("unexpected final job: %+v", job)
	}
}

func TestApplyRejectsBackwardAndTerminalMoves(t *testing.T) {
	now := time.Now()
	all := []Event{
		LyricsGenerated{Lyrics: "l"},
		StylePromptBuilt{Prompt: "p"},
		SubmissionStarted{},
		SubmissionAccepted{TaskID: "t"},
		SubmissionFailed{Reason: "r"},
		TrackCompleted{FullTrackURL: "f", PreviewURL: "p"},
		Delivered{},
		Failed{Reason: "r"},
	}
	statuses := []Status{
		StatusPendingLyrics, StatusPendingPrompt, StatusPendingGeneration, StatusGenerating,
		StatusPendingSend, StatusSent, StatusError,
	}

	for _, from := range statuses {
		for _, event := range all {
			next, err := Apply(Job{Status: from}, event, now)
			if err != nil {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("%s from %s: unexpected error %v", event.name(), from, err)
				}
				if next.Status != from {
					t.Fatalf("%s from %s: rejected transition changed status to %s", event.name(), from, next.Status)
				}
				continue
			}
			if from.Terminal() {
				t.Fatalf("%s changed terminal status %s", event.name(), from)
			}
			if next.Status != StatusError && rank[next.Status] < rank[from] {
				t.Fatalf("%s moved %s backwards to %s", event.name(), from, next.Status)
			}
		}
	}
}

func TestSubmissionFailedOnlyFromGenerationStates(t *testing.T) {
	for _, from := range []Status{StatusPendingLyrics, StatusPendingPrompt, StatusPendingSend} {
		if _, err := Apply(Job{Status: from}, SubmissionFailed{Reason: "x"}, time.Now()); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected SubmissionFailed from %s to be rejected, got %v", from, err)
		}
	}
	got, err := Apply(Job{Status: StatusGenerating}, SubmissionFailed{Reason: "quota exceeded"}, time.Now())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.Status != StatusError || got.ErrorMessage != "quota exceeded" {
		t.Fatalf("unexpected job %+v", got)
	}
}

func TestAdvances(t *testing.T) {
	if Advances(StatusPendingSend, StatusPendingLyrics) {
		t.Fatal("pending_send to pending_lyrics must not advance")
	}
	if !Advances(StatusGenerating, StatusError) {
		t.Fatal("error must be reachable from generating")
	}
	if Advances(StatusSent, StatusError) {
		t.Fatal("sent is terminal")
	}
}
