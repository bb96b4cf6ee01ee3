package music

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTransition is returned when an event does not apply to the job's status.
var ErrInvalidTransition = errors.New("invalid music job transition")

// Event is a state change request for a music job.
type Event interface {
	name() string
}

// LyricsGenerated stores lyrics and moves to pending_prompt.
type LyricsGenerated struct{ Lyrics string }

// StylePromptBuilt stores the style prompt and moves to pending_generation.
type StylePromptBuilt struct{ Prompt string }

// SubmissionStarted marks the job generating before the provider is called.
type SubmissionStarted struct{}

// SubmissionAccepted records the provider task id.
type SubmissionAccepted struct{ TaskID string }

// SubmissionFailed ends the job with the provider's error.
type SubmissionFailed struct{ Reason string }

// TrackCompleted stores the durable track and preview and moves to pending_send.
type TrackCompleted struct {
	FullTrackURL string
	PreviewURL   string
}

// Delivered marks the preview as sent.
type Delivered struct{}

// Failed ends a job whose stage kept failing or whose data cannot be delivered.
type Failed struct{ Reason string }

func (LyricsGenerated) name() string { return "lyrics_generated" }
func (StylePromptBuilt) name() string { return "style_prompt_built" }
func (SubmissionStarted) name() string { return "submission_started" }
func (SubmissionAccepted) name() string { return "submission_accepted" }
func (SubmissionFailed) name() string { return "submission_failed" }
func (TrackCompleted) name() string { return "track_completed" }
func (Delivered) name() string { return "delivered" }
func (Failed) name() string { return "failed" }

// Apply is the single transition function for music jobs. Every status change
// made by the pipeline stages and the callback goes through it, so a job only
// moves forward along the pipeline or into error.
func Apply(job Job, event Event, now time.Time) (Job, error) {
	invalid := func() (Job, error) {
		return job, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event.name(), job.Status)
	}

	switch e := event.(type) {
	case LyricsGenerated:
		if job.Status != StatusPendingLyrics || strings.TrimSpace(e.Lyrics) == "" {
			return invalid()
		}
		job.Lyrics = strings.TrimSpace(e.Lyrics)
		job.Status = StatusPendingPrompt

	case StylePromptBuilt:
		if job.Status != StatusPendingPrompt || strings.TrimSpace(e.Prompt) == "" {
			return invalid()
		}
		job.StylePrompt = strings.TrimSpace(e.Prompt)
		job.Status = StatusPendingGeneration

	case SubmissionStarted:
		if job.Status != StatusPendingGeneration {
			return invalid()
		}
		job.Status = StatusGenerating

	case SubmissionAccepted:
		if job.Status != StatusGenerating || strings.TrimSpace(e.TaskID) == "" {
			return invalid()
		}
		job.TaskID = strings.TrimSpace(e.TaskID)

	case SubmissionFailed:
		if job.Status != StatusPendingGeneration && job.Status != StatusGenerating {
			return invalid()
		}
		job.Status = StatusError
		job.ErrorMessage = e.Reason

	case TrackCompleted:
		if job.Status != StatusGenerating || e.FullTrackURL == "" || e.PreviewURL == "" {
			return invalid()
		}
		job.FullTrackURL = e.FullTrackURL
		job.PreviewURL = e.PreviewURL
		job.Status = StatusPendingSend

	case Delivered:
		if job.Status != StatusPendingSend {
			return invalid()
		}
		sentAt := now
		job.SentAt = &sentAt
		job.Status = StatusSent

	case Failed:
		if job.Status.Terminal() {
			return invalid()
		}
		job.Status = StatusError
		job.ErrorMessage = e.Reason

	default:
		return invalid()
	}

	return job, nil
}

// Advances reports whether moving from one status to another keeps the forward order.
func Advances(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusError {
		return true
	}
	return rank[to] >= rank[from]
}
