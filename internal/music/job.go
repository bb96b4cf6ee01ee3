// Package music runs the personalised song pipeline: lyrics, style prompt,
// generation, callback completion and delivery of a watermarked preview.
package music

import (
	"errors"
	"time"

	"nurture_backend/internal/jobs"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no job matches.
var ErrNotFound = errors.New("music job not found")

// Status is the scheduling cursor of a music job.
type Status string

const (
	StatusPendingLyrics     Status = "pending_lyrics"
	StatusPendingPrompt     Status = "pending_prompt"
	StatusPendingGeneration Status = "pending_generation"
	StatusGenerating        Status = "generating"
	StatusPendingSend       Status = "pending_send"
	StatusSent              Status = "sent"
	StatusError             Status = "error"
)

// rank orders the forward path. Error sits outside it.
var rank = map[Status]int{
	StatusPendingLyrics:     1,
	StatusPendingPrompt:     2,
	StatusPendingGeneration: 3,
	StatusGenerating:        4,
	StatusPendingSend:       5,
	StatusSent:              6,
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusError
}

// Job is one song request.
type Job struct {
	ID           uuid.UUID  `json:"id"`
	Status       Status     `json:"status"`
	Artist       string     `json:"artist"`
	Genre        string     `json:"genre"`
	VoiceType    string     `json:"voiceType"`
	Purpose      string     `json:"purpose"`
	SubjectName  string     `json:"subjectName"`
	Anecdotes    string     `json:"anecdotes"`
	Lyrics       string     `json:"lyrics,omitempty"`
	StylePrompt  string     `json:"stylePrompt,omitempty"`
	TaskID       string     `json:"taskId,omitempty"`
	FullTrackURL string     `json:"fullTrackUrl,omitempty"`
	PreviewURL   string     `json:"previewUrl,omitempty"`
	LeadID       *uuid.UUID `json:"leadId,omitempty"`
	Phone        string     `json:"phone"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`

	jobs.State `json:"-"`
}

// CreateParams are the fields accepted when a job is created.
type CreateParams struct {
	Artist      string     `json:"artist" validate:"max=120"`
	Genre       string     `json:"genre" validate:"required,max=120"`
	VoiceType   string     `json:"voiceType" validate:"max=60"`
	Purpose     string     `json:"purpose" validate:"required,max=500"`
	SubjectName string     `json:"subjectName" validate:"required,max=120"`
	Anecdotes   string     `json:"anecdotes" validate:"max=4000"`
	LeadID      *uuid.UUID `json:"leadId"`
	Phone       string     `json:"phone" validate:"omitempty,phone"`
}
