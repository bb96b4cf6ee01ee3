// Package lyrics generates personalised song lyrics and delivers them to the
// requesting lead over WhatsApp after a cooldown.
package lyrics

import (
	"errors"
	"time"

	"nurture_backend/internal/jobs"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no job matches.
var ErrNotFound = errors.New("lyrics job not found")

// Status is the scheduling cursor of a lyrics job.
type Status string

const (
	StatusPendingLyrics Status = "pending_lyrics"
	StatusPendingSend   Status = "pending_send"
	StatusSent          Status = "sent"
	StatusError         Status = "error"
)

// Job is one lyrics request.
type Job struct {
	ID            uuid.UUID  `json:"id"`
	Status        Status     `json:"status"`
	Purpose       string     `json:"purpose"`
	SubjectName   string     `json:"subjectName"`
	Anecdotes     string     `json:"anecdotes"`
	Lyrics        string     `json:"lyrics,omitempty"`
	GeneratedAt   *time.Time `json:"generatedAt,omitempty"`
	LeadID        *uuid.UUID `json:"leadId,omitempty"`
	RequesterName string     `json:"requesterName"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`

	jobs.State `json:"-"`
}

// CreateParams are the fields accepted when a job is created.
type CreateParams struct {
	Purpose       string     `json:"purpose" validate:"required,max=500"`
	SubjectName   string     `json:"subjectName" validate:"required,max=120"`
	Anecdotes     string     `json:"anecdotes" validate:"max=4000"`
	LeadID        *uuid.UUID `json:"leadId" validate:"required"`
	RequesterName string     `json:"requesterName" validate:"max=120"`
}
