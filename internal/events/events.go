// Package events defines the domain events exchanged between the lead,
// job and alert modules. The bus itself lives in platform/events.
package events

import (
	"context"

	"nurture_backend/platform/events"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Publisher   = events.Publisher
	Subscriber  = events.Subscriber
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates the process-local bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus { return events.NewInMemoryBus(log) }

// On subscribes fn to events of type T.
func On[T Event](s Subscriber, fn func(context.Context, T) error) { events.On(s, fn) }

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when an inbound message creates a new lead.
type LeadCreated struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Phone   string    `json:"phone"`
	Name    string    `json:"name"`
	Trigger string    `json:"trigger"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// =============================================================================
// Job Domain Events
// =============================================================================

// Job kinds carried by job events.
const (
	JobKindLyrics = "lyrics"
	JobKindMusic  = "music"
)

// JobFailed is published when a lyrics or music job reaches the error status.
type JobFailed struct {
	BaseEvent
	Kind   string    `json:"kind"`
	JobID  uuid.UUID `json:"jobId"`
	Stage  string    `json:"stage"`
	Reason string    `json:"reason"`
}

func (e JobFailed) EventName() string { return "jobs.job.failed" }

// JobDelivered is published when a job's content reached the lead.
type JobDelivered struct {
	BaseEvent
	Kind   string    `json:"kind"`
	JobID  uuid.UUID `json:"jobId"`
	LeadID uuid.UUID `json:"leadId"`
}

func (e JobDelivered) EventName() string { return "jobs.job.delivered" }
