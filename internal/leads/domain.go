// Package leads is the lead bounded context: lead records, their message log
// and active sequence instances, inbound ingest and the audited outbound messenger.
package leads

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no lead matches.
	ErrNotFound = errors.New("lead not found")
	// ErrVersionConflict is returned when a compare-and-swap write loses to a concurrent writer.
	ErrVersionConflict = errors.New("lead version conflict")
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderLead     Sender = "lead"
	SenderBusiness Sender = "business"
	SenderSystem   Sender = "system"
)

const (
	// SourceWhatsApp tags leads acquired through the inbound webhook.
	SourceWhatsApp = "WhatsApp"
	// StatusNew is the status of a freshly created lead.
	StatusNew = "nuevo"
)

// SequenceInstance is one running drip sequence on a lead.
type SequenceInstance struct {
	Trigger   string    `json:"trigger"`
	StartTime time.Time `json:"startTime"`
	Index     int       `json:"index"`
	Completed bool      `json:"completed,omitempty"`
}

// NewSequenceInstance starts trigger at step 0.
func NewSequenceInstance(trigger string, now time.Time) SequenceInstance {
	return SequenceInstance{Trigger: trigger, StartTime: now.UTC(), Index: 0}
}

func (s SequenceInstance) key() string {
	return s.Trigger + "|" + s.StartTime.UTC().Format(time.RFC3339Nano)
}

// Lead is a contact engaging through WhatsApp.
type Lead struct {
	ID              uuid.UUID          `json:"id"`
	Phone           string             `json:"phone"`
	Name            string             `json:"name"`
	Source          string             `json:"source"`
	Status          string             `json:"status"`
	Country         string             `json:"country,omitempty"`
	Labels          []string           `json:"labels"`
	ActiveSequences []SequenceInstance `json:"activeSequences"`
	UnreadCount     int                `json:"unreadCount"`
	LastMessageAt   *time.Time         `json:"lastMessageAt,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	Version         int64              `json:"version"`
}

// Attributes exposes the lead fields available to message templates.
// Spanish keys mirror the field names used by existing sequence copy.
func (l Lead) Attributes() map[string]string {
	return map[string]string{
		"nombre":   l.Name,
		"name":     l.Name,
		"telefono": l.Phone,
		"phone":    l.Phone,
		"source":   l.Source,
		"estado":   l.Status,
		"status":   l.Status,
		"pais":     l.Country,
		"country":  l.Country,
	}
}

// HasLabel reports whether label is set on the lead.
func (l Lead) HasLabel(label string) bool {
	for _, existing := range l.Labels {
		if strings.EqualFold(existing, label) {
			return true
		}
	}
	return false
}

// Message is one entry of a lead's append-only message log.
type Message struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"leadId"`
	Content   string    `json:"content"`
	MediaType string    `json:"mediaType,omitempty"`
	MediaRef  string    `json:"mediaRef,omitempty"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

// PruneCompleted drops completed instances.
func PruneCompleted(instances []SequenceInstance) []SequenceInstance {
	kept := make([]SequenceInstance, 0, len(instances))
	for _, instance := range instances {
		if !instance.Completed {
			kept = append(kept, instance)
		}
	}
	return kept
}

// MergeAdvanced reconciles instances advanced from a stale snapshot with the
// lead's current list. Instances present in current keep the highest index and
// stay completed if either side completed them. Instances added concurrently are
// kept; instances pruned concurrently stay pruned.
func MergeAdvanced(current, advanced []SequenceInstance) []SequenceInstance {
	byKey := make(map[string]SequenceInstance, len(advanced))
	for _, instance := range advanced {
		byKey[instance.key()] = instance
	}

	merged := make([]SequenceInstance, 0, len(current))
	for _, instance := range current {
		if mine, ok := byKey[instance.key()]; ok {
			if mine.Index > instance.Index {
				instance.Index = mine.Index
			}
			instance.Completed = instance.Completed || mine.Completed
		}
		merged = append(merged, instance)
	}
	return PruneCompleted(merged)
}
